package domain

import (
	"errors"
	"strings"
)

const (
	DefaultInitialTimeMs = 300_000
	MaxInitialTimeMs     = 3 * 60 * 60 * 1000
	MaxIncrementMs       = 60_000
)

var (
	ErrUnknownMode     = errors.New("unknown game mode")
	ErrInvalidColor    = errors.New("invalid preferred color")
	ErrInvalidTimeRule = errors.New("invalid timer settings")
)

// GameMode is a named preset of timer rules.
type GameMode struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Rules       Rules  `json:"gameRules"`
}

var gameModes = []GameMode{
	{Key: "bullet", Title: "Bullet (1|0)", Description: "1 minute per player, no increment",
		Rules: Rules{Timer: true, InitialTimeMs: 60_000, IncrementMs: 0}},
	{Key: "blitz", Title: "Blitz (3|2)", Description: "3 minutes per player, 2 second increment",
		Rules: Rules{Timer: true, InitialTimeMs: 180_000, IncrementMs: 2_000}},
	{Key: "rapid", Title: "Rapid (10|5)", Description: "10 minutes per player, 5 second increment",
		Rules: Rules{Timer: true, InitialTimeMs: 600_000, IncrementMs: 5_000}},
	{Key: "classical", Title: "Classical (30|20)", Description: "30 minutes per player, 20 second increment",
		Rules: Rules{Timer: true, InitialTimeMs: 1_800_000, IncrementMs: 20_000}},
	{Key: "custom", Title: "Custom", Description: "No timer",
		Rules: Rules{Timer: false}},
}

// LookupMode returns rules for a mode key with the mode label filled in.
func LookupMode(key string) (Rules, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, m := range gameModes {
		if m.Key == key {
			r := m.Rules
			r.Mode = m.Key
			return r, nil
		}
	}
	return Rules{}, ErrUnknownMode
}

// NormalizeRules applies creation-time defaults: a timer without an initial
// time gets five minutes, untimed games drop timer fields.
func NormalizeRules(r Rules) (Rules, error) {
	if r.HostPreferredColor != "" && !r.HostPreferredColor.Valid() {
		return Rules{}, ErrInvalidColor
	}
	if !r.Timer {
		r.InitialTimeMs = 0
		r.IncrementMs = 0
		return r, nil
	}
	if r.InitialTimeMs <= 0 {
		r.InitialTimeMs = DefaultInitialTimeMs
	}
	if r.IncrementMs < 0 {
		r.IncrementMs = 0
	}
	if r.InitialTimeMs > MaxInitialTimeMs || r.IncrementMs > MaxIncrementMs {
		return Rules{}, ErrInvalidTimeRule
	}
	return r, nil
}

// Modes lists the presets in display order.
func Modes() []GameMode {
	out := make([]GameMode, len(gameModes))
	copy(out, gameModes)
	for i := range out {
		out[i].Rules.Mode = out[i].Key
	}
	return out
}

// ResolveRules builds creation rules from a mode key, explicit rules, or
// both. A mode fixes the timer; explicit rules may still pick the host color.
func ResolveRules(mode string, explicit *Rules) (Rules, error) {
	var r Rules
	if explicit != nil {
		r = *explicit
	}
	if strings.TrimSpace(mode) != "" {
		preset, err := LookupMode(mode)
		if err != nil {
			return Rules{}, err
		}
		preset.HostPreferredColor = r.HostPreferredColor
		r = preset
	}
	return NormalizeRules(r)
}
