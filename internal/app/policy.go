package app

import (
	"github.com/dkeye/Gambit/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose outbound buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, user domain.UserID) BackpressureAction
}

// SimplePolicy always kicks; the member gets a fresh init on reconnect.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, domain.UserID) BackpressureAction {
	return KickMember
}
