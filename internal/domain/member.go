package domain

// Color of the pieces a player controls.
type Color string

const (
	White Color = "w"
	Black Color = "b"
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// MemberState is the dynamic part of a member's participation.
// A member can be present in the room but not connected.
type MemberState struct {
	Connected bool  `json:"connected"`
	IsPlayer  bool  `json:"isPlayer"`
	Color     Color `json:"color,omitempty"`
}

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User  User        `json:"user"`
	State MemberState `json:"state"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user User) *Member {
	return &Member{User: user}
}
