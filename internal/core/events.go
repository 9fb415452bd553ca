package core

import "github.com/dkeye/Gambit/internal/domain"

type EventKind string

const (
	EventInit         EventKind = "init"
	EventMemberJoin   EventKind = "memberJoin"
	EventMemberLeave  EventKind = "memberLeave"
	EventMemberUpdate EventKind = "memberUpdate"
	EventGameStart    EventKind = "gameStart"
	EventMove         EventKind = "move"
	EventGameEnd      EventKind = "gameEnd"
)

// Event is an outbound room notification. Only the fields relevant to Kind
// are set; transports encode it into their own wire format.
type Event struct {
	Kind EventKind

	// init
	Room *domain.RoomSnapshot
	// init recipient, memberLeave and memberUpdate subject
	UserID domain.UserID
	// memberJoin
	Member *domain.Member
	// memberUpdate
	State *domain.MemberState

	Move       *domain.Move
	Timer      *domain.TimerState
	Resolution domain.Resolution
	WinnerID   *domain.UserID
}
