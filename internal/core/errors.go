package core

import (
	"context"
	"errors"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrNotAPlayer     = errors.New("not a player")
	ErrNotAMember     = errors.New("not a member of the room")
	ErrGameNotStarted = errors.New("game not started")
	ErrGameFinished   = errors.New("game finished")
	ErrCannotLeave    = errors.New("players cannot leave the room")
	ErrRoomClosed     = errors.New("room closed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrBadPayload   = errors.New("bad payload")
	ErrRateLimited  = errors.New("rate limited")
)

// Wire names for error kinds.
const (
	NameRoomNotFound   = "RoomNotFoundError"
	NameRoomFull       = "RoomFullError"
	NameNotYourTurn    = "NotYourTurnError"
	NameIllegalMove    = "IllegalMoveError"
	NameNotAPlayer     = "NotAPlayerError"
	NameNotAMember     = "NotAMemberError"
	NameGameNotStarted = "GameNotStartedError"
	NameGameFinished   = "GameFinishedError"
	NameCannotLeave    = "CannotLeaveError"
	NameRoomClosed     = "RoomClosedError"
	NameAuth           = "AuthError"
	NameBadPayload     = "BadPayloadError"
	NameRateLimited    = "RateLimitedError"
	NameTimeout        = "TimeoutError"
	NameInternal       = "InternalError"
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrRoomNotFound, NameRoomNotFound},
	{ErrRoomFull, NameRoomFull},
	{ErrNotYourTurn, NameNotYourTurn},
	{ErrIllegalMove, NameIllegalMove},
	{ErrNotAPlayer, NameNotAPlayer},
	{ErrNotAMember, NameNotAMember},
	{ErrGameNotStarted, NameGameNotStarted},
	{ErrGameFinished, NameGameFinished},
	{ErrCannotLeave, NameCannotLeave},
	{ErrRoomClosed, NameRoomClosed},
	{ErrUnauthorized, NameAuth},
	{ErrBadPayload, NameBadPayload},
	{ErrRateLimited, NameRateLimited},
	{context.DeadlineExceeded, NameTimeout},
	{context.Canceled, NameTimeout},
}

// ErrorName maps an error to its wire name. Unknown errors are internal.
func ErrorName(err error) string {
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return NameInternal
}

// IsProtocolError reports errors after which the connection is closed
// instead of getting a per-request nack.
func IsProtocolError(err error) bool {
	for _, e := range []error{ErrRoomNotFound, ErrRoomClosed, ErrUnauthorized, ErrBadPayload} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
