package orch

import (
	"encoding/json"

	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
)

// Message is the one outbound envelope; Type selects which fields are set.
type Message struct {
	Type       string               `json:"type"`
	RequestID  string               `json:"requestId,omitempty"`
	Room       *domain.RoomSnapshot `json:"room,omitempty"`
	RoomID     domain.RoomID        `json:"roomId,omitempty"`
	UserID     domain.UserID        `json:"userId,omitempty"`
	Member     *domain.Member       `json:"member,omitempty"`
	State      *domain.MemberState  `json:"state,omitempty"`
	Move       *domain.Move         `json:"move,omitempty"`
	Timer      *domain.TimerState   `json:"timer,omitempty"`
	Resolution domain.Resolution    `json:"resolution,omitempty"`
	WinnerID   *domain.UserID       `json:"winnerId,omitempty"`
	Name       string               `json:"name,omitempty"`
	Message    string               `json:"message,omitempty"`
}

const (
	TypeAck     = "ack"
	TypeNack    = "nack"
	TypeError   = "error"
	TypeCreated = "created"
	TypePong    = "pong"
)

func FromEvent(ev core.Event) Message {
	m := Message{
		Type:       string(ev.Kind),
		Room:       ev.Room,
		UserID:     ev.UserID,
		Member:     ev.Member,
		State:      ev.State,
		Move:       ev.Move,
		Timer:      ev.Timer,
		Resolution: ev.Resolution,
		WinnerID:   ev.WinnerID,
	}
	if ev.Room != nil {
		m.RoomID = ev.Room.ID
	}
	return m
}

func Ack(requestID string) Message { return Message{Type: TypeAck, RequestID: requestID} }

func Nack(requestID string, err error) Message {
	return Message{Type: TypeNack, RequestID: requestID, Name: core.ErrorName(err), Message: err.Error()}
}

func ErrorMessage(err error) Message {
	return Message{Type: TypeError, Name: core.ErrorName(err), Message: err.Error()}
}

func Created(requestID string, room domain.RoomID) Message {
	return Message{Type: TypeCreated, RequestID: requestID, RoomID: room}
}

func Pong() Message { return Message{Type: TypePong} }

func Encode(m Message) (core.Frame, error) {
	return json.Marshal(m)
}
