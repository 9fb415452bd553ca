// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 36
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
)

type UserID string

// User is an already verified external identity plus its display attributes.
type User struct {
	ID        UserID `json:"id"`
	FullName  string `json:"fullName"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarURL,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, fullName, username string) (*User, error) {
	if len(id) == 0 {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	if fullName == "" {
		fullName = username
	}
	return &User{ID: id, FullName: fullName, Username: username}, nil
}
