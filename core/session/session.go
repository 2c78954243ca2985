// Package session is the identity service of the console: it signs admins in & out,
// keeps track of live sessions and notifies subscribers of every session change.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session has expired")
)

// Session is a signed-in admin.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"` // UTC
	ExpiresAt time.Time `json:"expires_at"` // UTC
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. CreateSession replaces any session with the same ID.
// GetSession returns ErrNotFound for unknown or deleted sessions and ErrExpired for sessions past their expiry.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
}

type EventType int

const (
	SignedIn EventType = iota + 1
	SignedOut
)

func (t EventType) String() string {
	switch t {
	case SignedIn:
		return "signed-in"
	case SignedOut:
		return "signed-out"
	}
	return "unknown"
}

// Event is a session change.
type Event struct {
	Type    EventType
	Session Session
}
