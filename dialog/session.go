package dialog

import (
	"context"
	"time"
)

// State is a step of the setup dialog
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingSource      State = "awaiting_source"
	StateAwaitingDestination State = "awaiting_destination"
)

// Session is the per-user dialog progress
type Session struct {
	UserID    int64     `json:"user_id"`
	State     State     `json:"state"`
	SourceID  string    `json:"source_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore keeps dialog sessions. Get returns nil, nil when there is no live session.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID int64) error
}
