package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that found no row. Load never returns it.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions and the admin reply route.
type Store interface {
	// Load returns the user's record, or a fresh idle one when none exists.
	Load(ctx context.Context, userID int64) (*Session, error)
	// Save validates and writes s.
	Save(ctx context.Context, s *Session) error

	// ReplyTarget returns the active reply target of the admin, or 0.
	ReplyTarget(ctx context.Context, adminID int64) (int64, error)
	SetReplyTarget(ctx context.Context, adminID, userID int64) error
	// ClearReplyTarget removes the target and returns the one that was active, or 0.
	ClearReplyTarget(ctx context.Context, adminID int64) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Update loads the user's record, applies fn and saves the result.
// Nothing is written when fn returns an error.
func Update(ctx context.Context, st Store, userID int64, fn func(*Session) error) (*Session, error) {
	s, err := st.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := st.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
