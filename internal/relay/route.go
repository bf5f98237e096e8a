package relay

import (
	"context"
	"sync"
)

// RouteStore persists the admin's reply target.
type RouteStore interface {
	ReplyTarget(ctx context.Context, adminID int64) (int64, error)
	SetReplyTarget(ctx context.Context, adminID, userID int64) error
	ClearReplyTarget(ctx context.Context, adminID int64) (int64, error)
}

// Route is the single active reply target of the admin. Writes go to the store
// first; the cached value changes only when the store accepted them.
type Route struct {
	adminID int64
	store   RouteStore

	mu     sync.Mutex
	target int64
	loaded bool
}

// NewRoute binds the slot of adminID to store. A nil store keeps it in memory.
func NewRoute(adminID int64, store RouteStore) *Route {
	return &Route{adminID: adminID, store: store, loaded: store == nil}
}

// Target returns the active target or 0.
func (r *Route) Target(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		t, err := r.store.ReplyTarget(ctx, r.adminID)
		if err != nil {
			return 0, err
		}
		r.target, r.loaded = t, true
	}
	return r.target, nil
}

// Set replaces the active target. The latest call wins.
func (r *Route) Set(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		if err := r.store.SetReplyTarget(ctx, r.adminID, userID); err != nil {
			return err
		}
	}
	r.target, r.loaded = userID, true
	return nil
}

// Clear removes the active target and returns the previous one, or 0.
func (r *Route) Clear(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.target
	if r.store != nil {
		stored, err := r.store.ClearReplyTarget(ctx, r.adminID)
		if err != nil {
			return 0, err
		}
		prev = stored
	}
	r.target, r.loaded = 0, true
	return prev, nil
}
