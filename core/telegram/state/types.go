package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/menacebot/core/logger"
	tghelpers "github.com/m3rciful/menacebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

const handledKey = "fsm_handled"

// Positions reads the persisted conversation position of a user.
type Positions interface {
	Position(ctx context.Context, userID int64) (State, error)
}

// PositionsFunc adapts a function to Positions.
type PositionsFunc func(ctx context.Context, userID int64) (State, error)

// Position calls f.
func (f PositionsFunc) Position(ctx context.Context, userID int64) (State, error) {
	return f(ctx, userID)
}

// Manager routes updates to per-state handlers.
type Manager struct {
	positions Positions

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewManager builds a Manager reading positions from p.
func NewManager(p Positions) *Manager {
	return &Manager{positions: p, handlers: make(map[State]tele.HandlerFunc)}
}

// Handle associates a state with its handler.
func (m *Manager) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

// GetState returns the user's position. Store failures are logged and read as idle.
func (m *Manager) GetState(ctx context.Context, userID int64) State {
	if m.positions == nil {
		return StateIdle
	}
	st, err := m.positions.Position(ctx, userID)
	if err != nil {
		logger.Warn(ctx, logger.CompTG, "fsm.position",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return StateIdle
	}
	if st == "" {
		return StateIdle
	}
	return st
}

// StateName implements middleware.StateGetter.
func (m *Manager) StateName(ctx context.Context, userID int64) string {
	return string(m.GetState(ctx, userID))
}

// InProgress reports whether the user's position has a registered handler.
func (m *Manager) InProgress(ctx context.Context, userID int64) bool {
	st := m.GetState(ctx, userID)
	if st == StateIdle {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handlers[st]
	return ok
}

// ManagerHandler executes the handler registered for the user's current state, if any,
// and marks the update as consumed by the conversation.
func (m *Manager) ManagerHandler(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	userID := c.Sender().ID
	ctx := tghelpers.BuildContext(c)
	current := m.GetState(ctx, userID)
	logger.Debug(ctx, logger.CompTG, "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	m.mu.RLock()
	handler, ok := m.handlers[current]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	c.Set(handledKey, true)
	return handler(c)
}

// Handled reports whether a conversation handler consumed the update.
func Handled(c tele.Context) bool {
	v, _ := c.Get(handledKey).(bool)
	return v
}
