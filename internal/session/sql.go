package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore persists sessions through sqlx. The same statements run on sqlite and postgres.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// sessionRow is the storage shape: flags as 0/1 and times as unix seconds,
// except last_welcome_at which is in milliseconds.
type sessionRow struct {
	UserID        int64          `db:"user_id"`
	ChatID        int64          `db:"chat_id"`
	State         string         `db:"state"`
	Offer         string         `db:"offer"`
	Pseudo        sql.NullString `db:"pseudo"`
	SubmittedAt   sql.NullInt64  `db:"submitted_at"`
	Pending       int64          `db:"pending"`
	EditMode      int64          `db:"edit_mode"`
	LastWelcomeAt sql.NullInt64  `db:"last_welcome_at"`
	SubmissionRef string         `db:"submission_ref"`
	UpdatedAt     int64          `db:"updated_at"`
}

const selectSession = `
	SELECT user_id, chat_id, state, offer, pseudo, submitted_at, pending,
	       edit_mode, last_welcome_at, submission_ref, updated_at
	FROM sessions
	WHERE user_id = ?`

const upsertSession = `
	INSERT INTO sessions
	    (user_id, chat_id, state, offer, pseudo, submitted_at, pending,
	     edit_mode, last_welcome_at, submission_ref, updated_at)
	VALUES
	    (:user_id, :chat_id, :state, :offer, :pseudo, :submitted_at, :pending,
	     :edit_mode, :last_welcome_at, :submission_ref, :updated_at)
	ON CONFLICT (user_id) DO UPDATE SET
	    chat_id = excluded.chat_id,
	    state = excluded.state,
	    offer = excluded.offer,
	    pseudo = excluded.pseudo,
	    submitted_at = excluded.submitted_at,
	    pending = excluded.pending,
	    edit_mode = excluded.edit_mode,
	    last_welcome_at = excluded.last_welcome_at,
	    submission_ref = excluded.submission_ref,
	    updated_at = excluded.updated_at`

// Load returns the stored session or a fresh idle one.
func (s *SQLStore) Load(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectSession), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %d: %w", userID, err)
	}
	return row.session(), nil
}

// Save upserts sess.
func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	sess.UpdatedAt = s.now().UTC().Truncate(time.Second)
	if _, err := s.db.NamedExecContext(ctx, upsertSession, toRow(sess)); err != nil {
		return fmt.Errorf("session: save %d: %w", sess.UserID, err)
	}
	return nil
}

// ReplyTarget returns the admin's active target or 0.
func (s *SQLStore) ReplyTarget(ctx context.Context, adminID int64) (int64, error) {
	target, err := s.replyTarget(ctx, s.db, adminID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	return target, err
}

// SetReplyTarget replaces the admin's active target.
func (s *SQLStore) SetReplyTarget(ctx context.Context, adminID, userID int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO reply_routes (admin_id, target_user_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (admin_id) DO UPDATE SET
		    target_user_id = excluded.target_user_id,
		    updated_at = excluded.updated_at`),
		adminID, userID, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("session: set reply target: %w", err)
	}
	return nil
}

// ClearReplyTarget removes the admin's active target and returns it.
func (s *SQLStore) ClearReplyTarget(ctx context.Context, adminID int64) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("session: clear reply target: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := s.replyTarget(ctx, tx, adminID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM reply_routes WHERE admin_id = ?`), adminID); err != nil {
		return 0, fmt.Errorf("session: clear reply target: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("session: clear reply target: %w", err)
	}
	return prev, nil
}

func (s *SQLStore) replyTarget(ctx context.Context, q sqlx.QueryerContext, adminID int64) (int64, error) {
	var target int64
	err := sqlx.GetContext(ctx, q, &target, s.db.Rebind(`SELECT target_user_id FROM reply_routes WHERE admin_id = ?`), adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("session: reply target: %w", err)
	}
	return target, nil
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (r sessionRow) session() *Session {
	s := &Session{
		UserID:        r.UserID,
		ChatID:        r.ChatID,
		State:         State(r.State),
		Offer:         Offer(r.Offer),
		Pending:       r.Pending != 0,
		EditMode:      r.EditMode != 0,
		SubmissionRef: r.SubmissionRef,
		UpdatedAt:     time.Unix(r.UpdatedAt, 0).UTC(),
		SubmittedAt:   fromUnix(r.SubmittedAt),
		LastWelcomeAt: fromUnixMilli(r.LastWelcomeAt),
	}
	if r.Pseudo.Valid {
		p := r.Pseudo.String
		s.Pseudo = &p
	}
	if s.State == "" {
		s.State = StateIdle
	}
	return s
}

func toRow(s *Session) sessionRow {
	r := sessionRow{
		UserID:        s.UserID,
		ChatID:        s.ChatID,
		State:         string(s.State),
		Offer:         string(s.Offer),
		Pending:       boolInt(s.Pending),
		EditMode:      boolInt(s.EditMode),
		SubmissionRef: s.SubmissionRef,
		UpdatedAt:     s.UpdatedAt.Unix(),
		SubmittedAt:   toUnix(s.SubmittedAt),
		LastWelcomeAt: toUnixMilli(s.LastWelcomeAt),
	}
	if s.Pseudo != nil {
		r.Pseudo = sql.NullString{String: *s.Pseudo, Valid: true}
	}
	return r
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func toUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnixMilli(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func toUnixMilli(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
