package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/padmarajkore/sahayak-store/internal/models"
)

const sessionColumns = "id, user_id, app_id, created_at, updated_at, state"

// SessionRepository persists durable user sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetOrCreate returns the most recent session for (user, app), creating one
// with the default state when none exists. The lookup and the insert run in a
// single write transaction; the store's immediate tx locking means two
// concurrent first contacts for the same user serialize and both observe the
// same single row.
func (r *SessionRepository) GetOrCreate(ctx context.Context, userID, appID string) (*models.Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin get-or-create session: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE user_id = ? AND app_id = ?
ORDER BY created_at DESC, id DESC LIMIT 1`, sessionColumns)
	var session models.Session
	err = tx.GetContext(ctx, &session, query, userID, appID)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit get-or-create session: %w", err)
		}
		commit = true
		return &session, nil
	case errors.Is(err, sql.ErrNoRows):
		created, err := insertSession(ctx, tx, userID, appID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit get-or-create session: %w", err)
		}
		commit = true
		return created, nil
	default:
		return nil, fmt.Errorf("lookup session for user %s: %w", userID, err)
	}
}

// Create always starts a fresh session with the default state, leaving any
// existing sessions for the user in place as history.
func (r *SessionRepository) Create(ctx context.Context, userID, appID string) (*models.Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create session: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	session, err := insertSession(ctx, tx, userID, appID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create session: %w", err)
	}
	commit = true
	return session, nil
}

func insertSession(ctx context.Context, tx *sqlx.Tx, userID, appID string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		AppID:     appID,
		CreatedAt: now,
		UpdatedAt: now,
		State:     models.DefaultState(),
	}
	query := `INSERT INTO sessions (id, user_id, app_id, created_at, updated_at, state)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, session.ID, session.UserID, session.AppID, session.CreatedAt, session.UpdatedAt, session.State); err != nil {
		return nil, fmt.Errorf("insert session for user %s: %w", userID, err)
	}
	return session, nil
}

// Load fetches a session by identifier. Unknown identifiers surface
// sql.ErrNoRows for the service layer to translate.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = ?", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load session %s: %w", sessionID, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return &session, nil
}

// Save overwrites the session's state blob unconditionally and bumps the
// updated timestamp. Callers are expected to have merged the state first;
// concurrent saves to the same row are serialized by the store.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	query := `UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, session.State, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("save session %s: %w", session.ID, sql.ErrNoRows)
	}
	return nil
}

// ListForUser returns every session for (user, app), oldest first.
func (r *SessionRepository) ListForUser(ctx context.Context, userID, appID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE user_id = ? AND app_id = ?
ORDER BY created_at ASC, id ASC`, sessionColumns)
	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, userID, appID); err != nil {
		return nil, fmt.Errorf("list sessions for user %s: %w", userID, err)
	}
	return sessions, nil
}
