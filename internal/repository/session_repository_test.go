package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmarajkore/sahayak-store/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows(id, userID, appID, state string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "app_id", "created_at", "updated_at", "state"}).
		AddRow(id, userID, appID, now, now, state)
}

func TestSessionRepositoryGetOrCreateReturnsExisting(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, user_id, app_id, created_at, updated_at, state FROM sessions WHERE user_id = \\? AND app_id = \\?").
		WithArgs("alice", "sahayak").
		WillReturnRows(sessionRows("sess-1", "alice", "sahayak", `{"user_name":"Alice"}`))
	mock.ExpectCommit()

	session, err := repo.GetOrCreate(context.Background(), "alice", "sahayak")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, "Alice", session.State["user_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryGetOrCreateInsertsWhenAbsent(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, user_id, app_id, created_at, updated_at, state FROM sessions WHERE user_id = \\? AND app_id = \\?").
		WithArgs("alice", "sahayak").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "alice", "sahayak", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	session, err := repo.GetOrCreate(context.Background(), "alice", "sahayak")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "alice", session.UserID)
	assert.Equal(t, 0, session.State["session_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryGetOrCreateRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, user_id, app_id, created_at, updated_at, state FROM sessions WHERE user_id = \\? AND app_id = \\?").
		WithArgs("alice", "sahayak").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := repo.GetOrCreate(context.Background(), "alice", "sahayak")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryLoadNotFound(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT id, user_id, app_id, created_at, updated_at, state FROM sessions WHERE id = \\?").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySaveOverwritesState(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT id, user_id, app_id, created_at, updated_at, state FROM sessions WHERE id = \\?").
		WithArgs("sess-1").
		WillReturnRows(sessionRows("sess-1", "alice", "sahayak", `{"session_count":1}`))
	mock.ExpectExec("UPDATE sessions SET state = \\?, updated_at = \\? WHERE id = \\?").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := repo.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	session.State = session.State.Merge(map[string]interface{}{"session_count": 2})

	before := session.UpdatedAt
	require.NoError(t, repo.Save(context.Background(), session))
	assert.True(t, session.UpdatedAt.After(before) || session.UpdatedAt.Equal(before))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySaveUnknownSession(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE sessions SET state = \\?, updated_at = \\? WHERE id = \\?").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &models.Session{ID: "missing", State: models.State{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListForUser(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "app_id", "created_at", "updated_at", "state"}).
		AddRow("sess-1", "alice", "sahayak", now.Add(-time.Hour), now.Add(-time.Hour), "{}").
		AddRow("sess-2", "alice", "sahayak", now, now, "{}")
	mock.ExpectQuery("SELECT id, user_id, app_id, created_at, updated_at, state FROM sessions WHERE user_id = \\? AND app_id = \\?").
		WithArgs("alice", "sahayak").
		WillReturnRows(rows)

	sessions, err := repo.ListForUser(context.Background(), "alice", "sahayak")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "sess-1", sessions[0].ID)
	assert.Equal(t, "sess-2", sessions[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
