package database

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/padmarajkore/sahayak-store/pkg/config"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
)

// NewSQLite opens the file-backed store and bootstraps the schema. WAL keeps
// readers unblocked during writes; _txlock=immediate makes write transactions
// take the write lock at BEGIN, which serializes read-modify-write sequences
// such as the session get-or-create. The pragmas use the driver's
// _pragma=name(value) form; it applies them on every new pool connection.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, appErrors.Clone(appErrors.ErrStorageUnavailable, "database path is required")
	}

	dsn := fmt.Sprintf("%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
		filepath.Clean(cfg.Path), cfg.BusyTimeout.Milliseconds())

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "open sqlite db")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "ping sqlite db")
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "migrate sqlite db")
	}

	return db, nil
}

func migrate(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		app_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		state TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_app ON sessions(user_id, app_id, created_at);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		subject TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		marked_at DATETIME NOT NULL,
		marked_by TEXT NOT NULL,
		UNIQUE (student_id, subject, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_subject_date ON attendance(subject, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance(student_id, date);
	`

	_, err := db.Exec(schema)
	return err
}
