package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/padmarajkore/sahayak-store/internal/models"
)

const attendanceColumns = "id, student_id, student_name, subject, date, status, marked_at, marked_by"

const attendanceUpsert = `INSERT INTO attendance (id, student_id, student_name, subject, date, status, marked_at, marked_by)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (student_id, subject, date)
DO UPDATE SET student_name = excluded.student_name, status = excluded.status,
	marked_at = excluded.marked_at, marked_by = excluded.marked_by
RETURNING id, student_id, student_name, subject, date, status, marked_at, marked_by`

// AttendanceRepository persists student attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Mark upserts a single record keyed by (student, subject, date) and returns
// the stored row. Re-marking the same key overwrites status, marked_at and
// marked_by in place; the unique index guarantees no duplicate key ever lands.
func (r *AttendanceRepository) Mark(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	prepareRecord(record)
	var stored models.AttendanceRecord
	if err := r.db.QueryRowxContext(ctx, attendanceUpsert,
		record.ID, record.StudentID, record.StudentName, record.Subject,
		record.Date, record.Status, record.MarkedAt, record.MarkedBy).StructScan(&stored); err != nil {
		return nil, fmt.Errorf("mark attendance for %s/%s/%s: %w", record.StudentID, record.Subject, record.Date, err)
	}
	return &stored, nil
}

// BulkMark applies every record in one transaction; either all commit or none
// do. Records are applied in sequence order, so a key repeated within the
// batch ends up with the later entry's values.
func (r *AttendanceRepository) BulkMark(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	stored := make([]models.AttendanceRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		prepareRecord(rec)
		var row models.AttendanceRecord
		if err := tx.QueryRowxContext(ctx, attendanceUpsert,
			rec.ID, rec.StudentID, rec.StudentName, rec.Subject,
			rec.Date, rec.Status, rec.MarkedAt, rec.MarkedBy).StructScan(&row); err != nil {
			return nil, fmt.Errorf("bulk mark attendance for %s/%s/%s: %w", rec.StudentID, rec.Subject, rec.Date, err)
		}
		stored = append(stored, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	commit = true
	return stored, nil
}

func prepareRecord(record *models.AttendanceRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}
}

// ByDate returns all records for a subject on one date, ordered by student.
func (r *AttendanceRepository) ByDate(ctx context.Context, subject, date string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE subject = ? AND date = ? ORDER BY student_id ASC`, attendanceColumns)
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, subject, date); err != nil {
		return nil, fmt.Errorf("attendance by date %s/%s: %w", subject, date, err)
	}
	return records, nil
}

// ByStudent returns a student's history, optionally bounded by an inclusive
// date range, ordered by date ascending.
func (r *AttendanceRepository) ByStudent(ctx context.Context, studentID string, rng *models.DateRange) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE student_id = ?", attendanceColumns)
	args := []interface{}{studentID}
	if rng != nil {
		if rng.From != "" {
			query += " AND date >= ?"
			args = append(args, rng.From)
		}
		if rng.To != "" {
			query += " AND date <= ?"
			args = append(args, rng.To)
		}
	}
	query += " ORDER BY date ASC, subject ASC"
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("attendance by student %s: %w", studentID, err)
	}
	return records, nil
}

// ByClass returns all records for a subject across an inclusive date range,
// ordered by date then student.
func (r *AttendanceRepository) ByClass(ctx context.Context, subject string, rng models.DateRange) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE subject = ?", attendanceColumns)
	args := []interface{}{subject}
	if rng.From != "" {
		query += " AND date >= ?"
		args = append(args, rng.From)
	}
	if rng.To != "" {
		query += " AND date <= ?"
		args = append(args, rng.To)
	}
	query += " ORDER BY date ASC, student_id ASC"
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("attendance by class %s: %w", subject, err)
	}
	return records, nil
}
