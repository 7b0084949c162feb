package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/padmarajkore/sahayak-store/internal/models"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
)

type attendanceStore interface {
	Mark(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	BulkMark(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error)
	ByDate(ctx context.Context, subject, date string) ([]models.AttendanceRecord, error)
	ByStudent(ctx context.Context, studentID string, rng *models.DateRange) ([]models.AttendanceRecord, error)
	ByClass(ctx context.Context, subject string, rng models.DateRange) ([]models.AttendanceRecord, error)
}

// AttendanceService validates and coordinates attendance writes and queries.
type AttendanceService struct {
	attendance attendanceStore
	validator  *validator.Validate
	metrics    storeObserver
	logger     *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(attendance attendanceStore, validate *validator.Validate, metrics storeObserver, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{attendance: attendance, validator: validate, metrics: metrics, logger: logger}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("attendance_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
	return svc
}

// MarkAttendanceRequest describes a single mark payload.
type MarkAttendanceRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name"`
	Subject     string `json:"subject" validate:"required"`
	Date        string `json:"date" validate:"required,attendance_date"`
	Status      string `json:"status" validate:"required,attendance_status"`
	MarkedBy    string `json:"marked_by"`
}

// BulkMarkAttendanceRequest describes the all-or-nothing batch payload.
type BulkMarkAttendanceRequest struct {
	Records []MarkAttendanceRequest `json:"records" validate:"required,min=1,dive"`
}

// normalized trims identifier fields and lowercases the status. Validation
// runs on the normalized request, so a whitespace-only student id or subject
// fails required the same way an empty one does.
func (r MarkAttendanceRequest) normalized() MarkAttendanceRequest {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Date = strings.TrimSpace(r.Date)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.MarkedBy = strings.TrimSpace(r.MarkedBy)
	return r
}

func (r MarkAttendanceRequest) toRecord() models.AttendanceRecord {
	return models.AttendanceRecord{
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Subject:     r.Subject,
		Date:        r.Date,
		Status:      models.AttendanceStatus(r.Status),
		MarkedBy:    r.MarkedBy,
	}
}

func (s *AttendanceService) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(operation, time.Since(start))
	}
}

// Mark validates and upserts a single attendance record, returning the stored
// row. Marking is idempotent by overwrite: re-marking the same
// (student, subject, date) key replaces the earlier status.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	req = req.normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance record")
	}
	record := req.toRecord()
	start := time.Now()
	stored, err := s.attendance.Mark(ctx, &record)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_mark", start)
	s.logger.Info("attendance marked",
		zap.String("student_id", stored.StudentID),
		zap.String("subject", stored.Subject),
		zap.String("date", stored.Date),
		zap.String("status", string(stored.Status)))
	return stored, nil
}

// BulkMark validates the whole batch before any write reaches the store, then
// applies it in one transaction. A single invalid record rejects the entire
// batch; a key repeated in the batch ends up with the later entry's values.
func (s *AttendanceService) BulkMark(ctx context.Context, req BulkMarkAttendanceRequest) ([]models.AttendanceRecord, error) {
	for i := range req.Records {
		req.Records[i] = req.Records[i].normalized()
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance batch")
	}
	records := make([]models.AttendanceRecord, 0, len(req.Records))
	for _, item := range req.Records {
		records = append(records, item.toRecord())
	}
	start := time.Now()
	stored, err := s.attendance.BulkMark(ctx, records)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_bulk_mark", start)
	s.logger.Info("attendance batch marked", zap.Int("records", len(stored)))
	return stored, nil
}

// ByDate lists a subject's records on one date. No matches is an empty slice,
// not an error.
func (s *AttendanceService) ByDate(ctx context.Context, subject, date string) ([]models.AttendanceRecord, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date must use %s format", models.DateLayout))
	}
	start := time.Now()
	records, err := s.attendance.ByDate(ctx, subject, date)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_by_date", start)
	return records, nil
}

// ByStudent lists a student's history, optionally bounded by an inclusive
// date range.
func (s *AttendanceService) ByStudent(ctx context.Context, studentID string, rng *models.DateRange) ([]models.AttendanceRecord, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := validateRange(rng); err != nil {
		return nil, err
	}
	start := time.Now()
	records, err := s.attendance.ByStudent(ctx, studentID, rng)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_by_student", start)
	return records, nil
}

// ByClass lists a subject's records across an inclusive date range.
func (s *AttendanceService) ByClass(ctx context.Context, subject string, rng models.DateRange) ([]models.AttendanceRecord, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if err := validateRange(&rng); err != nil {
		return nil, err
	}
	start := time.Now()
	records, err := s.attendance.ByClass(ctx, subject, rng)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_by_class", start)
	return records, nil
}

func validateRange(rng *models.DateRange) error {
	if rng == nil {
		return nil
	}
	for _, bound := range []string{rng.From, rng.To} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, bound); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range bounds must use %s format", models.DateLayout))
		}
	}
	if rng.From != "" && rng.To != "" && rng.From > rng.To {
		return appErrors.Clone(appErrors.ErrValidation, "date range start must not be after end")
	}
	return nil
}
