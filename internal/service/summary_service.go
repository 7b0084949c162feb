package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/padmarajkore/sahayak-store/internal/models"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
)

type attendanceReader interface {
	ByClass(ctx context.Context, subject string, rng models.DateRange) ([]models.AttendanceRecord, error)
	ByStudent(ctx context.Context, studentID string, rng *models.DateRange) ([]models.AttendanceRecord, error)
}

// SummaryService computes derived attendance views. It reads through the
// attendance repository and holds no state of its own.
//
// Rate policy: late counts as attended (tardy but in the room), excused is a
// neutral outcome kept out of both numerator and denominator, absent counts
// in the denominator only. So rate = (present + late) / (present + late +
// absent), and the rate is undefined rather than zero when every record in
// scope is excused. This tie-break is a deliberate choice, not something the
// status enum implies.
type SummaryService struct {
	attendance attendanceReader
	metrics    storeObserver
	logger     *zap.Logger
}

// NewSummaryService constructs the summary service.
func NewSummaryService(attendance attendanceReader, metrics storeObserver, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{attendance: attendance, metrics: metrics, logger: logger}
}

func (s *SummaryService) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(operation, time.Since(start))
	}
}

// ClassSummary aggregates a subject's records over a date range.
func (s *SummaryService) ClassSummary(ctx context.Context, subject string, rng models.DateRange) (*models.ClassSummary, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	start := time.Now()
	records, err := s.attendance.ByClass(ctx, subject, rng)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_by_class", start)
	counts := tally(records)
	return &models.ClassSummary{
		Subject: subject,
		Range:   rng,
		Counts:  counts,
		Total:   counts.Total(),
		Rate:    rate(counts),
	}, nil
}

// StudentRate aggregates one student's records, optionally scoped to a
// subject. Rate is nil when the student has no non-excused records in scope.
func (s *SummaryService) StudentRate(ctx context.Context, studentID, subject string, rng models.DateRange) (*models.StudentSummary, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	start := time.Now()
	records, err := s.attendance.ByStudent(ctx, studentID, &rng)
	if err != nil {
		return nil, err
	}
	s.observeStore("attendance_by_student", start)
	if subject != "" {
		scoped := records[:0]
		for _, record := range records {
			if record.Subject == subject {
				scoped = append(scoped, record)
			}
		}
		records = scoped
	}
	counts := tally(records)
	return &models.StudentSummary{
		StudentID: studentID,
		Subject:   subject,
		Range:     rng,
		Counts:    counts,
		Total:     counts.Total(),
		Rate:      rate(counts),
	}, nil
}

func tally(records []models.AttendanceRecord) models.StatusCounts {
	var counts models.StatusCounts
	for _, record := range records {
		switch record.Status {
		case models.StatusPresent:
			counts.Present++
		case models.StatusAbsent:
			counts.Absent++
		case models.StatusLate:
			counts.Late++
		case models.StatusExcused:
			counts.Excused++
		}
	}
	return counts
}

func rate(counts models.StatusCounts) *float64 {
	evaluated := counts.Evaluated()
	if evaluated == 0 {
		return nil
	}
	value := float64(counts.Present+counts.Late) / float64(evaluated)
	return &value
}
