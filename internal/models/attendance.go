package models

import "time"

// AttendanceStatus is the recorded outcome for one student on one date.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
	StatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// DateLayout is the persisted calendar-date format. Dates are stored as ISO
// strings so range scans stay correct under lexicographic comparison.
const DateLayout = "2006-01-02"

// AttendanceRecord is the authoritative status of one student, in one subject,
// on one date. The (StudentID, Subject, Date) key is unique in storage;
// re-marking overwrites in place. MarkedAt is the marking time, distinct from
// Date so same-day corrections stay auditable.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	Subject     string           `db:"subject" json:"subject"`
	Date        string           `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	MarkedAt    time.Time        `db:"marked_at" json:"marked_at"`
	MarkedBy    string           `db:"marked_by" json:"marked_by"`
}

// DateRange bounds a query to [From, To], both inclusive, in DateLayout form.
// Empty bounds are open-ended.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StatusCounts tallies records per status.
type StatusCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

// Total is the number of marked records across all statuses.
func (c StatusCounts) Total() int {
	return c.Present + c.Absent + c.Late + c.Excused
}

// Evaluated is the denominator for attendance rates: present, late and absent
// count, excused records are neutral.
func (c StatusCounts) Evaluated() int {
	return c.Present + c.Late + c.Absent
}

// ClassSummary is a derived view over one subject and date range. Rate is nil
// when no non-excused records exist, distinguishing "no data" from 0%.
type ClassSummary struct {
	Subject string       `json:"subject"`
	Range   DateRange    `json:"range"`
	Counts  StatusCounts `json:"counts"`
	Total   int          `json:"total"`
	Rate    *float64     `json:"rate"`
}

// StudentSummary is the per-student counterpart of ClassSummary.
type StudentSummary struct {
	StudentID string       `json:"student_id"`
	Subject   string       `json:"subject,omitempty"`
	Range     DateRange    `json:"range"`
	Counts    StatusCounts `json:"counts"`
	Total     int          `json:"total"`
	Rate      *float64     `json:"rate"`
}
