package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UserRole identifies how a session owner interacts with the assistant.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Valid returns true when the role is a supported value. The empty string is
// accepted because new sessions start before the user has introduced themselves.
func (r UserRole) Valid() bool {
	switch r {
	case "", RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// State is the open-ended session state blob. Values are restricted to what
// encoding/json can round-trip (strings, numbers, booleans, nested maps,
// slices, null); the whole map is persisted as a single JSON column.
type State map[string]interface{}

// Merge returns a copy of the state with every key from patch overwriting the
// corresponding key. The merge is shallow: a nested map in patch replaces the
// stored nested map wholesale. Keys absent from patch are preserved. Neither
// receiver nor patch is mutated.
func (s State) Merge(patch State) State {
	merged := s.Clone()
	for key, value := range patch {
		merged[key] = value
	}
	return merged
}

// Clone returns a shallow copy of the state map.
func (s State) Clone() State {
	clone := make(State, len(s))
	for key, value := range s {
		clone[key] = value
	}
	return clone
}

// Value implements driver.Valuer so the state serializes into one column.
func (s State) Value() (driver.Value, error) {
	if s == nil {
		s = State{}
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return string(payload), nil
}

// Scan implements sql.Scanner for the persisted JSON column.
func (s *State) Scan(src interface{}) error {
	if src == nil {
		*s = State{}
		return nil
	}
	var payload []byte
	switch v := src.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		return fmt.Errorf("scan session state: unsupported type %T", src)
	}
	if len(payload) == 0 {
		*s = State{}
		return nil
	}
	return json.Unmarshal(payload, s)
}

// DefaultState is the initial state every new session starts from.
func DefaultState() State {
	return State{
		"user_name":     "",
		"user_role":     "",
		"session_count": 0,
		"preferences": map[string]interface{}{
			"language":         "english",
			"difficulty_level": "medium",
			"subjects":         []interface{}{},
		},
		"interaction_history": []interface{}{},
		"attendance_records":  map[string]interface{}{},
	}
}

// Session is one user's durable interaction context. Sessions are never hard
// deleted; the most recent one per (user, app) is the continuation target.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	AppID     string    `db:"app_id" json:"app_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	State     State     `db:"state" json:"state"`
}

// SessionSummary is a read-only projection over a session's well-known state
// keys, used by the session listing surface.
type SessionSummary struct {
	SessionID        string                 `json:"session_id"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	UserName         string                 `json:"user_name"`
	UserRole         string                 `json:"user_role"`
	SessionCount     int                    `json:"session_count"`
	AttendanceCount  int                    `json:"attendance_records_count"`
	InteractionCount int                    `json:"interaction_count"`
	Preferences      map[string]interface{} `json:"preferences"`
}
