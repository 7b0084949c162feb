package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/padmarajkore/sahayak-store/internal/models"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
)

type sessionStore interface {
	GetOrCreate(ctx context.Context, userID, appID string) (*models.Session, error)
	Create(ctx context.Context, userID, appID string) (*models.Session, error)
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	ListForUser(ctx context.Context, userID, appID string) ([]models.Session, error)
}

// SessionService owns session continuity: load-or-create, explicit
// continuation, and folding partial state updates into the stored blob.
type SessionService struct {
	sessions sessionStore
	metrics  storeObserver
	logger   *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(sessions sessionStore, metrics storeObserver, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, metrics: metrics, logger: logger}
}

func (s *SessionService) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation(operation, time.Since(start))
	}
}

// GetOrCreate returns the user's current session, creating a fresh one with
// the default state on first contact.
func (s *SessionService) GetOrCreate(ctx context.Context, userID, appID string) (*models.Session, error) {
	if userID == "" || appID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id and app id are required")
	}
	start := time.Now()
	session, err := s.sessions.GetOrCreate(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	s.observeStore("session_get_or_create", start)
	return session, nil
}

// StartNew always opens a fresh session, keeping prior sessions as history.
func (s *SessionService) StartNew(ctx context.Context, userID, appID string) (*models.Session, error) {
	if userID == "" || appID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id and app id are required")
	}
	start := time.Now()
	session, err := s.sessions.Create(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	s.observeStore("session_create", start)
	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("user_id", userID))
	return session, nil
}

// Continue resolves the session a returning caller should pick up: the
// explicitly requested one when it exists and belongs to the user, otherwise
// the most recent session, otherwise a brand-new one.
func (s *SessionService) Continue(ctx context.Context, userID, appID, sessionID string) (*models.Session, error) {
	if sessionID != "" {
		start := time.Now()
		session, err := s.sessions.Load(ctx, sessionID)
		switch {
		case err == nil:
			s.observeStore("session_load", start)
			if session.UserID == userID && session.AppID == appID {
				return session, nil
			}
			// Requested session belongs to someone else; treat it as unknown
			// and fall back rather than leaking its existence.
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}
	}
	return s.GetOrCreate(ctx, userID, appID)
}

// Load fetches one session by identifier.
func (s *SessionService) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	start := time.Now()
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", sessionID))
		}
		return nil, err
	}
	s.observeStore("session_load", start)
	return session, nil
}

// UpdateState merges a partial update into the stored state and persists the
// result. Keys absent from the patch survive untouched; the merge happens on
// a copy so a failed save leaves nothing half-applied.
func (s *SessionService) UpdateState(ctx context.Context, sessionID string, patch models.State) (*models.Session, error) {
	if len(patch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "state patch must not be empty")
	}
	session, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.State = session.State.Merge(patch)
	start := time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", sessionID))
		}
		return nil, err
	}
	s.observeStore("session_save", start)
	return session, nil
}

// ListForUser returns a user's sessions ordered by creation time, most
// recent last.
func (s *SessionService) ListForUser(ctx context.Context, userID, appID string) ([]models.Session, error) {
	if userID == "" || appID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id and app id are required")
	}
	start := time.Now()
	sessions, err := s.sessions.ListForUser(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	s.observeStore("session_list", start)
	return sessions, nil
}

// Summaries projects each of the user's sessions onto the well-known state
// keys consumed by the listing surface.
func (s *SessionService) Summaries(ctx context.Context, userID, appID string) ([]models.SessionSummary, error) {
	sessions, err := s.ListForUser(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.SessionSummary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, summarize(&sessions[i]))
	}
	return summaries, nil
}

func summarize(session *models.Session) models.SessionSummary {
	return models.SessionSummary{
		SessionID:        session.ID,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
		UserName:         stateString(session.State, "user_name"),
		UserRole:         stateString(session.State, "user_role"),
		SessionCount:     stateInt(session.State, "session_count"),
		AttendanceCount:  stateLen(session.State, "attendance_records"),
		InteractionCount: stateLen(session.State, "interaction_history"),
		Preferences:      stateMap(session.State, "preferences"),
	}
}

func stateString(state models.State, key string) string {
	if v, ok := state[key].(string); ok {
		return v
	}
	return ""
}

func stateInt(state models.State, key string) int {
	switch v := state[key].(type) {
	case int:
		return v
	case float64:
		// JSON round trips all numbers as float64.
		return int(v)
	default:
		return 0
	}
}

func stateLen(state models.State, key string) int {
	switch v := state[key].(type) {
	case map[string]interface{}:
		return len(v)
	case []interface{}:
		return len(v)
	default:
		return 0
	}
}

func stateMap(state models.State, key string) map[string]interface{} {
	if v, ok := state[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
