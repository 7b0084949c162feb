package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmarajkore/sahayak-store/internal/models"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
)

type fakeSessionStore struct {
	sessions map[string]*models.Session
	nextID   int
	saveErr  error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessionStore) Create(_ context.Context, userID, appID string) (*models.Session, error) {
	f.nextID++
	now := time.Now().UTC()
	session := &models.Session{
		ID:        fmt.Sprintf("sess-%03d", f.nextID),
		UserID:    userID,
		AppID:     appID,
		CreatedAt: now,
		UpdatedAt: now,
		State:     models.DefaultState(),
	}
	f.sessions[session.ID] = session
	return cloneSession(session), nil
}

func (f *fakeSessionStore) GetOrCreate(ctx context.Context, userID, appID string) (*models.Session, error) {
	var latest *models.Session
	for _, s := range f.sessions {
		if s.UserID != userID || s.AppID != appID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) || (s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest != nil {
		return cloneSession(latest), nil
	}
	return f.Create(ctx, userID, appID)
}

func (f *fakeSessionStore) Load(_ context.Context, sessionID string) (*models.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("load session %s: %w", sessionID, sql.ErrNoRows)
	}
	return cloneSession(session), nil
}

func (f *fakeSessionStore) Save(_ context.Context, session *models.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	existing, ok := f.sessions[session.ID]
	if !ok {
		return fmt.Errorf("save session %s: %w", session.ID, sql.ErrNoRows)
	}
	existing.State = session.State.Clone()
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeSessionStore) ListForUser(_ context.Context, userID, appID string) ([]models.Session, error) {
	out := []models.Session{}
	for _, s := range f.sessions {
		if s.UserID == userID && s.AppID == appID {
			out = append(out, *cloneSession(s))
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) || (out[j].CreatedAt.Equal(out[i].CreatedAt) && out[j].ID < out[i].ID) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func cloneSession(s *models.Session) *models.Session {
	copied := *s
	copied.State = s.State.Clone()
	return &copied
}

func TestSessionServiceGetOrCreateSeedsDefaultState(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	session, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	assert.Equal(t, "teacher_001", session.UserID)
	assert.Equal(t, models.DefaultState(), session.State)
}

func TestSessionServiceGetOrCreateReturnsSameSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	first, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	second, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, store.sessions, 1)
}

func TestSessionServiceStartNewKeepsHistory(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	first, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	fresh, err := svc.StartNew(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)

	sessions, err := svc.ListForUser(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSessionServiceRejectsEmptyIdentifiers(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil)

	_, err := svc.GetOrCreate(context.Background(), "", "sahayak")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.StartNew(context.Background(), "teacher_001", "")
	require.Error(t, err)
}

func TestSessionServiceUpdateStateMergesAndPersists(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	session, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)

	updated, err := svc.UpdateState(context.Background(), session.ID, models.State{
		"user_name":     "Ms. Sharma",
		"session_count": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ms. Sharma", updated.State["user_name"])
	assert.Equal(t, 1, updated.State["session_count"])
	// Untouched keys carry over from the default state.
	assert.Contains(t, updated.State, "preferences")

	reloaded, err := svc.Load(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ms. Sharma", reloaded.State["user_name"])
}

func TestSessionServiceUpdateStateReplacesNestedMapsWholesale(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	session, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)

	updated, err := svc.UpdateState(context.Background(), session.ID, models.State{
		"preferences": map[string]interface{}{"language": "hindi"},
	})
	require.NoError(t, err)
	prefs, ok := updated.State["preferences"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"language": "hindi"}, prefs)
}

func TestSessionServiceUpdateStateRejectsEmptyPatch(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil)

	_, err := svc.UpdateState(context.Background(), "sess-001", models.State{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceUpdateStateUnknownSession(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil)

	_, err := svc.UpdateState(context.Background(), "missing", models.State{"user_name": "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceLoadUnknownSession(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil)

	_, err := svc.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceContinuePrefersExplicitSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	first, err := svc.StartNew(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	_, err = svc.StartNew(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)

	session, err := svc.Continue(context.Background(), "teacher_001", "sahayak", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, session.ID)
}

func TestSessionServiceContinueFallsBackOnUnknownSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	existing, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)

	session, err := svc.Continue(context.Background(), "teacher_001", "sahayak", "missing")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, session.ID)
}

func TestSessionServiceContinueIgnoresForeignSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	foreign, err := svc.GetOrCreate(context.Background(), "teacher_002", "sahayak")
	require.NoError(t, err)

	session, err := svc.Continue(context.Background(), "teacher_001", "sahayak", foreign.ID)
	require.NoError(t, err)
	assert.NotEqual(t, foreign.ID, session.ID)
	assert.Equal(t, "teacher_001", session.UserID)
}

func TestSessionServiceSummariesProjectState(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store, nil, nil)

	session, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	_, err = svc.UpdateState(context.Background(), session.ID, models.State{
		"user_name":     "Ms. Sharma",
		"user_role":     "teacher",
		"session_count": float64(3),
		"attendance_records": map[string]interface{}{
			"STU001_Math_2024-01-15": map[string]interface{}{"status": "present"},
		},
		"interaction_history": []interface{}{"hello", "mark attendance"},
	})
	require.NoError(t, err)

	summaries, err := svc.Summaries(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	summary := summaries[0]
	assert.Equal(t, session.ID, summary.SessionID)
	assert.Equal(t, "Ms. Sharma", summary.UserName)
	assert.Equal(t, "teacher", summary.UserRole)
	assert.Equal(t, 3, summary.SessionCount)
	assert.Equal(t, 1, summary.AttendanceCount)
	assert.Equal(t, 2, summary.InteractionCount)
	assert.NotNil(t, summary.Preferences)
}

func TestSessionServiceSummariesEmptyForUnknownUser(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore(), nil, nil)

	summaries, err := svc.Summaries(context.Background(), "nobody", "sahayak")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSessionServiceObservesStoreOperations(t *testing.T) {
	store := newFakeSessionStore()
	observer := &recordingObserver{}
	svc := NewSessionService(store, observer, nil)

	session, err := svc.GetOrCreate(context.Background(), "teacher_001", "sahayak")
	require.NoError(t, err)
	_, err = svc.UpdateState(context.Background(), session.ID, models.State{"user_name": "Ms. Sharma"})
	require.NoError(t, err)

	assert.Equal(t, []string{"session_get_or_create", "session_load", "session_save"}, observer.operations)
}
