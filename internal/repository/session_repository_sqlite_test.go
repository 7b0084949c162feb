package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmarajkore/sahayak-store/pkg/config"
	"github.com/padmarajkore/sahayak-store/pkg/database"
)

func newSQLiteSessionRepo(t *testing.T) *SessionRepository {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "store.db"),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(db)
}

func TestSessionRepositoryConcurrentGetOrCreateYieldsOneRow(t *testing.T) {
	repo := newSQLiteSessionRepo(t)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := repo.GetOrCreate(context.Background(), "alice", "sahayak")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = session.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, ids[0], ids[i], "every caller must observe the same session")
	}

	sessions, err := repo.ListForUser(context.Background(), "alice", "sahayak")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionRepositoryGetOrCreateRoundTrip(t *testing.T) {
	repo := newSQLiteSessionRepo(t)

	created, err := repo.GetOrCreate(context.Background(), "alice", "sahayak")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	loaded, err := repo.Load(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "alice", loaded.UserID)
	assert.Contains(t, loaded.State, "preferences")

	loaded.State["user_name"] = "Alice"
	require.NoError(t, repo.Save(context.Background(), loaded))

	reloaded, err := repo.Load(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", reloaded.State["user_name"])
}
