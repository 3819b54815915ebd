package repo

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	"github.com/blogflow/server/pkg/sqldb"
)

func newRedisStore(t *testing.T) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStateStore(rdb, time.Hour), mr
}

func newSQLiteStore(t *testing.T) *SQLStateStore {
	t.Helper()
	db, err := sql.Open(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLStateStore(context.Background(), db, sqldb.DriverSQLite)
	require.NoError(t, err)
	return s
}

func stores(t *testing.T) map[string]model.StateStore {
	rs, _ := newRedisStore(t)
	return map[string]model.StateStore{
		"memory": NewMemoryStateStore(),
		"redis":  rs,
		"sqlite": newSQLiteStore(t),
	}
}

func sampleState(runID string) *model.WorkflowState {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := model.NewWorkflowState(runID, "What is AI?", now)
	s.Queries = []string{"definition of AI"}
	s.AppendResults(
		model.SourceResult{Source: model.SourceWeb, Query: "definition of AI",
			Content: model.ItemsContent([]model.ContentItem{{Title: "AI", URL: "https://x", Snippet: "s"}})},
		model.SourceResult{Source: model.SourceEncyclopedia, Query: "definition of AI", Error: "Wikipedia unavailable"},
	)
	return s
}

func TestStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := sampleState("run-" + name)
			require.NoError(t, store.Save(ctx, s))
			assert.Equal(t, int64(1), s.Version)

			got, err := store.Load(ctx, s.RunID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.Version)
			assert.Equal(t, s.Question, got.Question)
			assert.Equal(t, s.CombineResults, got.CombineResults)
			assert.True(t, s.CreatedAt.Equal(got.CreatedAt))

			got.Phase = model.PhaseRetrieve
			require.NoError(t, store.Save(ctx, got))
			assert.Equal(t, int64(2), got.Version)

			again, err := store.Load(ctx, s.RunID)
			require.NoError(t, err)
			assert.Equal(t, model.PhaseRetrieve, again.Phase)
			assert.Equal(t, int64(2), again.Version)
		})
	}
}

func TestStateStore_NotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "missing")
			assert.ErrorIs(t, err, errx.ErrRunNotFound)
			assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
		})
	}
}

func TestStateStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := sampleState("conflict-" + name)
			require.NoError(t, store.Save(ctx, s))

			// creating the same run twice fails
			dup := sampleState(s.RunID)
			assert.ErrorIs(t, store.Save(ctx, dup), errx.ErrVersionConflict)

			a, err := store.Load(ctx, s.RunID)
			require.NoError(t, err)
			b, err := store.Load(ctx, s.RunID)
			require.NoError(t, err)

			require.NoError(t, store.Save(ctx, a))
			err = store.Save(ctx, b)
			assert.ErrorIs(t, err, errx.ErrVersionConflict)
			assert.Equal(t, http.StatusConflict, errx.StatusOf(err))
			assert.Equal(t, int64(1), b.Version)
		})
	}
}

func TestStateStore_ConcurrentSavesOneWins(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := sampleState("race-" + name)
			require.NoError(t, store.Save(ctx, s))

			const n = 8
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				cp := s.Clone()
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = store.Save(ctx, cp)
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
				} else {
					assert.ErrorIs(t, err, errx.ErrVersionConflict)
				}
			}
			assert.Equal(t, 1, wins)
		})
	}
}

func TestStateStore_Delete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := sampleState("delete-" + name)
			require.NoError(t, store.Save(ctx, s))
			require.NoError(t, store.Delete(ctx, s.RunID))
			require.NoError(t, store.Delete(ctx, s.RunID))

			_, err := store.Load(ctx, s.RunID)
			assert.ErrorIs(t, err, errx.ErrRunNotFound)
		})
	}
}

func TestRedisStateStore_TTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := sampleState("ttl")
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, time.Hour, mr.TTL("blogflow:run:ttl"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(ctx, "ttl")
	assert.ErrorIs(t, err, errx.ErrRunNotFound)
}

func TestMemoryStateStore_IsolatesCallers(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	s := sampleState("iso")
	require.NoError(t, store.Save(ctx, s))
	s.Queries[0] = "mutated"

	got, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "definition of AI", got.Queries[0])
}

func TestSQLStateStore_PostgresPlaceholders(t *testing.T) {
	s := &SQLStateStore{sb: statementBuilder(sqldb.DriverPostgres)}

	query, args, err := s.loadStatement("run-1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT state FROM workflow_runs WHERE run_id = $1", query)
	assert.Equal(t, []any{"run-1"}, args)

	state := sampleState("run-1")
	query, args, err = s.saveStatement(state)
	require.NoError(t, err)
	assert.Contains(t, query, "VALUES ($1,$2,$3,$4,$5,$6)")
	assert.Contains(t, query, "ON CONFLICT (run_id) DO NOTHING")
	assert.NotContains(t, query, "?")
	require.Len(t, args, 6)
	assert.Equal(t, int64(1), args[1])

	state.Version = 3
	query, args, err = s.saveStatement(state)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, "UPDATE workflow_runs SET version = $1"))
	assert.Contains(t, query, "run_id = $5")
	assert.Contains(t, query, "version = $6")
	assert.NotContains(t, query, "?")
	require.Len(t, args, 6)
	assert.Equal(t, int64(4), args[0])
	assert.Equal(t, int64(3), args[5])
	assert.Equal(t, int64(3), state.Version)
}

func TestSQLStateStore_SQLitePlaceholders(t *testing.T) {
	s := &SQLStateStore{sb: statementBuilder(sqldb.DriverSQLite)}
	query, _, err := s.loadStatement("run-1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT state FROM workflow_runs WHERE run_id = ?", query)
}
