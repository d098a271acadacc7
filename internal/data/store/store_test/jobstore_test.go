package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/redisStore"
	"github.com/akolanti/irbench/internal/data/store"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewStore(client)
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr, internalStore := newTestStore(t)
	jobStore := store.NewRedisJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:     jobID,
		Kind:   jobModel.JobKindBuild,
		Status: jobModel.JobStatusRunning,
		Params: jobModel.JobParams{Variant: "paragraph", Category: "lesson_plan"},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		require.NoError(t, jobStore.SaveJob(ctx, testJob))

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		require.True(t, found, "Job was saved but not found in Redis")
		assert.Equal(t, testJob.Params, retrievedJob.Params)
		assert.Equal(t, jobModel.JobKindBuild, retrievedJob.Kind)
		assert.True(t, mr.TTL("job:"+jobID) > 0)
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		assert.False(t, found)
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		assert.False(t, mr.Exists("job:"+jobID), "Job still exists in Redis after DeleteJob call")
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	_, internalStore := newTestStore(t)
	jobStore := store.NewRedisJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	_, found := jobStore.GetJob(ctx, "race-job")
	assert.True(t, found)
}

func TestEventStores_CapAndOrder(t *testing.T) {
	_, internalStore := newTestStore(t)
	stores := map[string]jobModel.EventStore{
		"redis":    store.NewRedisEventStore(internalStore),
		"inmemory": store.InitInMemoryEventStore(),
	}
	ctx := context.Background()

	for name, events := range stores {
		t.Run(name, func(t *testing.T) {
			total := config.EventStoreMaxLen + 5
			for i := 0; i < total; i++ {
				require.NoError(t, events.AppendEvent(ctx, "job-1", fmt.Sprintf("event %d", i)))
			}

			got, err := events.RecentEvents(ctx, "job-1")
			require.NoError(t, err)
			require.Len(t, got, config.EventStoreMaxLen)
			assert.Equal(t, "event 5", got[0])
			assert.Equal(t, fmt.Sprintf("event %d", total-1), got[len(got)-1])

			empty, err := events.RecentEvents(ctx, "unknown")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestInMemoryJobStore(t *testing.T) {
	s := store.InitInMemoryJobStore()
	ctx := context.Background()

	require.NoError(t, s.SaveJob(ctx, jobModel.Job{Id: "a", Status: jobModel.JobStatusQueued}))
	got, found := s.GetJob(ctx, "a")
	require.True(t, found)
	assert.Equal(t, jobModel.JobStatusQueued, got.Status)

	s.DeleteJob(ctx, "a")
	_, found = s.GetJob(ctx, "a")
	assert.False(t, found)
}

func TestInMemoryJobStore_ExpiresFinishedJobs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := store.NewInMemoryJobStore(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, s.SaveJob(ctx, jobModel.Job{Id: "done", Status: jobModel.JobStatusComplete, EndTime: now}))
	require.NoError(t, s.SaveJob(ctx, jobModel.Job{Id: "running", Status: jobModel.JobStatusRunning}))

	now = now.Add(2 * time.Hour)
	_, found := s.GetJob(ctx, "done")
	assert.False(t, found)
	_, found = s.GetJob(ctx, "running")
	assert.True(t, found)
}

func TestInMemoryJobStore_CopiesResult(t *testing.T) {
	s := store.InitInMemoryJobStore()
	ctx := context.Background()

	counts := map[string]int{"documents": 10}
	require.NoError(t, s.SaveJob(ctx, jobModel.Job{Id: "b", Result: jobModel.JobResult{Counts: counts}}))
	counts["documents"] = 99

	got, _ := s.GetJob(ctx, "b")
	assert.Equal(t, 10, got.Result.Counts["documents"])
	got.Result.Counts["documents"] = 7

	again, _ := s.GetJob(ctx, "b")
	assert.Equal(t, 10, again.Result.Counts["documents"])
}

func TestRedisEmbeddingCache(t *testing.T) {
	_, internalStore := newTestStore(t)
	cache := store.NewRedisEmbeddingCache(internalStore)
	ctx := context.Background()

	vec := []float32{0.25, -1.5, 3}
	require.NoError(t, cache.Put(ctx, "bge-m3", "什么是光合作用", vec))

	got, err := cache.GetMany(ctx, "bge-m3", []string{"什么是光合作用", "miss"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, vec, got[0])
	assert.Nil(t, got[1])

	other, err := cache.GetMany(ctx, "other-model", []string{"什么是光合作用"})
	require.NoError(t, err)
	assert.Nil(t, other[0])
}
