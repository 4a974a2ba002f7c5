package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to REDIS_TEST_URL and skips when it is unset.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestTaskRepositoryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	rdb := newTestClient(t)
	// two repositories on one server stand in for two instances
	a := NewTaskRepository(rdb, time.Minute)
	b := NewTaskRepository(rdb, time.Minute)

	id := uuid.NewString()
	require.NoError(t, a.Save(ctx, &entity.Task{Id: id, Status: constant.TaskStatusRunning}))
	t.Cleanup(func() { _ = a.Delete(context.Background(), id) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, repo := range []contract.TaskRepository{a, b} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Update(ctx, id, func(task *entity.Task) bool {
					task.Progress++
					return true
				})
				assert.NoError(t, err)
			}()
		}
	}
	_, err := b.Update(ctx, id, func(task *entity.Task) bool {
		task.Status = constant.TaskStatusCancelled
		return true
	})
	require.NoError(t, err)
	wg.Wait()

	got, err := a.FindById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Progress)
	assert.Equal(t, constant.TaskStatusCancelled, got.Status)
}

func TestTaskRepositoryUpdateUnknown(t *testing.T) {
	rdb := newTestClient(t)
	repo := NewTaskRepository(rdb, time.Minute)
	got, err := repo.Update(context.Background(), uuid.NewString(), func(*entity.Task) bool { return true })
	require.NoError(t, err)
	assert.Nil(t, got)
}
