package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/pkg/exo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryEvictsOldest(t *testing.T) {
	var mu sync.Mutex
	var evicted []string
	done := make(chan struct{}, 4)
	repo := NewSessionRepository(2, time.Hour, func(id string) {
		mu.Lock()
		evicted = append(evicted, id)
		mu.Unlock()
		done <- struct{}{}
	})

	a := repo.GetOrCreate("a")
	repo.GetOrCreate("b")
	assert.Same(t, a, repo.GetOrCreate("a"))

	repo.GetOrCreate("c")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction callback not called")
	}

	mu.Lock()
	assert.Equal(t, []string{"b"}, evicted)
	mu.Unlock()
	_, ok := repo.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, repo.Len())
}

func TestSessionIsolation(t *testing.T) {
	repo := NewSessionRepository(10, time.Hour, nil)
	a := repo.GetOrCreate("a")
	b := repo.GetOrCreate("b")

	added, dups := a.AddRows([]exo.Row{{ID: "1"}, {ID: "1"}, {ID: "2"}})
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, dups)
	a.HeldOut.Add("1")

	assert.Equal(t, 0, b.Len())
	assert.False(t, b.HeldOut.Contains("1"))

	a.Clear()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, a.HeldOut.Len())
}

func TestTaskRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(time.Minute)

	task := &entity.Task{Id: "t1", Status: constant.TaskStatusQueued}
	require.NoError(t, repo.Save(ctx, task))
	task.Status = constant.TaskStatusRunning

	got, err := repo.FindById(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusQueued, got.Status)

	missing, err := repo.FindById(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Delete(ctx, "t1"))
	got, _ = repo.FindById(ctx, "t1")
	assert.Nil(t, got)
}

func TestTaskRepositoryUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(time.Minute)
	require.NoError(t, repo.Save(ctx, &entity.Task{Id: "t1"}))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "t1", func(task *entity.Task) bool {
				task.Progress++
				return true
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.FindById(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
}

func TestTaskRepositoryUpdateSkipsWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(time.Minute)
	require.NoError(t, repo.Save(ctx, &entity.Task{Id: "t1", Status: constant.TaskStatusQueued}))

	got, err := repo.Update(ctx, "t1", func(task *entity.Task) bool {
		task.Status = constant.TaskStatusRunning
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusQueued, got.Status)

	stored, err := repo.FindById(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusQueued, stored.Status)

	missing, err := repo.Update(ctx, "nope", func(*entity.Task) bool { return true })
	require.NoError(t, err)
	assert.Nil(t, missing)
}
