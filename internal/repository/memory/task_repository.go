package memory

import (
	"context"
	"sync"
	"time"

	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type TaskRepository struct {
	mu    sync.Mutex // serializes Update
	cache *cache.Cache
}

// NewTaskRepository keeps tasks for ttl after their last update, purging every 10 minutes.
func NewTaskRepository(ttl time.Duration) contract.TaskRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TaskRepository{cache: cache.New(ttl, 10*time.Minute)}
}

func (r *TaskRepository) Save(_ context.Context, task *entity.Task) error {
	cp := *task
	r.cache.Set(task.Id, &cp, cache.DefaultExpiration)
	return nil
}

func (r *TaskRepository) FindById(_ context.Context, id string) (*entity.Task, error) {
	if x, found := r.cache.Get(id); found {
		cp := *x.(*entity.Task)
		return &cp, nil
	}
	return nil, nil
}

func (r *TaskRepository) Update(_ context.Context, id string, fn func(task *entity.Task) bool) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(id)
	if !found {
		return nil, nil
	}
	stored := *x.(*entity.Task)
	cp := stored
	if !fn(&cp) {
		return &stored, nil
	}
	updated := cp
	r.cache.Set(id, &updated, cache.DefaultExpiration)
	return &cp, nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}
