package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	taskKeyPrefix = "exo:task:"
	// optimistic update attempts before giving up on a contended task
	maxUpdateAttempts = 16
)

// TaskRepository shares task status between instances through redis.
type TaskRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTaskRepository(rdb *redis.Client, ttl time.Duration) contract.TaskRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TaskRepository{rdb: rdb, ttl: ttl}
}

func (r *TaskRepository) Save(ctx context.Context, task *entity.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, taskKeyPrefix+task.Id, data, r.ttl).Err()
}

func (r *TaskRepository) FindById(ctx context.Context, id string) (*entity.Task, error) {
	data, err := r.rdb.Get(ctx, taskKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task entity.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update is a compare-and-set: the key is WATCHed while fn runs and the write is
// dropped and retried when another instance changed the task in between.
func (r *TaskRepository) Update(ctx context.Context, id string, fn func(task *entity.Task) bool) (*entity.Task, error) {
	key := taskKeyPrefix + id
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var result *entity.Task
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			var task entity.Task
			if err := json.Unmarshal(data, &task); err != nil {
				return err
			}
			cp := task
			if !fn(&cp) {
				result = &task
				return nil
			}
			updated, err := json.Marshal(&cp)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, r.ttl)
				return nil
			})
			if err == nil {
				result = &cp
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("task %s: update contended %d times", id, maxUpdateAttempts)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, taskKeyPrefix+id).Err()
}
