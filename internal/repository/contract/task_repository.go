package contract

import (
	"context"

	"exoplanet-classifier-be/internal/entity"
)

// TaskRepository stores build task status. FindById returns nil, nil for unknown ids.
type TaskRepository interface {
	Save(ctx context.Context, task *entity.Task) error
	FindById(ctx context.Context, id string) (*entity.Task, error)
	// Update reads the task, applies fn and saves the result when fn returns true, as one
	// atomic step across all writers. fn may run more than once. It returns the stored task,
	// or nil, nil for unknown ids.
	Update(ctx context.Context, id string, fn func(task *entity.Task) bool) (*entity.Task, error)
	Delete(ctx context.Context, id string) error
}
