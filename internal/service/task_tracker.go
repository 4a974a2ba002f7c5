package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/repository/contract"

	"github.com/google/uuid"
)

// TaskNotifier receives every task change, e.g. the websocket hub.
type TaskNotifier interface {
	NotifyTask(task dto.TaskResponse)
}

// TaskTracker owns task state transitions. Progress never decreases and terminal tasks
// never change again.
type TaskTracker struct {
	repo     contract.TaskRepository
	notifier TaskNotifier
	log      logger.ILogger

	mu      sync.Mutex // guards cancels
	cancels map[string]context.CancelFunc
}

func NewTaskTracker(repo contract.TaskRepository, notifier TaskNotifier, log logger.ILogger) *TaskTracker {
	return &TaskTracker{
		repo:     repo,
		notifier: notifier,
		log:      log,
		cancels:  make(map[string]context.CancelFunc),
	}
}

func (t *TaskTracker) Create(ctx context.Context, kind, sessionID string) (*entity.Task, error) {
	now := time.Now().UTC()
	task := &entity.Task{
		Id:        uuid.NewString(),
		Kind:      kind,
		SessionId: sessionID,
		Status:    constant.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	t.notify(task)
	return task, nil
}

func (t *TaskTracker) Get(ctx context.Context, id string) (*entity.Task, error) {
	task, err := t.repo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, serverutils.ErrNotFound)
	}
	return task, nil
}

// Update applies fn to a non-terminal task and persists it. A terminal task is returned unchanged.
func (t *TaskTracker) Update(ctx context.Context, id string, fn func(task *entity.Task)) (*entity.Task, error) {
	return t.update(ctx, id, func(task *entity.Task) bool {
		fn(task)
		return true
	})
}

// update runs fn through the repository's atomic update, so writers on other instances
// cannot interleave. fn returning false leaves the task as it is.
func (t *TaskTracker) update(ctx context.Context, id string, fn func(task *entity.Task) bool) (*entity.Task, error) {
	var changed bool
	task, err := t.repo.Update(ctx, id, func(task *entity.Task) bool {
		changed = false
		if task.Status.Terminal() {
			return false
		}
		before := task.Progress
		if !fn(task) {
			return false
		}
		if task.Progress < before {
			task.Progress = before
		}
		if task.Progress > 100 {
			task.Progress = 100
		}
		task.UpdatedAt = time.Now().UTC()
		changed = true
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, serverutils.ErrNotFound)
	}
	if changed {
		t.notify(task)
	}
	return task, nil
}

// Progress records a build percentage.
func (t *TaskTracker) Progress(ctx context.Context, id string, percent int) (*entity.Task, error) {
	return t.Update(ctx, id, func(task *entity.Task) {
		task.Progress = percent
	})
}

// Attach remembers the cancel func of a running task.
func (t *TaskTracker) Attach(id string, cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancels[id] = cancel
	t.mu.Unlock()
}

func (t *TaskTracker) Detach(id string) {
	t.mu.Lock()
	delete(t.cancels, id)
	t.mu.Unlock()
}

// Abort cancels the context of a task running on this instance, if any.
func (t *TaskTracker) Abort(id string) {
	t.mu.Lock()
	cancel, ok := t.cancels[id]
	t.mu.Unlock()
	if ok {
		cancel()
	}
}

// Cancel marks a queued or running task cancelled and aborts it when it runs here.
// A committing task is past the point of cancellation and is returned unchanged.
func (t *TaskTracker) Cancel(ctx context.Context, id string) (*entity.Task, error) {
	task, err := t.update(ctx, id, func(task *entity.Task) bool {
		if task.Committing {
			return false
		}
		task.Status = constant.TaskStatusCancelled
		task.Error = "cancelled by request"
		return true
	})
	if err != nil {
		return nil, err
	}

	if task.Status == constant.TaskStatusCancelled {
		t.Abort(id)
	}
	t.log.Info(constant.LogModuleTask, "Task cancel requested", map[string]interface{}{"task_id": id, "status": string(task.Status)})
	return task, nil
}

// Commit marks a running task as installing its result. It reports false when the task
// is no longer running, e.g. because it was cancelled while building.
func (t *TaskTracker) Commit(ctx context.Context, id string) (bool, error) {
	var committed bool
	_, err := t.update(ctx, id, func(task *entity.Task) bool {
		committed = task.Status == constant.TaskStatusRunning
		if !committed || task.Committing {
			return false
		}
		task.Committing = true
		return true
	})
	if err != nil {
		return false, err
	}
	return committed, nil
}

func (t *TaskTracker) notify(task *entity.Task) {
	if t.notifier != nil {
		t.notifier.NotifyTask(ToTaskResponse(task))
	}
}

func ToTaskResponse(task *entity.Task) dto.TaskResponse {
	res := dto.TaskResponse{
		Id:        task.Id,
		Kind:      task.Kind,
		Status:    string(task.Status),
		Progress:  task.Progress,
		Error:     task.Error,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
	if task.Result != nil {
		res.Result = &dto.TaskResult{StoreKey: task.Result.StoreKey, Rows: task.Result.Rows}
	}
	return res
}
