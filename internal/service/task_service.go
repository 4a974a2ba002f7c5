package service

import (
	"context"
	"fmt"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/pkg/logger"
)

// BuildMessage is the payload on the build topic. Rows are read by the worker,
// from the base dataset or from the persisted session dataset.
type BuildMessage struct {
	TaskId    string `json:"task_id"`
	Kind      string `json:"kind"`
	SessionId string `json:"session_id,omitempty"`
}

type ITaskService interface {
	SubmitBuild(ctx context.Context, kind, sessionID string) (*dto.TaskResponse, error)
	Get(ctx context.Context, id string) (*dto.TaskResponse, error)
	Cancel(ctx context.Context, id string) (*dto.TaskResponse, error)
}

type taskService struct {
	tracker   *TaskTracker
	publisher IPublisherService
	log       logger.ILogger
}

func NewTaskService(tracker *TaskTracker, publisher IPublisherService, log logger.ILogger) ITaskService {
	return &taskService{tracker: tracker, publisher: publisher, log: log}
}

func (s *taskService) SubmitBuild(ctx context.Context, kind, sessionID string) (*dto.TaskResponse, error) {
	switch kind {
	case constant.TaskKindBuildDefault:
		sessionID = ""
	case constant.TaskKindBuildSession:
		if sessionID == "" {
			return nil, fmt.Errorf("session build needs a session id")
		}
	default:
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}

	task, err := s.tracker.Create(ctx, kind, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, BuildMessage{TaskId: task.Id, Kind: kind, SessionId: sessionID}); err != nil {
		_, _ = s.tracker.Update(ctx, task.Id, func(t *entity.Task) {
			t.Status = constant.TaskStatusFailed
			t.Error = "could not queue build: " + err.Error()
		})
		return nil, fmt.Errorf("publish build task: %w", err)
	}

	s.log.Info(constant.LogModuleTask, "Build task queued", map[string]interface{}{
		"task_id":    task.Id,
		"kind":       kind,
		"session_id": sessionID,
	})
	res := ToTaskResponse(task)
	return &res, nil
}

func (s *taskService) Get(ctx context.Context, id string) (*dto.TaskResponse, error) {
	task, err := s.tracker.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := ToTaskResponse(task)
	return &res, nil
}

func (s *taskService) Cancel(ctx context.Context, id string) (*dto.TaskResponse, error) {
	task, err := s.tracker.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	res := ToTaskResponse(task)
	return &res, nil
}
