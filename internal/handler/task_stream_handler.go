package handler

import (
	"context"
	"encoding/json"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/service"
	internalWS "exoplanet-classifier-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// TaskStreamHandler pushes build task progress over a websocket.
type TaskStreamHandler struct {
	tasks  service.ITaskService
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewTaskStreamHandler(tasks service.ITaskService, hub *internalWS.Hub, log logger.ILogger) *TaskStreamHandler {
	return &TaskStreamHandler{
		tasks:  tasks,
		hub:    hub,
		logger: log,
	}
}

// ServeWs sends the current task snapshot, then every update until the task ends.
// Unknown tasks are rejected before the upgrade.
func (h *TaskStreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	taskID := c.Params("id")
	if _, err := h.tasks.Get(c.Context(), taskID); err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Debug(constant.LogModuleTask, "Task stream opened", map[string]interface{}{"task_id": taskID})
		internalWS.ServeWs(h.hub, conn, taskID, h.snapshot(taskID))
		h.logger.Debug(constant.LogModuleTask, "Task stream closed", map[string]interface{}{"task_id": taskID})
	})(c)
}

func (h *TaskStreamHandler) snapshot(taskID string) internalWS.Snapshot {
	return func() ([]byte, bool) {
		task, err := h.tasks.Get(context.Background(), taskID)
		if err != nil {
			h.logger.Warn(constant.LogModuleTask, "Task snapshot failed", map[string]interface{}{"task_id": taskID, "error": err.Error()})
			return nil, false
		}
		data, err := json.Marshal(map[string]interface{}{"type": "task", "data": task})
		if err != nil {
			return nil, false
		}
		return data, constant.TaskStatus(task.Status).Terminal()
	}
}

func (h *TaskStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/task/v1/:id/ws", h.ServeWs)
}
