package entity

import (
	"time"

	"exoplanet-classifier-be/internal/constant"
)

type TaskResult struct {
	StoreKey string `json:"store_key"`
	Rows     int    `json:"rows"`
}

// Task tracks one background vector-store build. A committing task is installing its
// bundle and can no longer be cancelled.
type Task struct {
	Id         string              `json:"id"`
	Kind       string              `json:"kind"`
	SessionId  string              `json:"session_id,omitempty"`
	Status     constant.TaskStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Committing bool                `json:"committing,omitempty"`
	Result     *TaskResult         `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}
