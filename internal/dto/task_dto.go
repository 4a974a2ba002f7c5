package dto

import "time"

type TaskResult struct {
	StoreKey string `json:"store_key"`
	Rows     int    `json:"rows"`
}

type TaskResponse struct {
	Id        string      `json:"id"`
	Kind      string      `json:"kind"`
	Status    string      `json:"status"`
	Progress  int         `json:"progress"`
	Result    *TaskResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
