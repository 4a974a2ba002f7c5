package dto

import (
	"time"

	"github.com/google/uuid"
)

type PredictionResponse struct {
	Id            uuid.UUID `json:"id"`
	SessionId     string    `json:"session_id,omitempty"`
	Model         string    `json:"model"`
	Prediction    string    `json:"prediction"`
	Confidence    float64   `json:"confidence"`
	Store         string    `json:"store,omitempty"`
	NeighborsUsed int       `json:"neighbors_used"`
	Reason        string    `json:"reason,omitempty"`
	Query         string    `json:"query"`
	CreatedAt     time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	DefaultStore   bool   `json:"default_store"`
	DefaultRows    int    `json:"default_rows"`
	TabularLoaded  bool   `json:"tabular_loaded"`
	EmbeddingModel string `json:"embedding_model"`
	PredictionLog  bool   `json:"prediction_log"`
}
