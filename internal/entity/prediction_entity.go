package entity

import (
	"time"

	"github.com/google/uuid"
)

type Prediction struct {
	Id             uuid.UUID
	SessionId      string
	Model          string
	Label          string
	Confidence     float64
	StoreKey       string
	NeighborsUsed  int
	NeighborIds    []string
	Reason         string
	Query          string
	Features       map[string]float64
	QueryEmbedding []float32
	CreatedAt      time.Time
}
