package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// PredictionLog is one served classification. QueryEmbedding is null on the tabular path;
// its dimension follows the configured embedding provider.
type PredictionLog struct {
	Id             uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId      string                      `gorm:"type:varchar(64);index"`
	Model          string                      `gorm:"type:varchar(32);not null;index"`
	Label          string                      `gorm:"type:varchar(20);not null"`
	Confidence     float64                     `gorm:"not null;default:0"`
	StoreKey       string                      `gorm:"type:varchar(128)"`
	NeighborsUsed  int                         `gorm:"default:0"`
	NeighborIds    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Reason         string                      `gorm:"type:text"`
	Query          string                      `gorm:"type:text;not null"`
	Features       datatypes.JSON              `gorm:"type:jsonb"`
	QueryEmbedding *pgvector.Vector            `gorm:"type:vector"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime;index"`
}

func (PredictionLog) TableName() string {
	return "prediction_logs"
}
