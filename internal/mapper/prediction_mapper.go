package mapper

import (
	"encoding/json"

	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type PredictionMapper struct{}

func NewPredictionMapper() *PredictionMapper {
	return &PredictionMapper{}
}

func (m *PredictionMapper) ToEntity(p *model.PredictionLog) *entity.Prediction {
	if p == nil {
		return nil
	}

	var features map[string]float64
	if len(p.Features) > 0 {
		_ = json.Unmarshal(p.Features, &features)
	}

	var queryEmbedding []float32
	if p.QueryEmbedding != nil {
		queryEmbedding = p.QueryEmbedding.Slice()
	}

	return &entity.Prediction{
		Id:             p.Id,
		SessionId:      p.SessionId,
		Model:          p.Model,
		Label:          p.Label,
		Confidence:     p.Confidence,
		StoreKey:       p.StoreKey,
		NeighborsUsed:  p.NeighborsUsed,
		NeighborIds:    []string(p.NeighborIds),
		Reason:         p.Reason,
		Query:          p.Query,
		Features:       features,
		QueryEmbedding: queryEmbedding,
		CreatedAt:      p.CreatedAt,
	}
}

func (m *PredictionMapper) ToModel(e *entity.Prediction) *model.PredictionLog {
	if e == nil {
		return nil
	}

	var features datatypes.JSON
	if len(e.Features) > 0 {
		features, _ = json.Marshal(e.Features)
	}

	var queryEmbedding *pgvector.Vector
	if len(e.QueryEmbedding) > 0 {
		v := pgvector.NewVector(e.QueryEmbedding)
		queryEmbedding = &v
	}

	return &model.PredictionLog{
		Id:             e.Id,
		SessionId:      e.SessionId,
		Model:          e.Model,
		Label:          e.Label,
		Confidence:     e.Confidence,
		StoreKey:       e.StoreKey,
		NeighborsUsed:  e.NeighborsUsed,
		NeighborIds:    datatypes.JSONSlice[string](e.NeighborIds),
		Reason:         e.Reason,
		Query:          e.Query,
		Features:       features,
		QueryEmbedding: queryEmbedding,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *PredictionMapper) ToEntities(logs []*model.PredictionLog) []*entity.Prediction {
	entities := make([]*entity.Prediction, len(logs))
	for i, p := range logs {
		entities[i] = m.ToEntity(p)
	}
	return entities
}
