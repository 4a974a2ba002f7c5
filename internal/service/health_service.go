package service

import (
	"context"

	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/repository/contract"
	"exoplanet-classifier-be/pkg/tabular"
	"exoplanet-classifier-be/pkg/vectorstore"
)

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
}

type healthService struct {
	stores         *vectorstore.Repository
	model          *tabular.Model
	predictions    contract.PredictionRepository
	embeddingModel string
}

func NewHealthService(stores *vectorstore.Repository, model *tabular.Model, predictions contract.PredictionRepository, embeddingModel string) IHealthService {
	return &healthService{
		stores:         stores,
		model:          model,
		predictions:    predictions,
		embeddingModel: embeddingModel,
	}
}

// Check never touches storage; it reports what is installed in memory.
func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	res := &dto.HealthResponse{
		Status:         "ok",
		TabularLoaded:  s.model != nil,
		EmbeddingModel: s.embeddingModel,
		PredictionLog:  s.predictions.Enabled(),
	}
	if b := s.stores.Cached(vectorstore.DefaultKey); b != nil {
		res.DefaultStore = true
		res.DefaultRows = b.Len()
	} else {
		res.Status = "degraded"
	}
	return res
}
