package implementation

import (
	"context"

	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/repository/contract"
	"exoplanet-classifier-be/internal/repository/specification"
)

// NoopPredictionRepository drops writes and returns nothing. Used when no database is configured.
type NoopPredictionRepository struct{}

func NewNoopPredictionRepository() contract.PredictionRepository {
	return NoopPredictionRepository{}
}

func (NoopPredictionRepository) Enabled() bool { return false }

func (NoopPredictionRepository) Create(context.Context, *entity.Prediction) error { return nil }

func (NoopPredictionRepository) FindAll(context.Context, ...specification.Specification) ([]*entity.Prediction, error) {
	return nil, nil
}

func (NoopPredictionRepository) Count(context.Context, ...specification.Specification) (int64, error) {
	return 0, nil
}

func (NoopPredictionRepository) SearchSimilar(context.Context, []float32, int) ([]*entity.Prediction, error) {
	return nil, nil
}
