package contract

import (
	"context"

	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/repository/specification"
)

type PredictionRepository interface {
	Create(ctx context.Context, prediction *entity.Prediction) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Prediction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar returns logged LLM predictions whose query vector is closest to embedding.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.Prediction, error)
	// Enabled is false for the no-op repository used without a database.
	Enabled() bool
}
