package implementation

import (
	"context"

	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/mapper"
	"exoplanet-classifier-be/internal/model"
	"exoplanet-classifier-be/internal/repository/contract"
	"exoplanet-classifier-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PredictionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PredictionMapper
}

func NewPredictionRepository(db *gorm.DB) contract.PredictionRepository {
	return &PredictionRepositoryImpl{
		db:     db,
		mapper: mapper.NewPredictionMapper(),
	}
}

func (r *PredictionRepositoryImpl) Enabled() bool {
	return true
}

func (r *PredictionRepositoryImpl) Create(ctx context.Context, prediction *entity.Prediction) error {
	m := r.mapper.ToModel(prediction)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*prediction = *r.mapper.ToEntity(m)
	return nil
}

func (r *PredictionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Prediction, error) {
	var models []*model.PredictionLog
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *PredictionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.PredictionLog{}).Count(&count).Error
	return count, err
}

func (r *PredictionRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*entity.Prediction, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []*model.PredictionLog

	// <=> is pgvector cosine distance; rows from other embedding dimensions are skipped.
	err := r.db.WithContext(ctx).
		Where("query_embedding IS NOT NULL").
		Where("vector_dims(query_embedding) = ?", len(embedding)).
		Order(gorm.Expr("query_embedding <=> ?", pgvector.NewVector(embedding))).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
