package service

import (
	"context"
	"fmt"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/repository/contract"
	"exoplanet-classifier-be/internal/repository/memory"
	"exoplanet-classifier-be/internal/repository/specification"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/heldout"
	"exoplanet-classifier-be/pkg/rag/classifier"
	"exoplanet-classifier-be/pkg/tabular"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	ModelLLM = "llm_rag"

	// llmConfidence is reported for every valid LLM label; the completion carries no score.
	llmConfidence = 0.95

	defaultPredictionLimit = 50
	maxPredictionLimit     = 500
)

type IClassifierService interface {
	ClassifyLLM(ctx context.Context, sessionID string, req *dto.ClassifyLLMRequest) (*dto.ClassifyResponse, error)
	ClassifyBatch(ctx context.Context, sessionID string, req *dto.ClassifyBatchRequest) (*dto.ClassifyBatchResponse, error)
	ClassifyTabular(ctx context.Context, sessionID string, req *dto.FeaturesRequest) (*dto.TabularResponse, error)
	ListPredictions(ctx context.Context, sessionID string, limit int) ([]*dto.PredictionResponse, error)
}

type ClassifierOptions struct {
	BatchLimit   int
	BatchWorkers int
}

type classifierService struct {
	classifier  *classifier.Classifier
	model       *tabular.Model
	sessions    *memory.SessionRepository
	predictions contract.PredictionRepository
	opts        ClassifierOptions
	log         logger.ILogger
}

// NewClassifierService wires both predictors. model may be nil when no forest is installed.
func NewClassifierService(
	c *classifier.Classifier,
	model *tabular.Model,
	sessions *memory.SessionRepository,
	predictions contract.PredictionRepository,
	opts ClassifierOptions,
	log logger.ILogger,
) IClassifierService {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 100
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 4
	}
	return &classifierService{
		classifier:  c,
		model:       model,
		sessions:    sessions,
		predictions: predictions,
		opts:        opts,
		log:         log,
	}
}

func (s *classifierService) ClassifyLLM(ctx context.Context, sessionID string, req *dto.ClassifyLLMRequest) (*dto.ClassifyResponse, error) {
	res := s.classify(ctx, sessionID, req.FeaturesRequest.Row(""), req.K, req.Evidence)
	return &res, nil
}

func (s *classifierService) ClassifyBatch(ctx context.Context, sessionID string, req *dto.ClassifyBatchRequest) (*dto.ClassifyBatchResponse, error) {
	if len(req.Rows) > s.opts.BatchLimit {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("batch holds %d rows, limit is %d", len(req.Rows), s.opts.BatchLimit))
	}

	results := make([]dto.ClassifyResponse, len(req.Rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchWorkers)
	for i, features := range req.Rows {
		g.Go(func() error {
			results[i] = s.classify(gctx, sessionID, features.Row(""), req.K, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dto.ClassifyBatchResponse{Results: results}, nil
}

func (s *classifierService) classify(ctx context.Context, sessionID string, row exo.Row, k int, evidence bool) dto.ClassifyResponse {
	start := time.Now()
	result := s.classifier.Classify(ctx, classifier.Request{
		Row:          row,
		SessionID:    sessionID,
		K:            k,
		Exclude:      s.excluder(sessionID),
		WithEvidence: evidence,
	})

	res := dto.ClassifyResponse{
		Model:          ModelLLM,
		Prediction:     result.Label,
		NeighborsUsed:  result.NeighborsUsed,
		Store:          string(result.StoreKey),
		ProcessingTime: time.Since(start).Seconds(),
		Reason:         result.Reason,
	}
	if result.Label.Valid() {
		res.Confidence = llmConfidence
	}
	for _, n := range result.Neighbors {
		description, _ := exo.Format(n.Row)
		res.Neighbors = append(res.Neighbors, dto.NeighborResponse{
			Id:          n.Row.ID,
			Name:        n.Row.Name,
			Type:        n.Row.Type,
			Label:       n.Row.Label(),
			Distance:    n.Distance,
			Description: description,
		})
	}

	if result.Err != nil {
		s.log.Warn(constant.LogModuleClassifier, "Classification returned ERROR", map[string]interface{}{
			"session_id": sessionID,
			"stage":      string(result.FailedAt),
			"error":      result.Err.Error(),
		})
	}

	neighborIds := make([]string, 0, len(result.Neighbors))
	for _, n := range result.Neighbors {
		neighborIds = append(neighborIds, n.Row.ID)
	}
	s.record(ctx, &entity.Prediction{
		SessionId:      sessionID,
		Model:          ModelLLM,
		Label:          string(res.Prediction),
		Confidence:     res.Confidence,
		StoreKey:       res.Store,
		NeighborsUsed:  res.NeighborsUsed,
		NeighborIds:    neighborIds,
		Reason:         res.Reason,
		QueryEmbedding: result.QueryEmbedding,
	}, row)
	return res
}

func (s *classifierService) ClassifyTabular(ctx context.Context, sessionID string, req *dto.FeaturesRequest) (*dto.TabularResponse, error) {
	if s.model == nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, tabular.ErrModelUnavailable.Error())
	}

	start := time.Now()
	row := req.Row("")
	prediction, err := s.model.PredictRow(row)
	if err != nil {
		return nil, err
	}

	res := &dto.TabularResponse{
		Model:          tabular.ModelName,
		Prediction:     prediction.Label,
		Confidence:     prediction.Confidence,
		ProcessingTime: time.Since(start).Seconds(),
	}
	s.record(ctx, &entity.Prediction{
		SessionId:  sessionID,
		Model:      tabular.ModelName,
		Label:      string(prediction.Label),
		Confidence: prediction.Confidence,
	}, row)
	return res, nil
}

func (s *classifierService) ListPredictions(ctx context.Context, sessionID string, limit int) ([]*dto.PredictionResponse, error) {
	if limit <= 0 {
		limit = defaultPredictionLimit
	}
	if limit > maxPredictionLimit {
		limit = maxPredictionLimit
	}

	specs := specification.Recent(limit)
	if sessionID != "" {
		specs = append(specs, specification.BySession{SessionID: sessionID})
	}
	predictions, err := s.predictions.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PredictionResponse, 0, len(predictions))
	for _, p := range predictions {
		res = append(res, &dto.PredictionResponse{
			Id:            p.Id,
			SessionId:     p.SessionId,
			Model:         p.Model,
			Prediction:    p.Label,
			Confidence:    p.Confidence,
			Store:         p.StoreKey,
			NeighborsUsed: p.NeighborsUsed,
			Reason:        p.Reason,
			Query:         p.Query,
			CreatedAt:     p.CreatedAt,
		})
	}
	return res, nil
}

func (s *classifierService) excluder(sessionID string) heldout.Excluder {
	if sessionID == "" {
		return heldout.None{}
	}
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return heldout.None{}
	}
	return session.HeldOut
}

// record writes the prediction log. Failures never fail the request.
func (s *classifierService) record(ctx context.Context, p *entity.Prediction, row exo.Row) {
	if !s.predictions.Enabled() {
		return
	}
	p.Id = uuid.New()
	p.CreatedAt = time.Now().UTC()
	if query, err := exo.Format(row); err == nil {
		p.Query = query
	}
	if features, err := tabular.Features(row); err == nil {
		p.Features = make(map[string]float64, len(features))
		for i, name := range tabular.FeatureNames {
			p.Features[name] = features[i]
		}
	}

	if err := s.predictions.Create(ctx, p); err != nil {
		s.log.Warn(constant.LogModuleClassifier, "Failed to record prediction", map[string]interface{}{
			"model": p.Model,
			"error": err.Error(),
		})
	}
}
