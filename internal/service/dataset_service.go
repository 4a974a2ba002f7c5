package service

import (
	"context"
	"fmt"
	"io"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/repository/memory"
	"exoplanet-classifier-be/pkg/dataset"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/heldout"
	"exoplanet-classifier-be/pkg/rag/classifier"
	"exoplanet-classifier-be/pkg/tabular"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	PredictorLLM     = "llm"
	PredictorTabular = "tabular"
)

type IDatasetService interface {
	Show(ctx context.Context, sessionID string) (*dto.DatasetResponse, error)
	Upload(ctx context.Context, sessionID string, file io.Reader) (*dto.UploadResponse, error)
	AddRow(ctx context.Context, sessionID string, req *dto.AddRowRequest) (*dto.UploadResponse, error)
	Save(ctx context.Context, sessionID string) (*dto.SaveDatasetResponse, error)
	Split(ctx context.Context, sessionID string, req *dto.SplitRequest) (*dto.SplitResponse, error)
	Evaluate(ctx context.Context, sessionID string, req *dto.EvaluateRequest) (*dto.EvaluateResponse, error)
	Delete(ctx context.Context, sessionID string) error
}

type DatasetOptions struct {
	EvaluateLimit int
	Workers       int
}

type datasetService struct {
	sessions   *memory.SessionRepository
	datasets   *DatasetStore
	stores     *vectorstore.Repository
	tasks      ITaskService
	classifier *classifier.Classifier
	model      *tabular.Model
	opts       DatasetOptions
	log        logger.ILogger
}

func NewDatasetService(
	sessions *memory.SessionRepository,
	datasets *DatasetStore,
	stores *vectorstore.Repository,
	tasks ITaskService,
	c *classifier.Classifier,
	model *tabular.Model,
	opts DatasetOptions,
	log logger.ILogger,
) IDatasetService {
	if opts.EvaluateLimit <= 0 {
		opts.EvaluateLimit = 200
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &datasetService{
		sessions:   sessions,
		datasets:   datasets,
		stores:     stores,
		tasks:      tasks,
		classifier: c,
		model:      model,
		opts:       opts,
		log:        log,
	}
}

func (s *datasetService) Show(ctx context.Context, sessionID string) (*dto.DatasetResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	base, err := s.datasets.BaseRows()
	if err != nil {
		return nil, err
	}
	hasStore, err := s.stores.Exists(ctx, vectorstore.SessionKey(sessionID))
	if err != nil {
		return nil, err
	}

	rows := session.Rows()
	if rows == nil {
		rows = []exo.Row{}
	}
	return &dto.DatasetResponse{
		Rows:      rows,
		UserRows:  len(rows),
		BaseRows:  len(base),
		TotalRows: len(base) + len(rows),
		HasStore:  hasStore,
	}, nil
}

func (s *datasetService) Upload(ctx context.Context, sessionID string, file io.Reader) (*dto.UploadResponse, error) {
	rows, err := dataset.Read(file, dataset.ReadOptions{DefaultType: exo.MissionUser, GenerateIDs: true})
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(rows) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "uploaded file has no rows")
	}

	session := s.sessions.GetOrCreate(sessionID)
	added, duplicates := session.AddRows(rows)
	s.sessions.Touch(session)

	s.log.Info(constant.LogModuleDataset, "Rows uploaded", map[string]interface{}{
		"session_id": sessionID,
		"added":      added,
		"duplicates": duplicates,
	})
	return &dto.UploadResponse{Added: added, Duplicates: duplicates, UserRows: session.Len()}, nil
}

func (s *datasetService) AddRow(ctx context.Context, sessionID string, req *dto.AddRowRequest) (*dto.UploadResponse, error) {
	disposition, err := exo.ParseDisposition(req.Disposition)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if disposition == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "disposition is required")
	}

	id := req.Id
	if id == "" {
		id = uuid.NewString()
	}
	row := req.FeaturesRequest.Row(id)
	row.Name = req.Name
	row.Disposition = disposition
	if err := row.Validate(); err != nil {
		return nil, err
	}

	session := s.sessions.GetOrCreate(sessionID)
	added, duplicates := session.AddRows([]exo.Row{row})
	s.sessions.Touch(session)
	return &dto.UploadResponse{Added: added, Duplicates: duplicates, UserRows: session.Len()}, nil
}

// Save persists base plus user rows for the session and queues a build of its bundle.
func (s *datasetService) Save(ctx context.Context, sessionID string) (*dto.SaveDatasetResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	userRows := session.Rows()
	if len(userRows) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "session has no rows to save")
	}

	rows, err := s.datasets.SessionRows(userRows)
	if err != nil {
		return nil, err
	}
	if err := s.datasets.SaveSession(ctx, sessionID, rows); err != nil {
		return nil, fmt.Errorf("save session dataset: %w", err)
	}

	task, err := s.tasks.SubmitBuild(ctx, constant.TaskKindBuildSession, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SaveDatasetResponse{TaskId: task.Id, Rows: len(rows)}, nil
}

// Split holds out the test part of the session dataset. The bundle is not rebuilt;
// held-out rows are filtered at retrieval time.
func (s *datasetService) Split(ctx context.Context, sessionID string, req *dto.SplitRequest) (*dto.SplitResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	rows, err := s.datasets.SessionRows(session.Rows())
	if err != nil {
		return nil, err
	}

	train, test := dataset.Split(rows, req.TestRatio, req.Seed)
	session.HeldOut.Replace(dataset.IDs(test))
	s.sessions.Touch(session)

	s.log.Info(constant.LogModuleDataset, "Dataset split", map[string]interface{}{
		"session_id": sessionID,
		"train":      len(train),
		"test":       len(test),
		"seed":       req.Seed,
	})
	return &dto.SplitResponse{Train: len(train), Test: len(test)}, nil
}

// Evaluate classifies labeled held-out rows and compares against their dispositions.
func (s *datasetService) Evaluate(ctx context.Context, sessionID string, req *dto.EvaluateRequest) (*dto.EvaluateResponse, error) {
	predictor := req.Predictor
	if predictor == "" {
		predictor = PredictorLLM
	}
	if predictor == PredictorTabular && s.model == nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, tabular.ErrModelUnavailable.Error())
	}
	limit := req.Limit
	if limit <= 0 || limit > s.opts.EvaluateLimit {
		limit = s.opts.EvaluateLimit
	}

	session := s.sessions.GetOrCreate(sessionID)
	if session.HeldOut.Len() == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "no held-out rows, split the dataset first")
	}
	rows, err := s.datasets.SessionRows(session.Rows())
	if err != nil {
		return nil, err
	}

	var targets []exo.Row
	for _, r := range rows {
		if len(targets) == limit {
			break
		}
		if r.Labeled() && session.HeldOut.Contains(r.ID) {
			targets = append(targets, r)
		}
	}

	labels := make([]exo.Label, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, r := range targets {
		g.Go(func() error {
			labels[i] = s.predict(gctx, predictor, sessionID, r, req.K, session.HeldOut)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Score(targets, labels)
	res.Predictor = predictor
	s.log.Info(constant.LogModuleDataset, "Evaluation finished", map[string]interface{}{
		"session_id": sessionID,
		"predictor":  predictor,
		"evaluated":  res.Evaluated,
		"accuracy":   res.Accuracy,
	})
	return &res, nil
}

func (s *datasetService) predict(ctx context.Context, predictor, sessionID string, row exo.Row, k int, exclude heldout.Excluder) exo.Label {
	if predictor == PredictorTabular {
		prediction, err := s.model.PredictRow(row)
		if err != nil {
			return exo.LabelError
		}
		return prediction.Label
	}
	return s.classifier.Classify(ctx, classifier.Request{
		Row:       row,
		SessionID: sessionID,
		K:         k,
		Exclude:   exclude,
	}).Label
}

// Delete drops everything the session owns: user rows, held-out ids, persisted dataset and bundle.
func (s *datasetService) Delete(ctx context.Context, sessionID string) error {
	if session, ok := s.sessions.Get(sessionID); ok {
		session.Clear()
	}
	if err := s.stores.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session store: %w", err)
	}
	s.sessions.Delete(sessionID)
	s.log.Info(constant.LogModuleDataset, "Session dataset deleted", map[string]interface{}{"session_id": sessionID})
	return nil
}

// Score compares predicted labels against the dispositions of rows. ERROR predictions count
// as errors and stay out of the confusion matrix; CANDIDATE is the positive class.
func Score(rows []exo.Row, labels []exo.Label) dto.EvaluateResponse {
	var res dto.EvaluateResponse
	for i, r := range rows {
		res.Evaluated++
		predicted := labels[i]
		if !predicted.Valid() {
			res.Errors++
			continue
		}
		actual := r.Label()
		if predicted == actual {
			res.Correct++
		}
		switch {
		case predicted == exo.LabelCandidate && actual == exo.LabelCandidate:
			res.Confusion.TruePositive++
		case predicted == exo.LabelCandidate:
			res.Confusion.FalsePositive++
		case actual == exo.LabelFalsePositive:
			res.Confusion.TrueNegative++
		default:
			res.Confusion.FalseNegative++
		}
	}
	if res.Evaluated > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Evaluated)
	}
	return res
}
