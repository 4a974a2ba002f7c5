package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/repository/memory"
	"exoplanet-classifier-be/pkg/dataset"
	"exoplanet-classifier-be/pkg/embedding"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/llm"
	"exoplanet-classifier-be/pkg/rag/classifier"
	"exoplanet-classifier-be/pkg/rag/retriever"
	"exoplanet-classifier-be/pkg/tabular"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []dto.TaskResponse
}

func (n *recordingNotifier) NotifyTask(task dto.TaskResponse) {
	n.mu.Lock()
	n.updates = append(n.updates, task)
	n.mu.Unlock()
}

func (n *recordingNotifier) progress() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, 0, len(n.updates))
	for _, u := range n.updates {
		out = append(out, u.Progress)
	}
	return out
}

type fixedLLM struct {
	reply string
	err   error
}

func (f fixedLLM) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return f.reply, f.err
}

func (f fixedLLM) Generate(context.Context, string, ...llm.Option) (string, error) {
	return f.reply, f.err
}

type queuedTasks struct {
	mu        sync.Mutex
	submitted []string
}

func (q *queuedTasks) SubmitBuild(_ context.Context, kind, sessionID string) (*dto.TaskResponse, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.submitted = append(q.submitted, kind+":"+sessionID)
	return &dto.TaskResponse{Id: "task-1", Kind: kind, Status: "queued"}, nil
}

func (q *queuedTasks) Get(context.Context, string) (*dto.TaskResponse, error) {
	return nil, nil
}

func (q *queuedTasks) Cancel(context.Context, string) (*dto.TaskResponse, error) {
	return nil, nil
}

func (q *queuedTasks) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.submitted)
}

func labeledRow(id string, disp exo.Disposition, period, duration, depth, prad, teq float64) exo.Row {
	return exo.Row{
		ID:                     id,
		Type:                   exo.MissionKOI,
		Disposition:            disp.Ptr(),
		Period:                 exo.Float(period),
		Duration:               exo.Float(duration),
		Depth:                  exo.Float(depth),
		PlanetaryRadius:        exo.Float(prad),
		EquilibriumTemperature: exo.Float(teq),
	}
}

func baseRows() []exo.Row {
	return []exo.Row{
		labeledRow("K1", exo.Candidate, 9.48, 2.95, 615.8, 2.26, 793),
		labeledRow("K2", exo.FalsePositive, 1.73, 2.40, 8079.2, 33.46, 1395),
		labeledRow("K3", exo.Candidate, 19.89, 1.78, 10829.0, 14.60, 638),
		labeledRow("K4", exo.FalsePositive, 0.84, 1.65, 603.3, 2.75, 1406),
	}
}

func writeBase(t *testing.T, rows []exo.Row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "dataset.csv")
	require.NoError(t, dataset.SaveFile(path, rows))
	return path
}

type fixture struct {
	blobs    *vectorstore.LocalStore
	stores   *vectorstore.Repository
	datasets *DatasetStore
	sessions *memory.SessionRepository
	embedder *embedding.Client
	basePath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	blobs, err := vectorstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	stores := vectorstore.NewRepository(blobs, vectorstore.CompressionNone, log)
	basePath := writeBase(t, baseRows())
	return &fixture{
		blobs:    blobs,
		stores:   stores,
		datasets: NewDatasetStore(basePath, blobs),
		sessions: memory.NewSessionRepository(16, 0, nil),
		embedder: embedding.NewClient(embedding.NewLocalProvider(32), embedding.ClientOptions{}),
		basePath: basePath,
	}
}

// installDefault builds the default bundle from the base rows.
func (f *fixture) installDefault(t *testing.T) *vectorstore.Bundle {
	t.Helper()
	rows, err := f.datasets.BaseRows()
	require.NoError(t, err)
	b, err := vectorstore.NewBuilder(f.embedder, logger.NewNopLogger()).Build(context.Background(), vectorstore.DefaultKey, rows, nil)
	require.NoError(t, err)
	require.NoError(t, f.stores.Save(context.Background(), b))
	return b
}

func (f *fixture) classifier(reply string) *classifier.Classifier {
	return classifier.New(f.stores, retriever.New(f.embedder, 3), fixedLLM{reply: reply}, classifier.Options{DefaultK: 3}, logger.NewNopLogger())
}

// Two stumps splitting on radius: small planets are candidates.
const stumpsJSON = `{
  "classes": [0, 1],
  "trees": [
    {"nodes": [
      {"feature": 3, "threshold": 10, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": [1, 9]},
      {"left": -1, "right": -1, "value": [8, 2]}
    ]}
  ]
}`

func stumps(t *testing.T) *tabular.Model {
	t.Helper()
	m, err := tabular.ParseModel([]byte(stumpsJSON))
	require.NoError(t, err)
	return m
}
