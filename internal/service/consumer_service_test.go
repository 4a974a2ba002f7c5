package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/embedding"
	"exoplanet-classifier-be/pkg/events"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recordingEvents) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type pipeline struct {
	*fixture
	tasks    ITaskService
	tracker  *TaskTracker
	notifier *recordingNotifier
	events   *recordingEvents
	pubSub   *gochannel.GoChannel
}

type pipelineOptions struct {
	// provider replaces the local embedding provider of the consumer's builder
	provider  embedding.EmbeddingProvider
	// wrapBlobs wraps the blob store behind the repository
	wrapBlobs func(vectorstore.BlobStore) vectorstore.BlobStore
}

func newPipeline(t *testing.T) *pipeline {
	return newPipelineWith(t, pipelineOptions{})
}

func newPipelineWith(t *testing.T, opts pipelineOptions) *pipeline {
	t.Helper()
	f := newFixture(t)
	log := logger.NewNopLogger()
	if opts.wrapBlobs != nil {
		f.stores = vectorstore.NewRepository(opts.wrapBlobs(f.blobs), vectorstore.CompressionNone, log)
	}
	embedder := f.embedder
	if opts.provider != nil {
		embedder = embedding.NewClient(opts.provider, embedding.ClientOptions{})
	}

	tracker, notifier := newTracker()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ev := &recordingEvents{}
	consumer := NewConsumerService(
		pubSub,
		tracker,
		vectorstore.NewBuilder(embedder, log),
		f.stores,
		f.datasets,
		ev,
		ConsumerOptions{Concurrency: 2, InstanceID: "test"},
		log,
	)
	require.NoError(t, consumer.Consume(ctx))

	return &pipeline{
		fixture:  f,
		tasks:    NewTaskService(tracker, NewPublisherService(constant.BuildVectorStoreTopic, pubSub), log),
		tracker:  tracker,
		notifier: notifier,
		events:   ev,
		pubSub:   pubSub,
	}
}

func (p *pipeline) waitTerminal(t *testing.T, id string) constant.TaskStatus {
	t.Helper()
	var status constant.TaskStatus
	require.Eventually(t, func() bool {
		task, err := p.tracker.Get(context.Background(), id)
		require.NoError(t, err)
		status = task.Status
		return status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestConsumerBuildsDefaultStore(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	task, err := p.tasks.SubmitBuild(ctx, constant.TaskKindBuildDefault, "")
	require.NoError(t, err)
	assert.Equal(t, string(constant.TaskStatusQueued), task.Status)

	assert.Equal(t, constant.TaskStatusSucceeded, p.waitTerminal(t, task.Id))

	got, err := p.tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Result)
	assert.Equal(t, string(vectorstore.DefaultKey), got.Result.StoreKey)
	assert.Equal(t, len(baseRows()), got.Result.Rows)

	installed := p.stores.Cached(vectorstore.DefaultKey)
	require.NotNil(t, installed)
	assert.Equal(t, len(baseRows()), installed.Len())
	assert.Equal(t, 1, p.events.len())

	progress := p.notifier.progress()
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Contains(t, progress, vectorstore.ProgressSaved)
}

func TestConsumerBuildsSessionStoreFromSavedDataset(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	rows := append(baseRows(), labeledRow("U1", exo.Candidate, 3.5, 2.1, 420, 1.9, 701))
	require.NoError(t, p.datasets.SaveSession(ctx, "s1", rows))

	task, err := p.tasks.SubmitBuild(ctx, constant.TaskKindBuildSession, "s1")
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusSucceeded, p.waitTerminal(t, task.Id))

	b, err := p.stores.Get(ctx, vectorstore.SessionKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, len(rows), b.Len())
}

func TestConsumerFailsSessionBuildWithoutDataset(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	task, err := p.tasks.SubmitBuild(ctx, constant.TaskKindBuildSession, "nobody")
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusFailed, p.waitTerminal(t, task.Id))

	got, err := p.tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Contains(t, got.Error, "no saved dataset")
	assert.Nil(t, p.stores.Cached(vectorstore.SessionKey("nobody")))
}

func TestConsumerSkipsTaskCancelledWhileQueued(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	task, err := p.tracker.Create(ctx, constant.TaskKindBuildDefault, "")
	require.NoError(t, err)
	_, err = p.tracker.Cancel(ctx, task.Id)
	require.NoError(t, err)

	publisher := NewPublisherService(constant.BuildVectorStoreTopic, p.pubSub)
	require.NoError(t, publisher.Publish(ctx, BuildMessage{TaskId: task.Id, Kind: constant.TaskKindBuildDefault}))

	// a later task proves the first message was consumed
	next, err := p.tasks.SubmitBuild(ctx, constant.TaskKindBuildDefault, "")
	require.NoError(t, err)
	p.waitTerminal(t, next.Id)

	got, err := p.tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusCancelled, got.Status)
	assert.Equal(t, 0, got.Progress)
}

// blockingProvider stalls every embedding call until its context ends.
type blockingProvider struct {
	once    sync.Once
	started chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{started: make(chan struct{})}
}

func (p *blockingProvider) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	p.once.Do(func() { close(p.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *blockingProvider) Name() string {
	return "blocking"
}

// hookedBlobs calls onPut before writing a bundle blob.
type hookedBlobs struct {
	vectorstore.BlobStore
	mu    sync.Mutex
	onPut func()
}

func (h *hookedBlobs) setOnPut(fn func()) {
	h.mu.Lock()
	h.onPut = fn
	h.mu.Unlock()
}

func (h *hookedBlobs) Put(ctx context.Context, name string, data []byte) error {
	h.mu.Lock()
	fn := h.onPut
	h.mu.Unlock()
	if fn != nil && strings.HasSuffix(name, "index.bin") {
		fn()
	}
	return h.BlobStore.Put(ctx, name, data)
}

func TestConsumerCancelDuringEmbeddingKeepsInstalledBundle(t *testing.T) {
	provider := newBlockingProvider()
	p := newPipelineWith(t, pipelineOptions{provider: provider})
	ctx := context.Background()

	previous := p.installDefault(t)
	onDisk, err := p.blobs.Get(ctx, vectorstore.DefaultKey.BlobName())
	require.NoError(t, err)

	task, err := p.tasks.SubmitBuild(ctx, constant.TaskKindBuildDefault, "")
	require.NoError(t, err)
	select {
	case <-provider.started:
	case <-time.After(5 * time.Second):
		t.Fatal("build never started embedding")
	}

	res, err := p.tasks.Cancel(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, string(constant.TaskStatusCancelled), res.Status)
	assert.Equal(t, constant.TaskStatusCancelled, p.waitTerminal(t, task.Id))

	assert.Same(t, previous, p.stores.Cached(vectorstore.DefaultKey))
	after, err := p.blobs.Get(ctx, vectorstore.DefaultKey.BlobName())
	require.NoError(t, err)
	assert.Equal(t, onDisk, after)
	assert.Equal(t, 0, p.events.len())
}

func TestConsumerRefusesCancelOnceInstalling(t *testing.T) {
	var hooked *hookedBlobs
	p := newPipelineWith(t, pipelineOptions{wrapBlobs: func(b vectorstore.BlobStore) vectorstore.BlobStore {
		hooked = &hookedBlobs{BlobStore: b}
		return hooked
	}})
	ctx := context.Background()
	previous := p.installDefault(t)

	var lateCancel *dto.TaskResponse
	var lateErr error
	var taskID string
	var idMu sync.Mutex
	hooked.setOnPut(func() {
		idMu.Lock()
		id := taskID
		idMu.Unlock()
		lateCancel, lateErr = p.tasks.Cancel(ctx, id)
	})

	idMu.Lock()
	task, err := p.tasks.SubmitBuild(ctx, constant.TaskKindBuildDefault, "")
	require.NoError(t, err)
	taskID = task.Id
	idMu.Unlock()

	status := p.waitTerminal(t, task.Id)
	require.NoError(t, lateErr)
	require.NotNil(t, lateCancel)
	assert.Equal(t, string(constant.TaskStatusRunning), lateCancel.Status)

	// the reported state matches what readers see
	assert.Equal(t, constant.TaskStatusSucceeded, status)
	installed := p.stores.Cached(vectorstore.DefaultKey)
	require.NotNil(t, installed)
	assert.NotSame(t, previous, installed)
	assert.Equal(t, 1, p.events.len())
}

func TestConsumerAcksMalformedMessages(t *testing.T) {
	p := newPipeline(t)

	require.NoError(t, p.pubSub.Publish(constant.BuildVectorStoreTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	task, err := p.tasks.SubmitBuild(context.Background(), constant.TaskKindBuildDefault, "")
	require.NoError(t, err)
	assert.Equal(t, constant.TaskStatusSucceeded, p.waitTerminal(t, task.Id))
}

func TestSubmitBuildValidatesKind(t *testing.T) {
	p := newPipeline(t)

	_, err := p.tasks.SubmitBuild(context.Background(), "rebuild_everything", "")
	assert.Error(t, err)

	_, err = p.tasks.SubmitBuild(context.Background(), constant.TaskKindBuildSession, "")
	assert.Error(t, err)
}
