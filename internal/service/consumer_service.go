package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/entity"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/events"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	Wait()
}

// EventPublisher announces installed bundles to other instances.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ConsumerOptions struct {
	Topic       string
	Concurrency int
	InstanceID  string
}

type consumerService struct {
	subscriber message.Subscriber
	tracker    *TaskTracker
	builder    *vectorstore.Builder
	stores     *vectorstore.Repository
	datasets   *DatasetStore
	events     EventPublisher
	opts       ConsumerOptions
	log        logger.ILogger

	jobs chan BuildMessage
	wg   sync.WaitGroup
}

func NewConsumerService(
	subscriber message.Subscriber,
	tracker *TaskTracker,
	builder *vectorstore.Builder,
	stores *vectorstore.Repository,
	datasets *DatasetStore,
	eventPublisher EventPublisher,
	opts ConsumerOptions,
	log logger.ILogger,
) IConsumerService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Topic == "" {
		opts.Topic = constant.BuildVectorStoreTopic
	}
	return &consumerService{
		subscriber: subscriber,
		tracker:    tracker,
		builder:    builder,
		stores:     stores,
		datasets:   datasets,
		events:     eventPublisher,
		opts:       opts,
		log:        log,
		jobs:       make(chan BuildMessage),
	}
}

// Consume subscribes to the build topic and starts the worker pool. It returns once subscribed;
// workers stop when ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.opts.Topic)
	if err != nil {
		return err
	}

	for i := 0; i < cs.opts.Concurrency; i++ {
		cs.wg.Add(1)
		go func() {
			defer cs.wg.Done()
			for job := range cs.jobs {
				cs.run(ctx, job)
			}
		}()
	}

	go func() {
		defer close(cs.jobs)
		for msg := range messages {
			cs.dispatch(ctx, msg)
		}
	}()
	return nil
}

// Wait blocks until all workers have exited.
func (cs *consumerService) Wait() {
	cs.wg.Wait()
}

func (cs *consumerService) dispatch(ctx context.Context, msg *message.Message) {
	var job BuildMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil || job.TaskId == "" {
		cs.log.Error(constant.LogModuleTask, "Dropping malformed build message", map[string]interface{}{"message_id": msg.UUID})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	select {
	case cs.jobs <- job:
		msg.Ack()
	case <-ctx.Done():
		msg.Nack()
	}
}

func (cs *consumerService) run(parent context.Context, job BuildMessage) {
	task, err := cs.tracker.Get(parent, job.TaskId)
	if err != nil {
		cs.log.Error(constant.LogModuleTask, "Build task lookup failed", map[string]interface{}{"task_id": job.TaskId, "error": err.Error()})
		return
	}
	if task.Status != constant.TaskStatusQueued {
		cs.log.Info(constant.LogModuleTask, "Skipping build task", map[string]interface{}{"task_id": job.TaskId, "status": string(task.Status)})
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	cs.tracker.Attach(job.TaskId, cancel)
	defer cs.tracker.Detach(job.TaskId)

	task, err = cs.tracker.Update(ctx, job.TaskId, func(t *entity.Task) {
		t.Status = constant.TaskStatusRunning
	})
	if err != nil || task.Status != constant.TaskStatusRunning {
		return
	}

	started := time.Now()
	bundle, err := cs.build(ctx, job)
	if err != nil {
		cs.finish(job, err)
		return
	}

	cs.log.Info(constant.LogModuleTask, "Build task succeeded", map[string]interface{}{
		"task_id":  job.TaskId,
		"key":      string(bundle.Key),
		"rows":     bundle.Len(),
		"duration": time.Since(started).String(),
	})
	_, _ = cs.tracker.Update(parent, job.TaskId, func(t *entity.Task) {
		t.Status = constant.TaskStatusSucceeded
		t.Progress = 100
		t.Result = &entity.TaskResult{StoreKey: string(bundle.Key), Rows: bundle.Len()}
	})
}

func (cs *consumerService) build(ctx context.Context, job BuildMessage) (*vectorstore.Bundle, error) {
	key, rows, err := cs.source(ctx, job)
	if err != nil {
		return nil, err
	}

	progress := func(percent int) {
		task, err := cs.tracker.Progress(ctx, job.TaskId, percent)
		// cancelled elsewhere, e.g. through another instance
		if err == nil && task.Status == constant.TaskStatusCancelled {
			cs.tracker.Abort(job.TaskId)
		}
	}

	bundle, err := cs.builder.Build(ctx, key, rows, progress)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// cancel requests are refused from here on, so a cancelled task never installs its bundle
	committed, err := cs.tracker.Commit(ctx, job.TaskId)
	if err != nil {
		return nil, err
	}
	if !committed {
		return nil, context.Canceled
	}
	if err := cs.stores.Save(ctx, bundle); err != nil {
		return nil, err
	}
	progress(vectorstore.ProgressSaved)
	cs.announce(bundle)
	return bundle, nil
}

func (cs *consumerService) source(ctx context.Context, job BuildMessage) (vectorstore.Key, []exo.Row, error) {
	switch job.Kind {
	case constant.TaskKindBuildDefault:
		rows, err := cs.datasets.BaseRows()
		return vectorstore.DefaultKey, rows, err
	case constant.TaskKindBuildSession:
		rows, err := cs.datasets.LoadSession(ctx, job.SessionId)
		return vectorstore.SessionKey(job.SessionId), rows, err
	default:
		return "", nil, fmt.Errorf("unknown task kind %q", job.Kind)
	}
}

func (cs *consumerService) finish(job BuildMessage, err error) {
	ctx := context.Background()
	if vectorstore.IsCancelled(err) || errors.Is(err, context.Canceled) {
		cs.log.Info(constant.LogModuleTask, "Build task cancelled", map[string]interface{}{"task_id": job.TaskId})
		_, _ = cs.tracker.Update(ctx, job.TaskId, func(t *entity.Task) {
			t.Status = constant.TaskStatusCancelled
		})
		return
	}

	cs.log.Error(constant.LogModuleTask, "Build task failed", map[string]interface{}{"task_id": job.TaskId, "error": err.Error()})
	_, _ = cs.tracker.Update(ctx, job.TaskId, func(t *entity.Task) {
		t.Status = constant.TaskStatusFailed
		t.Error = err.Error()
	})
}

func (cs *consumerService) announce(bundle *vectorstore.Bundle) {
	if cs.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cs.events.Publish(ctx, events.BundleInstalled{
		Key:        string(bundle.Key),
		Rows:       bundle.Len(),
		InstanceID: cs.opts.InstanceID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		cs.log.Warn(constant.LogModuleVectorStore, "Failed to announce bundle", map[string]interface{}{"key": string(bundle.Key), "error": err.Error()})
	}
}
