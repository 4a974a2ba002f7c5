package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

const DefaultWatchDebounce = 2 * time.Second

// DatasetWatcher submits a default rebuild when the base dataset file changes.
// The parent directory is watched so replacing the file by rename is seen too.
type DatasetWatcher struct {
	path     string
	tasks    ITaskService
	debounce time.Duration
	log      logger.ILogger

	mu    sync.Mutex
	timer *time.Timer
}

func NewDatasetWatcher(path string, tasks ITaskService, debounce time.Duration, log logger.ILogger) *DatasetWatcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &DatasetWatcher{path: filepath.Clean(path), tasks: tasks, debounce: debounce, log: log}
}

// Run blocks until ctx is done.
func (w *DatasetWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.log.Info(constant.LogModuleWatcher, "Watching base dataset", map[string]interface{}{"path": w.path})

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.schedule(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(constant.LogModuleWatcher, "Watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *DatasetWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// schedule collapses bursts of events into a single build.
func (w *DatasetWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		task, err := w.tasks.SubmitBuild(ctx, constant.TaskKindBuildDefault, "")
		if err != nil {
			w.log.Error(constant.LogModuleWatcher, "Failed to submit rebuild", map[string]interface{}{"error": err.Error()})
			return
		}
		w.log.Info(constant.LogModuleWatcher, "Base dataset changed, rebuild queued", map[string]interface{}{"task_id": task.Id})
	})
}

func (w *DatasetWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
