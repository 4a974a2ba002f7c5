package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"exoplanet-classifier-be/pkg/dataset"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/vectorstore"
)

// DatasetStore serves the base dataset file, reloading it when it changes on disk,
// and the persisted per-session datasets in blob storage.
type DatasetStore struct {
	path  string
	blobs vectorstore.BlobStore

	mu      sync.RWMutex
	rows    []exo.Row
	modTime time.Time
	size    int64
}

func NewDatasetStore(path string, blobs vectorstore.BlobStore) *DatasetStore {
	return &DatasetStore{path: path, blobs: blobs}
}

func (s *DatasetStore) Path() string {
	return s.path
}

// BaseRows returns the rows of the base dataset. The slice is shared; callers must not modify it.
func (s *DatasetStore) BaseRows() ([]exo.Row, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("base dataset: %w", err)
	}

	s.mu.RLock()
	fresh := s.rows != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size
	rows := s.rows
	s.mu.RUnlock()
	if fresh {
		return rows, nil
	}

	rows, err = dataset.LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []exo.Row{}
	}

	s.mu.Lock()
	s.rows, s.modTime, s.size = rows, info.ModTime(), info.Size()
	s.mu.Unlock()
	return rows, nil
}

// SessionRows merges the base rows with the user rows; base rows win on id collisions.
func (s *DatasetStore) SessionRows(userRows []exo.Row) ([]exo.Row, error) {
	base, err := s.BaseRows()
	if err != nil {
		return nil, err
	}
	merged, _ := dataset.Merge(base, userRows)
	return merged, nil
}

func (s *DatasetStore) SaveSession(ctx context.Context, sessionID string, rows []exo.Row) error {
	data, err := dataset.Encode(rows)
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, vectorstore.SessionDataBlob(sessionID), data)
}

func (s *DatasetStore) LoadSession(ctx context.Context, sessionID string) ([]exo.Row, error) {
	data, err := s.blobs.Get(ctx, vectorstore.SessionDataBlob(sessionID))
	if errors.Is(err, vectorstore.ErrBlobNotFound) {
		return nil, fmt.Errorf("session %s has no saved dataset", sessionID)
	}
	if err != nil {
		return nil, err
	}
	return dataset.Read(bytes.NewReader(data), dataset.ReadOptions{DefaultType: exo.MissionUser})
}
