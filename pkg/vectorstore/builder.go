package vectorstore

import (
	"context"
	"errors"
	"time"

	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/embedding"
	"exoplanet-classifier-be/pkg/exo"
)

// Embedder is the part of embedding.Client the builder needs.
type Embedder interface {
	EmbedWithProgress(ctx context.Context, texts []string, progress embedding.ProgressFunc) ([][]float32, error)
	ProviderName() string
}

// ProgressFunc receives a build percentage in [0, 98]. Callers own 99 and 100.
type ProgressFunc func(percent int)

const (
	ProgressEmbedded = 97
	ProgressFitted   = 98
	ProgressSaved    = 99
)

type Builder struct {
	embedder Embedder
	log      logger.ILogger
}

func NewBuilder(embedder Embedder, log logger.ILogger) *Builder {
	return &Builder{embedder: embedder, log: log}
}

// Usable keeps rows that can serve as labeled few-shot examples: all features present,
// a disposition set, and an id not seen before.
func Usable(rows []exo.Row) (kept []exo.Row, malformed, unlabeled, duplicate int) {
	seen := make(map[string]struct{}, len(rows))
	kept = make([]exo.Row, 0, len(rows))
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			malformed++
			continue
		}
		if !r.Labeled() {
			unlabeled++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			duplicate++
			continue
		}
		seen[r.ID] = struct{}{}
		kept = append(kept, r)
	}
	return kept, malformed, unlabeled, duplicate
}

// Build embeds the usable rows and fits a new index. An empty input yields an empty index.
func (b *Builder) Build(ctx context.Context, key Key, rows []exo.Row, progress ProgressFunc) (*Bundle, error) {
	if progress == nil {
		progress = func(int) {}
	}

	usable, malformed, unlabeled, duplicate := Usable(rows)
	if malformed+unlabeled+duplicate > 0 {
		b.log.Info("VECTORSTORE", "Dropped rows before indexing", map[string]interface{}{
			"key":       string(key),
			"malformed": malformed,
			"unlabeled": unlabeled,
			"duplicate": duplicate,
		})
	}
	progress(0)

	texts, err := exo.FormatAll(usable)
	if err != nil {
		return nil, &BuildFailedError{Key: key, Err: err}
	}

	vectors, err := b.embedder.EmbedWithProgress(ctx, texts, func(done, total int) {
		progress(done * ProgressEmbedded / total)
	})
	if err != nil {
		return nil, &BuildFailedError{Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &BuildFailedError{Key: key, Err: err}
	}

	ix, err := NewIndex(vectors, usable)
	if err != nil {
		return nil, &BuildFailedError{Key: key, Err: err}
	}
	progress(ProgressFitted)

	return &Bundle{
		Key:     key,
		Index:   ix,
		Model:   b.embedder.ProviderName(),
		BuiltAt: time.Now().UTC(),
	}, nil
}

// IsCancelled reports whether a build error came from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
