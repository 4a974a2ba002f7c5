package embedding

import "context"

// EmbeddingProvider turns a batch of texts into vectors, one per text, in input order.
type EmbeddingProvider interface {
	Generate(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}
