package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const MaxBatchSize = 500

// ProgressFunc receives the number of texts embedded so far and the total.
type ProgressFunc func(done, total int)

type ClientOptions struct {
	BatchSize int
	Timeout   time.Duration
	// RequestsPerSecond caps provider calls; zero disables limiting.
	RequestsPerSecond float64
}

// Client batches texts to an EmbeddingProvider.
type Client struct {
	provider  EmbeddingProvider
	batchSize int
	timeout   time.Duration
	limiter   *rate.Limiter
}

func NewClient(provider EmbeddingProvider, opts ClientOptions) *Client {
	batchSize := opts.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		provider:  provider,
		batchSize: batchSize,
		timeout:   timeout,
		limiter:   limiter,
	}
}

func (c *Client) ProviderName() string {
	return c.provider.Name()
}

func (c *Client) BatchSize() int {
	return c.batchSize
}

// Embed returns one vector per text, preserving order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.EmbedWithProgress(ctx, texts, nil)
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedWithProgress(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, &InvalidInputError{Index: i}
		}
	}

	out := make([][]float32, 0, len(texts))
	for batch, start := 0, 0; start < len(texts); batch, start = batch+1, start+c.batchSize {
		end := min(start+c.batchSize, len(texts))

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ServiceError{Provider: c.provider.Name(), Batch: batch, Err: err}
		}

		vectors, err := c.generate(ctx, texts[start:end])
		if err != nil {
			return nil, &ServiceError{Provider: c.provider.Name(), Batch: batch, Err: err}
		}
		out = append(out, vectors...)

		if progress != nil {
			progress(end, len(texts))
		}
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vectors, err := c.provider.Generate(callCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("provider returned an empty vector at position %d", i)
		}
	}
	return vectors, nil
}
