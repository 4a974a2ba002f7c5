package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProvider returns [len(text), position-in-batch] and records each batch.
type recordingProvider struct {
	mu      sync.Mutex
	batches [][]string
	failOn  int
	delay   time.Duration
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	idx := len(p.batches)
	p.batches = append(p.batches, append([]string(nil), texts...))
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.failOn >= 0 && idx == p.failOn {
		return nil, errors.New("boom")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
	}
	return out, nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("row-%d", i)
	}
	return out
}

func TestClientBatchesAndPreservesOrder(t *testing.T) {
	p := &recordingProvider{failOn: -1}
	c := NewClient(p, ClientOptions{BatchSize: 3})

	in := texts(7)
	out, err := c.Embed(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 7)

	require.Len(t, p.batches, 3)
	assert.Equal(t, []string{"row-0", "row-1", "row-2"}, p.batches[0])
	assert.Equal(t, []string{"row-6"}, p.batches[2])
	// second element is the position inside its batch
	assert.Equal(t, float32(0), out[3][1])
	assert.Equal(t, float32(0), out[6][1])
	assert.Equal(t, float32(2), out[5][1])
}

func TestClientEmptyInputSkipsNetwork(t *testing.T) {
	p := &recordingProvider{failOn: -1}
	c := NewClient(p, ClientOptions{})

	out, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, p.batches)
}

func TestClientRejectsBlankInputBeforeCalling(t *testing.T) {
	p := &recordingProvider{failOn: -1}
	c := NewClient(p, ClientOptions{BatchSize: 2})

	_, err := c.Embed(context.Background(), []string{"a", "b", "c", "   "})
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 3, invalid.Index)
	assert.Empty(t, p.batches)
}

func TestClientReportsFailingBatch(t *testing.T) {
	p := &recordingProvider{failOn: 1}
	c := NewClient(p, ClientOptions{BatchSize: 2})

	out, err := c.Embed(context.Background(), texts(5))
	assert.Nil(t, out)

	var svc *ServiceError
	require.True(t, errors.As(err, &svc))
	assert.Equal(t, 1, svc.Batch)
	assert.Equal(t, "recording", svc.Provider)
}

func TestClientTimeoutIsServiceError(t *testing.T) {
	p := &recordingProvider{failOn: -1, delay: time.Second}
	c := NewClient(p, ClientOptions{Timeout: 10 * time.Millisecond})

	_, err := c.Embed(context.Background(), []string{"slow"})
	var svc *ServiceError
	require.True(t, errors.As(err, &svc))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClientBatchSizeCapped(t *testing.T) {
	c := NewClient(&recordingProvider{failOn: -1}, ClientOptions{BatchSize: 10_000})
	assert.Equal(t, MaxBatchSize, c.BatchSize())
}

func TestClientProgress(t *testing.T) {
	c := NewClient(&recordingProvider{failOn: -1}, ClientOptions{BatchSize: 4})

	var seen []int
	_, err := c.EmbedWithProgress(context.Background(), texts(10), func(done, total int) {
		assert.Equal(t, 10, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 8, 10}, seen)
}

func TestLocalProviderDeterministic(t *testing.T) {
	p := NewLocalProvider(64)
	a, err := p.Generate(context.Background(), []string{"period=1.00, duration=2.000"})
	require.NoError(t, err)
	b, err := p.Generate(context.Background(), []string{"period=1.00, duration=2.000"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a[0], 64)
}
