package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/heldout"
	"exoplanet-classifier-be/pkg/llm"
	"exoplanet-classifier-be/pkg/rag/prompt"
	"exoplanet-classifier-be/pkg/rag/retriever"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type featureEmbedder struct{}

func (featureEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	var p, d, dep, r, temp float32
	_, err := fmt.Sscanf(text, "period=%f, duration=%f, depth=%f, radius=%f, temp=%f", &p, &d, &dep, &r, &temp)
	return []float32{p, d, dep, r, temp}, err
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

type stubLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	history [][]llm.Message
	options []llm.Options
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.mu.Lock()
	s.history = append(s.history, history)
	s.options = append(s.options, llm.Apply(llm.Options{}, opts...))
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *stubLLM) Generate(ctx context.Context, p string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: p}}, opts...)
}

func (s *stubLLM) lastUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[len(s.history)-1]
	return h[len(h)-1].Content
}

type staticResolver struct {
	bundle *vectorstore.Bundle
	err    error
}

func (r staticResolver) Resolve(context.Context, string) (*vectorstore.Bundle, error) {
	return r.bundle, r.err
}

func row(id string, disp *exo.Disposition, f ...float64) exo.Row {
	return exo.Row{
		ID:                     id,
		Disposition:            disp,
		Period:                 exo.Float(f[0]),
		Duration:               exo.Float(f[1]),
		Depth:                  exo.Float(f[2]),
		PlanetaryRadius:        exo.Float(f[3]),
		EquilibriumTemperature: exo.Float(f[4]),
	}
}

func twoRowBundle(t *testing.T) *vectorstore.Bundle {
	t.Helper()
	rows := []exo.Row{
		row("1", exo.Candidate.Ptr(), 10, 3, 500, 2, 800),
		row("2", exo.FalsePositive.Ptr(), 1, 0.5, 20000, 30, 2500),
	}
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		text, err := exo.Format(r)
		require.NoError(t, err)
		vectors[i], err = featureEmbedder{}.EmbedOne(context.Background(), text)
		require.NoError(t, err)
	}
	ix, err := vectorstore.NewIndex(vectors, rows)
	require.NoError(t, err)
	return &vectorstore.Bundle{Key: vectorstore.DefaultKey, Index: ix}
}

func newClassifier(b *vectorstore.Bundle, model *stubLLM) *Classifier {
	return New(staticResolver{bundle: b}, retriever.New(featureEmbedder{}, 3), model, Options{}, logger.NewNopLogger())
}

var nearRowOne = row("q", nil, 10.05, 3.01, 502, 2.01, 801)

func TestClassifyPicksNearestExample(t *testing.T) {
	model := &stubLLM{reply: "CANDIDATE"}
	c := newClassifier(twoRowBundle(t), model)

	res := c.Classify(context.Background(), Request{Row: nearRowOne, K: 1, Exclude: heldout.New(), WithEvidence: true})
	require.NoError(t, res.Err)
	assert.Equal(t, exo.LabelCandidate, res.Label)
	assert.Equal(t, StageDone, res.Stage)
	require.Len(t, res.Neighbors, 1)
	assert.Equal(t, "1", res.Neighbors[0].Row.ID)

	lines := prompt.ExampleLines(model.lastUser())
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "-> CANDIDATE"))

	opts := model.options[0]
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.0, *opts.Temperature)
	assert.Equal(t, DefaultMaxTokens, opts.MaxTokens)
}

func TestClassifyHonoursExclusion(t *testing.T) {
	model := &stubLLM{reply: "FALSE POSITIVE"}
	c := newClassifier(twoRowBundle(t), model)

	res := c.Classify(context.Background(), Request{Row: nearRowOne, K: 1, Exclude: heldout.New("1"), WithEvidence: true})
	require.NoError(t, res.Err)
	require.Len(t, res.Neighbors, 1)
	assert.Equal(t, "2", res.Neighbors[0].Row.ID)

	lines := prompt.ExampleLines(model.lastUser())
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "-> FALSE POSITIVE"))
	assert.Equal(t, exo.LabelFalsePositive, res.Label)
}

func TestClassifyEmptyStoreStillCallsCompletion(t *testing.T) {
	model := &stubLLM{reply: "candidate"}
	empty := &vectorstore.Bundle{Key: vectorstore.DefaultKey, Index: vectorstore.EmptyIndex()}
	c := newClassifier(empty, model)

	res := c.Classify(context.Background(), Request{Row: nearRowOne, K: 5})
	assert.Equal(t, exo.LabelCandidate, res.Label)
	assert.Equal(t, 0, res.NeighborsUsed)
	require.Len(t, model.history, 1)
	assert.Empty(t, prompt.ExampleLines(model.lastUser()))
	assert.Contains(t, model.lastUser(), "-> ?")
}

func TestClassifyNormalizesResponse(t *testing.T) {
	tests := []struct {
		reply string
		want  exo.Label
	}{
		{"  candidate ", exo.LabelCandidate},
		{"false positive", exo.LabelFalsePositive},
		{"maybe", exo.LabelError},
		{"", exo.LabelError},
		{"CANDIDATE because the depth is shallow", exo.LabelError},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			c := newClassifier(twoRowBundle(t), &stubLLM{reply: tt.reply})
			res := c.Classify(context.Background(), Request{Row: nearRowOne, K: 1})
			assert.Equal(t, tt.want, res.Label)
			if tt.want == exo.LabelError {
				assert.Equal(t, StageAwaitingCompletion, res.FailedAt)
				assert.NotEmpty(t, res.Reason)
				var unexpected *UnexpectedLabelError
				assert.ErrorAs(t, res.Err, &unexpected)
			}
		})
	}
}

func TestClassifyFailuresMapToError(t *testing.T) {
	t.Run("completion error", func(t *testing.T) {
		model := &stubLLM{err: errors.New("503")}
		res := newClassifier(twoRowBundle(t), model).Classify(context.Background(), Request{Row: nearRowOne})
		assert.Equal(t, exo.LabelError, res.Label)
		var svc *CompletionServiceError
		assert.ErrorAs(t, res.Err, &svc)
		assert.Len(t, model.history, 1, "no automatic retry")
	})

	t.Run("completion timeout", func(t *testing.T) {
		model := &stubLLM{reply: "CANDIDATE", delay: time.Second}
		c := New(staticResolver{bundle: twoRowBundle(t)}, retriever.New(featureEmbedder{}, 3), model,
			Options{CompletionTimeout: 10 * time.Millisecond}, logger.NewNopLogger())
		res := c.Classify(context.Background(), Request{Row: nearRowOne})
		assert.Equal(t, exo.LabelError, res.Label)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
		assert.Contains(t, res.Reason, "timed out")
	})

	t.Run("embedding error", func(t *testing.T) {
		model := &stubLLM{reply: "CANDIDATE"}
		c := New(staticResolver{bundle: twoRowBundle(t)}, retriever.New(failingEmbedder{}, 3), model, Options{}, logger.NewNopLogger())
		res := c.Classify(context.Background(), Request{Row: nearRowOne})
		assert.Equal(t, exo.LabelError, res.Label)
		assert.Equal(t, StageRetrieving, res.FailedAt)
		assert.Empty(t, model.history)
	})

	t.Run("store error", func(t *testing.T) {
		model := &stubLLM{reply: "CANDIDATE"}
		c := New(staticResolver{err: vectorstore.ErrStoreNotFound}, retriever.New(featureEmbedder{}, 3), model, Options{}, logger.NewNopLogger())
		res := c.Classify(context.Background(), Request{Row: nearRowOne})
		assert.Equal(t, exo.LabelError, res.Label)
		assert.Equal(t, StageResolvingStore, res.FailedAt)
	})

	t.Run("malformed row", func(t *testing.T) {
		model := &stubLLM{reply: "CANDIDATE"}
		q := nearRowOne
		q.Period = nil
		res := newClassifier(twoRowBundle(t), model).Classify(context.Background(), Request{Row: q})
		assert.Equal(t, exo.LabelError, res.Label)
		var malformed *exo.MalformedRowError
		assert.ErrorAs(t, res.Err, &malformed)
		assert.Empty(t, model.history)
	})
}

func TestClassifyDoesNotMutateInputs(t *testing.T) {
	b := twoRowBundle(t)
	before := b.Index.Rows()
	set := heldout.New("2")

	res := newClassifier(b, &stubLLM{reply: "CANDIDATE"}).Classify(context.Background(), Request{Row: nearRowOne, Exclude: set})
	require.NoError(t, res.Err)

	assert.Equal(t, before, b.Index.Rows())
	assert.Equal(t, []string{"2"}, set.IDs())
}

func TestClassifyDefaultK(t *testing.T) {
	c := newClassifier(twoRowBundle(t), &stubLLM{reply: "CANDIDATE"})
	assert.Equal(t, DefaultK, c.DefaultK())

	res := c.Classify(context.Background(), Request{Row: nearRowOne})
	assert.Equal(t, 2, res.NeighborsUsed)
	assert.Nil(t, res.Neighbors)
}
