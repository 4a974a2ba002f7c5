package vectorstore

import (
	"context"
	"errors"
	"testing"

	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/exo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDropsUnusableRows(t *testing.T) {
	emb := &featureEmbedder{}
	b := NewBuilder(emb, logger.NewNopLogger())

	missing := row("3", exo.Candidate, 1, 1, 1, 1, 1)
	missing.Depth = nil
	unlabeled := row("4", exo.Candidate, 1, 1, 1, 1, 1)
	unlabeled.Disposition = nil

	rows := []exo.Row{
		row("1", exo.Candidate, 10, 3, 500, 2, 800),
		row("2", exo.FalsePositive, 1, 1, 20000, 20, 2000),
		missing,
		unlabeled,
		row("1", exo.FalsePositive, 5, 5, 5, 5, 5),
	}

	bundle, err := b.Build(context.Background(), DefaultKey, rows, nil)
	require.NoError(t, err)
	require.Equal(t, 2, bundle.Len())
	assert.Equal(t, "1", bundle.Index.Row(0).ID)
	assert.Equal(t, exo.Candidate, *bundle.Index.Row(0).Disposition)
	assert.Equal(t, "2", bundle.Index.Row(1).ID)
	assert.Equal(t, "features", bundle.Model)
}

func TestBuilderEmptyInput(t *testing.T) {
	b := NewBuilder(&featureEmbedder{}, logger.NewNopLogger())

	bundle, err := b.Build(context.Background(), SessionKey("s"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, bundle.Len())

	hits, err := bundle.Index.Search([]float32{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuilderProgressIsMonotonic(t *testing.T) {
	b := NewBuilder(&featureEmbedder{}, logger.NewNopLogger())
	rows := make([]exo.Row, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, row(string(rune('a'+i)), exo.Candidate, float64(i+1), 1, 1, 1, 1))
	}

	var seen []int
	_, err := b.Build(context.Background(), DefaultKey, rows, func(p int) { seen = append(seen, p) })
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, ProgressFitted, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestBuilderCancelled(t *testing.T) {
	b := NewBuilder(&featureEmbedder{}, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, DefaultKey, []exo.Row{row("1", exo.Candidate, 1, 1, 1, 1, 1)}, nil)
	var failed *BuildFailedError
	require.True(t, errors.As(err, &failed))
	assert.True(t, IsCancelled(err))
}
