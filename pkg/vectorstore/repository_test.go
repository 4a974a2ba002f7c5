package vectorstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/exo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, *LocalStore) {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewRepository(store, CompressionZstd, logger.NewNopLogger()), store
}

func TestRepositorySaveLoad(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	in := sampleBundle(t, SessionKey("abc"))
	require.NoError(t, repo.Save(ctx, in))

	ok, err := repo.Exists(ctx, SessionKey("abc"))
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := repo.Load(ctx, SessionKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, in.Index.Rows(), out.Index.Rows())
}

func TestRepositoryLoadMissing(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Load(context.Background(), SessionKey("nope"))
	assert.ErrorIs(t, err, ErrStoreNotFound)

	ok, err := repo.Exists(context.Background(), SessionKey("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	def := sampleBundle(t, DefaultKey)
	require.NoError(t, repo.Save(ctx, def))

	t.Run("missing session", func(t *testing.T) {
		b, err := repo.Resolve(ctx, "unknown")
		require.NoError(t, err)
		assert.Equal(t, DefaultKey, b.Key)
	})

	t.Run("placeholder session file", func(t *testing.T) {
		pointer := []byte("version https://git-lfs.github.com/spec/v1\noid sha256:deadbeef\nsize 42\n")
		require.NoError(t, store.Put(ctx, SessionKey("lfs").BlobName(), pointer))

		b, err := repo.Resolve(ctx, "lfs")
		require.NoError(t, err)
		assert.Equal(t, DefaultKey, b.Key)
	})

	t.Run("valid session", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, sampleBundle(t, SessionKey("mine"))))

		b, err := repo.Resolve(ctx, "mine")
		require.NoError(t, err)
		assert.Equal(t, SessionKey("mine"), b.Key)
	})

	t.Run("no session", func(t *testing.T) {
		b, err := repo.Resolve(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultKey, b.Key)
	})
}

func TestGetReadsFromStorageOnce(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	writer := NewRepository(store, CompressionLZ4, logger.NewNopLogger())
	require.NoError(t, writer.Save(ctx, sampleBundle(t, DefaultKey)))

	reader := NewRepository(store, CompressionLZ4, logger.NewNopLogger())
	a, err := reader.Get(ctx, DefaultKey)
	require.NoError(t, err)
	b, err := reader.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Same(t, a, b)

	reader.Invalidate(DefaultKey)
	c, err := reader.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestEnsureDefaultBuildsOnce(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	var builds atomic.Int32
	build := func(ctx context.Context) (*Bundle, error) {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return sampleBundle(t, DefaultKey), nil
	}

	var wg sync.WaitGroup
	results := make([]*Bundle, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := repo.EnsureDefault(ctx, build)
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}

	// already on disk: a fresh repository loads instead of building
	fresh := NewRepository(repo.Blobs(), CompressionZstd, logger.NewNopLogger())
	_, err := fresh.EnsureDefault(ctx, build)
	require.NoError(t, err)
	assert.Equal(t, int32(1), builds.Load())
}

func TestEnsureDefaultRebuildsCorruptFile(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, DefaultKey.BlobName(), []byte("version https://git-lfs.github.com/spec/v1\n")))

	b, err := repo.EnsureDefault(ctx, func(ctx context.Context) (*Bundle, error) {
		return sampleBundle(t, DefaultKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())

	loaded, err := repo.Load(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
}

func TestEnsureDefaultPropagatesBuildError(t *testing.T) {
	repo, _ := newTestRepository(t)
	boom := errors.New("base dataset missing")

	_, err := repo.EnsureDefault(context.Background(), func(ctx context.Context) (*Bundle, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDeleteSessionRemovesPrefix(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleBundle(t, SessionKey("gone"))))
	require.NoError(t, store.Put(ctx, SessionDataBlob("gone"), []byte("type,id\n")))

	require.NoError(t, repo.DeleteSession(ctx, "gone"))

	for _, name := range []string{SessionKey("gone").BlobName(), SessionDataBlob("gone")} {
		ok, err := store.Exists(ctx, name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
	assert.Nil(t, repo.Cached(SessionKey("gone")))
}

// Readers racing a swap see either the whole old bundle or the whole new one.
func TestInstallIsAtomicForReaders(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	oldRows := []exo.Row{row("old-1", exo.Candidate, 1, 1, 1, 1, 1), row("old-2", exo.Candidate, 2, 2, 2, 2, 2)}
	newRows := []exo.Row{
		row("new-1", exo.FalsePositive, 3, 3, 3, 3, 3),
		row("new-2", exo.FalsePositive, 4, 4, 4, 4, 4),
		row("new-3", exo.FalsePositive, 5, 5, 5, 5, 5),
	}
	mk := func(rows []exo.Row) *Bundle {
		vs := make([][]float32, len(rows))
		for i := range vs {
			vs[i] = []float32{float32(i + 1)}
		}
		ix, err := NewIndex(vs, rows)
		require.NoError(t, err)
		return &Bundle{Key: DefaultKey, Index: ix}
	}
	repo.Install(mk(oldRows))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				b, err := repo.Get(ctx, DefaultKey)
				if !assert.NoError(t, err) {
					return
				}
				rows := b.Index.Rows()
				switch len(rows) {
				case 2:
					assert.Equal(t, "old-1", rows[0].ID)
				case 3:
					assert.Equal(t, "new-1", rows[0].ID)
				default:
					t.Errorf("observed partial bundle with %d rows", len(rows))
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.Save(ctx, mk(newRows)))
	time.Sleep(5 * time.Millisecond)
	close(stop)
	wg.Wait()

	b, err := repo.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
}
