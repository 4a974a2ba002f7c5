package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"exoplanet-classifier-be/internal/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Repository persists bundles in a BlobStore and caches the installed bundle per key.
// Readers only take the lock to read the bundle pointer.
type Repository struct {
	blobs       BlobStore
	compression Compression
	log         logger.ILogger

	mu    sync.RWMutex
	cache map[Key]*Bundle

	group singleflight.Group
}

func NewRepository(blobs BlobStore, compression Compression, log logger.ILogger) *Repository {
	return &Repository{
		blobs:       blobs,
		compression: compression,
		log:         log,
		cache:       make(map[Key]*Bundle),
	}
}

func (r *Repository) Blobs() BlobStore {
	return r.blobs
}

// Load reads and decodes the persisted bundle without touching the cache.
func (r *Repository) Load(ctx context.Context, key Key) (*Bundle, error) {
	data, err := r.blobs.Get(ctx, key.BlobName())
	if errors.Is(err, ErrBlobNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", key, err)
	}
	return Decode(key, data)
}

// Save persists the bundle and then installs it for readers.
func (r *Repository) Save(ctx context.Context, b *Bundle) error {
	data, err := EncodeBytes(b, r.compression)
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", b.Key, err)
	}
	if err := r.blobs.Put(ctx, b.Key.BlobName(), data); err != nil {
		return fmt.Errorf("write bundle %s: %w", b.Key, err)
	}
	r.Install(b)
	return nil
}

func (r *Repository) Exists(ctx context.Context, key Key) (bool, error) {
	if r.Cached(key) != nil {
		return true, nil
	}
	return r.blobs.Exists(ctx, key.BlobName())
}

// Install swaps the cached bundle for its key.
func (r *Repository) Install(b *Bundle) {
	r.mu.Lock()
	r.cache[b.Key] = b
	r.mu.Unlock()
}

// Invalidate drops the cached bundle so the next read reloads it from storage.
func (r *Repository) Invalidate(key Key) {
	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()
}

func (r *Repository) Cached(key Key) *Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache[key]
}

// Get returns the installed bundle, loading it once from storage on a cache miss.
func (r *Repository) Get(ctx context.Context, key Key) (*Bundle, error) {
	if b := r.Cached(key); b != nil {
		return b, nil
	}

	v, err, _ := r.group.Do("load:"+string(key), func() (interface{}, error) {
		if b := r.Cached(key); b != nil {
			return b, nil
		}
		b, err := r.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		// a Save racing with this load wins
		if current, ok := r.cache[key]; ok {
			return current, nil
		}
		r.cache[key] = b
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Resolve selects the bundle of a session, falling back to the default bundle.
// A missing session bundle falls back silently, a corrupt one with a warning.
func (r *Repository) Resolve(ctx context.Context, sessionID string) (*Bundle, error) {
	if sessionID != "" {
		b, err := r.Get(ctx, SessionKey(sessionID))
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrStoreNotFound) {
			r.log.Warn("VECTORSTORE", "Session store unusable, using default", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
	return r.Get(ctx, DefaultKey)
}

// EnsureDefault loads the default bundle, building and saving it with build when it is absent
// or unreadable. Concurrent callers share one build.
func (r *Repository) EnsureDefault(ctx context.Context, build func(ctx context.Context) (*Bundle, error)) (*Bundle, error) {
	v, err, _ := r.group.Do("ensure:"+string(DefaultKey), func() (interface{}, error) {
		b, err := r.Get(ctx, DefaultKey)
		if err == nil {
			return b, nil
		}

		var corrupt *StoreCorruptError
		switch {
		case errors.Is(err, ErrStoreNotFound):
			r.log.Info("VECTORSTORE", "Default store absent, building", nil)
		case errors.As(err, &corrupt):
			r.log.Warn("VECTORSTORE", "Default store corrupt, rebuilding", map[string]interface{}{"error": err.Error()})
		default:
			return nil, err
		}

		b, err = build(ctx)
		if err != nil {
			return nil, err
		}
		if b.Key != DefaultKey {
			return nil, fmt.Errorf("default build produced key %s", b.Key)
		}
		if err := r.Save(ctx, b); err != nil {
			return nil, err
		}
		r.log.Info("VECTORSTORE", "Default store installed", map[string]interface{}{"rows": b.Len()})
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// DeleteSession removes the session's bundle and every other blob under its prefix.
func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	key := SessionKey(sessionID)
	r.Invalidate(key)
	return r.blobs.DeletePrefix(ctx, key.Dir())
}
