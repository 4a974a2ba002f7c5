package vectorstore

import (
	"context"
	"errors"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds opaque objects by slash-separated name.
// Put must make the object visible only once it is complete.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Exists(ctx context.Context, name string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
