package vectorstore

import (
	"errors"
	"fmt"
)

var ErrStoreNotFound = errors.New("vector store not found")

// StoreCorruptError is returned when a persisted bundle cannot be decoded.
type StoreCorruptError struct {
	Key    Key
	Reason string
	Err    error
}

func (e *StoreCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vector store %s is corrupt: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("vector store %s is corrupt: %s", e.Key, e.Reason)
}

func (e *StoreCorruptError) Unwrap() error {
	return e.Err
}

// BuildFailedError wraps the cause of a failed index build.
type BuildFailedError struct {
	Key Key
	Err error
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("building vector store %s failed: %v", e.Key, e.Err)
}

func (e *BuildFailedError) Unwrap() error {
	return e.Err
}
