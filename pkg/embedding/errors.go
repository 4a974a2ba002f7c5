package embedding

import "fmt"

// ServiceError reports a failed provider call for one batch. No partial output is returned with it.
type ServiceError struct {
	Provider string
	Batch    int
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service %s failed on batch %d: %v", e.Provider, e.Batch, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// InvalidInputError is returned before any network call when an input text is empty after trimming.
type InvalidInputError struct {
	Index int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("embedding input %d is empty", e.Index)
}
