package classifier

import "fmt"

// CompletionServiceError wraps a failed or timed out chat completion.
type CompletionServiceError struct {
	Err error
}

func (e *CompletionServiceError) Error() string {
	return fmt.Sprintf("completion service failed: %v", e.Err)
}

func (e *CompletionServiceError) Unwrap() error {
	return e.Err
}

// UnexpectedLabelError means the completion returned text outside the accepted labels.
type UnexpectedLabelError struct {
	Raw string
}

func (e *UnexpectedLabelError) Error() string {
	return fmt.Sprintf("unexpected label %q", e.Raw)
}
