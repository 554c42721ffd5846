package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrFatalConfig marks start-of-run failures: the input directory or the
	// storage backend is unusable, so nothing was processed.
	ErrFatalConfig = errors.New("fatal configuration error")

	// ErrBatchCommit marks a batch that still failed after every retry.
	ErrBatchCommit = errors.New("batch commit failed")
)

// FatalError aborts a run. Stage names the state the run was in.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(stage string, kind, cause error) *FatalError {
	return &FatalError{Stage: stage, Err: fmt.Errorf("%w: %w", kind, cause)}
}
