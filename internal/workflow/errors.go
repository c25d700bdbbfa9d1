package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
)

// FailureKind classifies why a run failed.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureLocator    FailureKind = "locator"
	FailureCheckpoint FailureKind = "checkpoint"
	FailureAction     FailureKind = "action"
	FailureCanceled   FailureKind = "canceled"
	FailureUnknown    FailureKind = "unknown"
)

// StageError wraps the error that ended a stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// CheckpointError reports that a created entity never became visible.
type CheckpointError struct {
	Checkpoint string
	Selector   string
	Timeout    time.Duration
	Err        error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s: %s not visible within %s", e.Checkpoint, e.Selector, e.Timeout)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// Classify maps an error returned by Driver.Run to a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCanceled
	}

	var cpErr *CheckpointError
	if errors.As(err, &cpErr) {
		return FailureCheckpoint
	}
	var locErr *browser.LocatorError
	if errors.As(err, &locErr) || errors.Is(err, browser.ErrNotVisible) {
		return FailureLocator
	}
	var actErr *browser.ActionError
	if errors.As(err, &actErr) {
		return FailureAction
	}
	return FailureUnknown
}
