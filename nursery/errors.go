package nursery

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed matches every ScopeClosedError and is the token cause when
	// the scope was stopped by Close.
	ErrClosed = errors.New("nursery: scope already stopped")

	// ErrStopped is the token cause after an explicit Stop.
	ErrStopped = errors.New("nursery: stop requested")
)

// CancellationError is returned by Sleep, and recorded for a task that was
// still queued, once the scope's token has fired.
type CancellationError struct {
	// Cause is context.Cause of the token at the time it was observed.
	Cause error
}

func (e *CancellationError) Error() string {
	if e.Cause == nil || errors.Is(e.Cause, context.Canceled) {
		return "nursery: canceled"
	}
	return "nursery: canceled: " + e.Cause.Error()
}

// Is makes every CancellationError match context.Canceled.
func (e *CancellationError) Is(target error) bool {
	return target == context.Canceled
}

func newCancellationError(ctx context.Context) *CancellationError {
	return &CancellationError{Cause: context.Cause(ctx)}
}

// ScopeClosedError is returned by Spawn once the scope has stopped. Cause is
// an *AggregateError of the failures that stopped it, or nil if it was
// stopped explicitly or by Close.
type ScopeClosedError struct {
	Cause error
}

func (e *ScopeClosedError) Error() string {
	if e.Cause == nil {
		return ErrClosed.Error()
	}
	return ErrClosed.Error() + " because of failures in other tasks: " + e.Cause.Error()
}

func (e *ScopeClosedError) Is(target error) bool { return target == ErrClosed }

func (e *ScopeClosedError) Unwrap() error { return e.Cause }

// AggregateError carries every failure recorded by a scope, in the order the
// failing tasks finished.
type AggregateError struct {
	Errors []error
}

func newAggregateError(errs []error) *AggregateError {
	return &AggregateError{Errors: append([]error(nil), errs...)}
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("nursery: 1 task failed: %v", e.Errors[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "nursery: %d tasks failed", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  [%d] %v", i, err)
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }
