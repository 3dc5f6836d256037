package nursery

import (
	"context"
	"log/slog"
	"time"
)

type Option func(*Options)

type Options struct {
	Executor                       Executor
	Observer                       Observer
	Logger                         *slog.Logger
	PanicAsError                   bool
	DropConsequentialCancellations bool
}

func defaultOptions() Options { return Options{PanicAsError: true} }

// WithExecutor runs the scope's tasks on e instead of DefaultExecutor.
func WithExecutor(e Executor) Option { return func(o *Options) { o.Executor = e } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithLogger overrides the package logger for one scope.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithPanicAsError controls whether a panicking task is recorded as a
// failure (the default) or re-panics on its goroutine after the scope has
// accounted for it.
func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

// WithDropConsequentialCancellations keeps a CancellationError out of the
// aggregate when at least one other failure has already been recorded. By
// default such errors are recorded like any other.
func WithDropConsequentialCancellations(v bool) Option {
	return func(o *Options) { o.DropConsequentialCancellations = v }
}

type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeStopped(ctx context.Context, cause error)
	ScopeClosed(ctx context.Context, wait time.Duration, err error)
	TaskStarted(ctx context.Context)
	TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool)
}

// RetryObserver is implemented by observers that also want to hear about
// failed attempts that StartWithRetry is going to repeat.
type RetryObserver interface {
	TaskRetried(ctx context.Context, attempt int, err error)
}
