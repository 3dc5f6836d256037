// Package logging provides a log/slog nursery.Observer. It emits one record
// per scope or task lifecycle event.
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/NetPo4ki/go-nursery/nursery"
)

// Observer writes lifecycle events to a slog.Logger. Successful task events
// are logged at Debug, failures at Warn.
type Observer struct {
	log *slog.Logger
}

var (
	_ nursery.Observer      = (*Observer)(nil)
	_ nursery.RetryObserver = (*Observer)(nil)
)

// New returns an Observer writing to l, or to slog.Default() if l is nil.
func New(l *slog.Logger) *Observer {
	if l == nil {
		l = slog.Default()
	}
	return &Observer{log: l}
}

func (o *Observer) ScopeCreated(ctx context.Context) {
	o.log.DebugContext(ctx, "scope created")
}

func (o *Observer) ScopeStopped(ctx context.Context, cause error) {
	o.log.DebugContext(ctx, "scope stopped", slog.Any("cause", cause))
}

func (o *Observer) ScopeClosed(ctx context.Context, wait time.Duration, err error) {
	if err != nil {
		o.log.WarnContext(ctx, "scope closed with failures", slog.Duration("wait", wait), slog.Any("error", err))
		return
	}
	o.log.DebugContext(ctx, "scope closed", slog.Duration("wait", wait))
}

func (o *Observer) TaskStarted(ctx context.Context) {
	o.log.DebugContext(ctx, "task started")
}

func (o *Observer) TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool) {
	if err != nil || panicked {
		o.log.WarnContext(ctx, "task failed",
			slog.Duration("duration", dur), slog.Any("error", err), slog.Bool("panicked", panicked))
		return
	}
	o.log.DebugContext(ctx, "task finished", slog.Duration("duration", dur))
}

func (o *Observer) TaskRetried(ctx context.Context, attempt int, err error) {
	o.log.InfoContext(ctx, "task retrying", slog.Int("attempt", attempt), slog.Any("error", err))
}
