package nursery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Work is a unit of work run by a Scope. ctx is the scope's token.
type Work func(ctx context.Context) error

type Scope struct {
	ctx context.Context

	mu       sync.Mutex
	idle     *sync.Cond
	cancel   context.CancelCauseFunc // nil once stopped
	failures []error
	running  int

	exec Executor
	opts Options
	obs  Observer
	log  *slog.Logger
}

func New(parent context.Context, optFns ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	s := &Scope{ctx: ctx, cancel: cancel, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	s.idle = sync.NewCond(&s.mu)
	s.exec = s.opts.Executor
	if s.exec == nil {
		s.exec = DefaultExecutor()
	}
	s.obs = s.opts.Observer
	s.log = s.opts.Logger
	if s.log == nil {
		s.log = logger.Load()
	}
	if s.obs != nil {
		s.obs.ScopeCreated(ctx)
	}
	return s
}

// Run creates a Scope, calls fn with it and closes the scope on the way out,
// even if fn panics. The returned error joins fn's error with Close's.
func Run(parent context.Context, fn func(s *Scope) error, optFns ...Option) (err error) {
	s := New(parent, optFns...)
	defer func() {
		r := recover()
		closeErr := s.Close()
		if r != nil {
			panic(r)
		}
		err = errors.Join(err, closeErr)
	}()
	return fn(s)
}

// Token returns the scope's cancellation token. It is canceled on the first
// failure, on Stop, or on Close; context.Cause reports which.
func (s *Scope) Token() context.Context { return s.ctx }

// Running returns the number of accepted tasks that have not finished yet.
func (s *Scope) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stopped reports whether the scope has stopped accepting tasks.
func (s *Scope) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel == nil
}

// Spawn starts fn on the scope's executor. It fails with a *ScopeClosedError
// once the scope has stopped.
func (s *Scope) Spawn(fn Work) error {
	s.mu.Lock()
	if s.cancel == nil {
		var cause error
		if len(s.failures) > 0 {
			cause = newAggregateError(s.failures)
		}
		s.mu.Unlock()
		return &ScopeClosedError{Cause: cause}
	}
	if fn == nil {
		s.mu.Unlock()
		return nil
	}
	s.running++
	s.mu.Unlock()

	s.exec.Submit(s.ctx, func(ctx context.Context) {
		s.run(ctx, fn)
	})
	return nil
}

func (s *Scope) run(ctx context.Context, fn Work) {
	var (
		start    time.Time
		err      error
		panicked bool
		rec      *panics.Recovered
	)
	if s.obs != nil {
		start = time.Now()
		s.obs.TaskStarted(ctx)
	}

	if ctx.Err() != nil {
		err = newCancellationError(ctx)
	} else {
		var pc panics.Catcher
		pc.Try(func() { err = fn(ctx) })
		if rec = pc.Recovered(); rec != nil {
			panicked = true
			err = rec.AsError()
		}
	}

	if panicked && !s.opts.PanicAsError {
		err = nil
	}
	if s.obs != nil {
		s.obs.TaskFinished(ctx, time.Since(start), err, panicked)
	}
	s.finish(err)
	if panicked && !s.opts.PanicAsError {
		panic(rec.Value)
	}
}

// finish records err, if any, and retires one running task. The failure is
// appended, and the stop reported, before the count drops so a woken Close
// always sees both.
func (s *Scope) finish(err error) {
	if err != nil {
		s.mu.Lock()
		if s.record(err) {
			s.log.Debug("nursery: task failed", slog.Any("error", err))
		}
		stopped := s.stopLocked(err)
		s.mu.Unlock()
		if stopped {
			s.stopped(err)
		}
	}
	s.mu.Lock()
	s.running--
	if s.running == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Scope) record(err error) bool {
	if s.opts.DropConsequentialCancellations && len(s.failures) > 0 {
		var ce *CancellationError
		if errors.As(err, &ce) {
			return false
		}
	}
	s.failures = append(s.failures, err)
	return true
}

// Stop cancels the token and rejects further Spawn calls. It is a no-op on a
// stopped scope.
func (s *Scope) Stop() {
	s.mu.Lock()
	stopped := s.stopLocked(ErrStopped)
	s.mu.Unlock()
	if stopped {
		s.stopped(ErrStopped)
	}
}

func (s *Scope) stopLocked(cause error) bool {
	if s.cancel == nil {
		return false
	}
	s.cancel(cause)
	s.cancel = nil
	return true
}

func (s *Scope) stopped(cause error) {
	s.log.Debug("nursery: scope stopped", slog.Any("cause", cause))
	if s.obs != nil {
		s.obs.ScopeStopped(s.ctx, cause)
	}
}

// Close waits for every spawned task, including tasks spawned by other tasks,
// then stops the scope. It returns an *AggregateError holding every recorded
// failure, or nil. Calling Close again returns an equivalent result.
func (s *Scope) Close() error {
	var start time.Time
	if s.obs != nil {
		start = time.Now()
	}

	s.mu.Lock()
	for s.running > 0 {
		s.idle.Wait()
	}
	stopped := s.stopLocked(ErrClosed)
	var err error
	if len(s.failures) > 0 {
		err = newAggregateError(s.failures)
	}
	s.mu.Unlock()

	if stopped {
		s.stopped(ErrClosed)
	}
	s.log.Debug("nursery: scope closed", slog.Any("error", err))
	if s.obs != nil {
		s.obs.ScopeClosed(s.ctx, time.Since(start), err)
	}
	return err
}
