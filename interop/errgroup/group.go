// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics on top of nursery.Scope. It eases migrating errgroup call sites
// without changing their shape.
package errgroup

import (
	"context"
	"errors"
	"sync"

	"github.com/NetPo4ki/go-nursery/nursery"
)

// Group is an errgroup-like wrapper over nursery.Scope.
type Group struct {
	s *nursery.Scope

	// functions passed to Go after the scope stopped
	late    sync.WaitGroup
	mu      sync.Mutex
	lateErr error
}

// WithContext creates a Group bound to ctx. The returned context is canceled
// when any function passed to Go returns a non-nil error, or when Wait
// returns.
func WithContext(ctx context.Context, opts ...nursery.Option) (*Group, context.Context) {
	s := nursery.New(ctx, opts...)
	return &Group{s: s}, s.Token()
}

// Go calls f on a new goroutine. Once the group has stopped, f still runs, as
// it would under x/sync/errgroup, and Wait joins it; its error is reported
// only if nothing failed before it.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	err := g.s.Spawn(func(context.Context) error { return f() })
	if !errors.Is(err, nursery.ErrClosed) {
		return
	}
	g.late.Add(1)
	go func() {
		defer g.late.Done()
		if err := f(); err != nil {
			g.mu.Lock()
			if g.lateErr == nil {
				g.lateErr = err
			}
			g.mu.Unlock()
		}
	}()
}

// TryGo is like Go but only starts f while the group is still running, and
// reports whether it did.
func (g *Group) TryGo(f func() error) bool {
	if f == nil {
		return false
	}
	return g.s.Spawn(func(context.Context) error { return f() }) == nil
}

// Wait blocks until all functions have returned and returns the first
// non-nil error, or nil on success. Close the underlying Scope instead to get
// every failure.
func (g *Group) Wait() error {
	err := g.s.Close()
	g.late.Wait()
	var agg *nursery.AggregateError
	if errors.As(err, &agg) && len(agg.Errors) > 0 {
		return agg.Errors[0]
	}
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lateErr
}

// Scope exposes the underlying scope.
func (g *Group) Scope() *nursery.Scope { return g.s }
