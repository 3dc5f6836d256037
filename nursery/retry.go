package nursery

import (
	"context"
	"log/slog"
)

// StartWithRetry spawns a single task that runs fn until it succeeds or
// classify rejects its error. classify is called on the task's goroutine,
// only for failures, and returns true to run fn again. A rejected error is
// recorded like any other task failure.
func StartWithRetry(s *Scope, fn Work, classify func(err error) bool) error {
	if fn == nil {
		return s.Spawn(nil)
	}
	ro, _ := s.obs.(RetryObserver)
	return s.Spawn(func(ctx context.Context) error {
		for attempt := 1; ; attempt++ {
			err := fn(ctx)
			if err == nil {
				return nil
			}
			if !classify(err) {
				return err
			}
			s.log.Debug("nursery: retrying task", slog.Int("attempt", attempt), slog.Any("error", err))
			if ro != nil {
				ro.TaskRetried(ctx, attempt, err)
			}
		}
	})
}
