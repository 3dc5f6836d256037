// Package nursery provides a structured-concurrency scope for Go.
//
// A Scope (a "nursery") owns every task it spawns. Close blocks until all of
// them have returned and reports every failure as a single AggregateError, so
// no error raised by a child goes unnoticed. All children share one
// cancellation token; the first failure, an explicit Stop, or Close signals
// it, and later Spawn calls are rejected with a ScopeClosedError.
//
//	err := nursery.Run(ctx, func(s *nursery.Scope) error {
//		return s.Spawn(func(ctx context.Context) error {
//			return nursery.Sleep(s, time.Second)
//		})
//	})
package nursery
