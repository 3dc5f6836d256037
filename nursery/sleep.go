package nursery

import "time"

// Sleep blocks for d or until s's token fires, whichever comes first. It
// returns a *CancellationError in the latter case. A non-positive d only
// checks the token.
//
// Every sleeper waits on the token's Done channel, so Stop wakes all of them
// at once.
func Sleep(s *Scope, d time.Duration) error {
	tok := s.Token()
	if tok.Err() != nil {
		return newCancellationError(tok)
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-tok.Done():
		return newCancellationError(tok)
	}
}
