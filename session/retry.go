package session

import "fmt"

// withRetry executes one remote operation with the session's bounded
// retry policy. A connection being present is treated as necessary but
// not sufficient: archive-side timeouts kill sessions silently, so a
// failed attempt faults the session and reconnects before retrying.
// A successful attempt short-circuits further retries.
func (s *Session) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if s.state != StateConnected {
			if cerr := s.Reconnect(); cerr != nil {
				return fmt.Errorf("%s: %v", op, cerr)
			}
		}

		err = fn()
		if err == nil {
			return nil
		}

		s.state = StateFaulted
		if attempt < s.maxAttempts {
			s.rep.Warnf("%s failed (attempt %d/%d): %v, reconnecting",
				op, attempt, s.maxAttempts, err)
			if cerr := s.Reconnect(); cerr != nil {
				return fmt.Errorf("%s: %v", op, cerr)
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %v", op, s.maxAttempts, err)
}
