package engine

import "time"

// RewindDeadline moves the current phase deadline back so tests can hit the
// expired-submission path without racing the timer goroutine.
func (s *Session) RewindDeadline(d time.Duration) {
	s.mu.Lock()
	s.deadline = s.deadline.Add(-d)
	s.mu.Unlock()
}

// FireDeadline delivers a deadline expiry with an explicit epoch, as the
// timer goroutine would.
func (s *Session) FireDeadline(epoch int) {
	s.onDeadline(epoch)
}

// CurrentEpoch returns the timer generation counter.
func (s *Session) CurrentEpoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}
