package counter

import "sync"

// SimUnit is a test double that counts edges injected by Edge.
// Edge may be called from any goroutine, simulating the counting hardware.
type SimUnit struct {
	// PauseError, ClearError, ResumeError and ValueError, if set, are
	// returned by the matching method. Set them before use.
	PauseError  error
	ClearError  error
	ResumeError error
	ValueError  error

	mu     sync.Mutex
	count  int32
	paused bool
	missed int
	closed bool
}

// NewSimUnit creates a running SimUnit with a zero count.
func NewSimUnit() *SimUnit {
	return &SimUnit{}
}

// Edge records n edges. Edges arriving while paused are counted as missed.
func (s *SimUnit) Edge(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.missed += n
		return
	}
	s.count += int32(n)
}

// Set forces the raw counter value, e.g. to simulate a wrapped counter.
func (s *SimUnit) Set(v int32) {
	s.mu.Lock()
	s.count = v
	s.mu.Unlock()
}

// Missed returns how many edges arrived while the unit was paused.
func (s *SimUnit) Missed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missed
}

// Paused reports whether the unit is currently paused.
func (s *SimUnit) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Closed reports whether Close was called.
func (s *SimUnit) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pause stops counting.
func (s *SimUnit) Pause() error {
	if s.PauseError != nil {
		return s.PauseError
	}
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

// Clear zeroes the count.
func (s *SimUnit) Clear() error {
	if s.ClearError != nil {
		return s.ClearError
	}
	s.mu.Lock()
	s.count = 0
	s.mu.Unlock()
	return nil
}

// Resume restarts counting.
func (s *SimUnit) Resume() error {
	if s.ResumeError != nil {
		return s.ResumeError
	}
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

// Value returns the current count.
func (s *SimUnit) Value() (int32, error) {
	if s.ValueError != nil {
		return 0, s.ValueError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

// Close marks the unit as closed.
func (s *SimUnit) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
