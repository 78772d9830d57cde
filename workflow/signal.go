package workflow

import "sync"

// TerminationSignal is the one-shot flag that ends a BoundedLoop early.
// A fresh signal is created for every loop run; once raised it stays raised.
type TerminationSignal struct {
	mu       sync.Mutex
	raised   bool
	raisedBy string
	iter     int
}

func newTerminationSignal() *TerminationSignal {
	return &TerminationSignal{iter: -1}
}

// Raise sets the flag. It reports false when the signal was already raised,
// which callers surface as a contract violation.
func (s *TerminationSignal) Raise(by string, iteration int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raised {
		return false
	}
	s.raised = true
	s.raisedBy = by
	s.iter = iteration
	return true
}

// Raised reports whether the signal has been raised.
func (s *TerminationSignal) Raised() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raised
}

// RaisedBy returns the task path that raised the signal and the iteration.
func (s *TerminationSignal) RaisedBy() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raisedBy, s.iter
}
