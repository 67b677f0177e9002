package lifetime

import "sync"

// Slot holds the engine-side name of one value. It is written at most once
// per binding: the owning Manager fills it on Acquire and clears it on Drain.
type Slot struct {
	owner *Manager
	name  string
	mu    sync.Mutex
}

// Name returns the bound name, if any.
func (s *Slot) Name() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.name != ""
}

// Bound reports whether the slot currently holds a name.
func (s *Slot) Bound() bool {
	_, ok := s.Name()
	return ok
}

func (s *Slot) clear(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name == name {
		s.name = ""
		s.owner = nil
	}
}
