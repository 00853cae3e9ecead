package engine

import "sync"

// Session is a Watching that engines drive by calling Invalidate whenever an
// input changes. It owns the suspend bookkeeping: changes seen while
// suspended collapse into a single rebuild on Resume, and an invalidation
// that arrives during a rebuild queues exactly one follow-up pass.
type Session struct {
	rebuild func()
	onClose func() error

	mu        sync.Mutex
	suspended bool
	pending   bool
	building  bool
	closed    bool
}

// NewSession creates a session. rebuild runs one build pass and delivers
// its result; onClose releases engine resources and may be nil.
func NewSession(rebuild func(), onClose func() error) *Session {
	return &Session{rebuild: rebuild, onClose: onClose}
}

// Invalidate requests a rebuild.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.suspended || s.building {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.building = true
	s.mu.Unlock()

	s.loop()
}

func (s *Session) loop() {
	for {
		s.rebuild()

		s.mu.Lock()
		if s.closed || s.suspended || !s.pending {
			s.building = false
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.mu.Unlock()
	}
}

// Suspend stops rebuilding until Resume.
func (s *Session) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.suspended = true
	}
}

// Resume restarts rebuilding. A change seen while suspended triggers one
// rebuild.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.closed || !s.suspended {
		s.mu.Unlock()
		return
	}
	s.suspended = false
	if !s.pending || s.building {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.building = true
	s.mu.Unlock()

	s.loop()
}

// Suspended reports whether the session is suspended.
func (s *Session) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close ends the session. Only the first call releases resources.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.suspended = false
	s.pending = false
	s.mu.Unlock()

	if s.onClose == nil {
		return nil
	}
	return s.onClose()
}
