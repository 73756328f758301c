package capture

import "sync"

// ViewportEvents delivers layout change notifications. Each registration
// returns a function that removes it.
type ViewportEvents interface {
	OnResize(fn func()) (cancel func())
	OnOrientationChange(fn func()) (cancel func())
}

// Subscription is owned by the caller of Backend.Watch and must be
// unsubscribed on the same teardown path that stops the backend.
type Subscription struct {
	mu      sync.Mutex
	cancels []func()
	closed  bool
}

func (s *Subscription) add(cancel func()) {
	if cancel == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return
	}
	s.cancels = append(s.cancels, cancel)
}

// Unsubscribe removes every registration. Repeated calls are no-ops.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.closed = true
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Active reports whether any registration is still live.
func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels) > 0
}
