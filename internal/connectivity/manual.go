package connectivity

import (
	"context"
	"sync"
)

// Manual is an Oracle whose status is set programmatically. It backs tests
// and the demo harness, where real probing is unwanted.
type Manual struct {
	mu      sync.Mutex
	current Status
	nextID  int
	subs    map[int]func(Status)
}

// NewManual returns a Manual oracle starting in the given state.
func NewManual(initial Status) *Manual {
	return &Manual{current: initial, subs: make(map[int]func(Status))}
}

func (m *Manual) Status(_ context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manual) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Set updates the status and notifies subscribers when the online state
// genuinely changed.
func (m *Manual) Set(status Status) {
	m.mu.Lock()
	transitioned := status.Online() != m.current.Online()
	m.current = status
	var fns []func(Status)
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	if !transitioned {
		return
	}
	for _, fn := range fns {
		fn(status)
	}
}
