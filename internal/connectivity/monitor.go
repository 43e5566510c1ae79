package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fieldsafe/fieldsync/pkg/config"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

// Monitor is an Oracle backed by a periodic HTTP probe against a
// generate-204 style endpoint. A successful probe means the network path to
// the wider internet works, not just the local link.
type Monitor struct {
	probeURL      string
	probeInterval time.Duration
	client        *http.Client
	logg          *logger.Logger

	mu      sync.Mutex
	current Status
	nextID  int
	subs    map[int]func(Status)

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewMonitor builds a Monitor from connectivity config. It starts in the
// unreachable state until the first probe completes.
func NewMonitor(cfg config.ConnectivityConfig, logg *logger.Logger) *Monitor {
	return &Monitor{
		probeURL:      cfg.ProbeURL,
		probeInterval: cfg.ProbeInterval,
		client:        &http.Client{Timeout: cfg.ProbeTimeout},
		logg:          logg,
		subs:          make(map[int]func(Status)),
		stopped:       make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Status returns the most recent probe result.
func (m *Monitor) Status(_ context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe registers fn for transition notifications. The returned function
// removes the registration and is safe to call more than once.
func (m *Monitor) Subscribe(fn func(Status)) func() {
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

// Start launches the probe loop. It probes immediately, then on every tick
// until Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		m.probe(ctx)
		ticker := time.NewTicker(m.probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopped:
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
	<-m.done
}

func (m *Monitor) probe(ctx context.Context) {
	status := Status{Connected: true, InternetReachable: m.reachable(ctx)}
	if !status.InternetReachable {
		status.Connected = false
	}
	m.publish(status)
}

func (m *Monitor) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// publish records the new status and, on a genuine online/offline
// transition, invokes every subscriber outside the lock.
func (m *Monitor) publish(status Status) {
	m.mu.Lock()
	transitioned := status.Online() != m.current.Online()
	m.current = status
	var fns []func(Status)
	if transitioned {
		fns = make([]func(Status), 0, len(m.subs))
		for _, fn := range m.subs {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	if !transitioned {
		return
	}
	ctx := m.logg.WithField(context.Background(), "online", status.Online())
	m.logg.Info(ctx, "connectivity transition")
	for _, fn := range fns {
		fn(status)
	}
}
