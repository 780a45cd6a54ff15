package client

import (
	"context"
	"sync"
	"time"
)

// ConnState is the reachability of the service.
type ConnState string

const (
	ConnOnline   ConnState = "online"
	ConnOffline  ConnState = "offline"
	ConnChecking ConnState = "checking"
)

// DefaultPollInterval is how often ConnectionMonitor polls /health.
const DefaultPollInterval = 30 * time.Second

// ConnectionMonitor polls the health endpoint and tracks whether the
// service is reachable.
type ConnectionMonitor struct {
	client   *Client
	interval time.Duration

	mu        sync.Mutex
	state     ConnState
	lastCheck time.Time
	listeners []func(ConnState)
}

// NewConnectionMonitor creates a monitor in ConnChecking. A non-positive
// interval gives DefaultPollInterval.
func NewConnectionMonitor(c *Client, interval time.Duration) *ConnectionMonitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ConnectionMonitor{client: c, interval: interval, state: ConnChecking}
}

// OnChange registers fn to be called after every state transition.
func (m *ConnectionMonitor) OnChange(fn func(ConnState)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// State returns the last known state.
func (m *ConnectionMonitor) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastCheck returns when the last poll finished.
func (m *ConnectionMonitor) LastCheck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck
}

func (m *ConnectionMonitor) set(state ConnState) {
	m.mu.Lock()
	changed := m.state != state
	m.state = state
	if state != ConnChecking {
		m.lastCheck = time.Now()
	}
	listeners := append([]func(ConnState){}, m.listeners...)
	m.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(state)
		}
	}
}

// Check polls once and returns the resulting state.
func (m *ConnectionMonitor) Check(ctx context.Context) ConnState {
	m.set(ConnChecking)

	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	if err := m.client.Health(ctx); err != nil {
		m.set(ConnOffline)
		return ConnOffline
	}
	m.set(ConnOnline)
	return ConnOnline
}

// Run polls right away and then every interval until ctx is done.
func (m *ConnectionMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
