package client

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
)

// DefaultMonitorInterval is how often Monitor checks the session.
const DefaultMonitorInterval = 60 * time.Second

// Monitor keeps a Session fresh in the background.
type Monitor struct {
	session  *Session
	interval time.Duration
	log      *slog.Logger
}

// NewMonitor creates a Monitor. A non-positive interval gives
// DefaultMonitorInterval, a nil log discards.
func NewMonitor(s *Session, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{session: s, interval: interval, log: log}
}

// Run checks the session every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := m.session.State()
			if err := m.session.Check(ctx); err != nil {
				m.log.Warn("session check failed", sl.Err(err))
			}
			if after := m.session.State(); after != before {
				m.log.Info("session state changed", slog.String("from", string(before)), slog.String("to", string(after)))
			}
		}
	}
}
