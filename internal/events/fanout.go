package events

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
	"github.com/magabrotheeeer/warranty-service/internal/metrics"
)

// Fanout delivers each event to every publisher. Failures are logged and
// counted, never returned.
type Fanout struct {
	log        *slog.Logger
	metrics    metrics.Recorder
	publishers []Publisher
}

// NewFanout combines publishers. Nil publishers are skipped.
func NewFanout(log *slog.Logger, rec metrics.Recorder, publishers ...Publisher) *Fanout {
	if rec == nil {
		rec = metrics.Nop{}
	}
	f := &Fanout{log: log, metrics: rec}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish implements Publisher and always returns nil.
func (f *Fanout) Publish(ctx context.Context, e Event) error {
	for _, p := range f.publishers {
		err := p.Publish(ctx, e)
		f.metrics.RecordEventPublished(string(e.Entity), err == nil)
		if err != nil {
			f.log.Warn("failed to publish event",
				slog.String("event", e.Name()),
				slog.String("id", e.ID.String()),
				sl.Err(err))
		}
	}
	return nil
}

// Discard drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Event) error { return nil }
