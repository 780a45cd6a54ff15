package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/warranty-service/internal/lib/rabbitmq"
)

// AMQPPublisher publishes events to a topic exchange with routing key
// "<entity>.<type>".
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       rabbitmq.Channel
	exchange string
}

// NewAMQPPublisher publishes through ch to exchange.
func NewAMQPPublisher(ch rabbitmq.Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	const op = "events.AMQPPublisher.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, e.Name(), e); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
