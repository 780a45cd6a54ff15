package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchanges.
const (
	// EventsExchange carries change events, routed by "<entity>.<type>".
	EventsExchange = "warranty.events"
	// NotificationsExchange carries expiry notices.
	NotificationsExchange = "notifications"
)

// RoutingKeyExpiring routes expiring soon notices.
const RoutingKeyExpiring = "expiring"

// ExchangeConfig declares one exchange.
type ExchangeConfig struct {
	Name string
	Kind string
}

// QueueConfig binds one durable queue to the exchange being set up.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Events is the topology of the change event exchange. Consumers bind their
// own queues.
func Events() ExchangeConfig {
	return ExchangeConfig{Name: EventsExchange, Kind: amqp.ExchangeTopic}
}

// Notifications is the topology of the expiry notice exchange.
func Notifications() ExchangeConfig {
	return ExchangeConfig{Name: NotificationsExchange, Kind: amqp.ExchangeDirect}
}

// GetNotificationQueues lists the queues bound to NotificationsExchange.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.expiring", RoutingKey: RoutingKeyExpiring},
	}
}

// SetupChannel opens a channel, declares exchange and binds queues to it.
func SetupChannel(conn *amqp.Connection, exchange ExchangeConfig, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := Declare(ch, exchange, queues); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

// Declarer is the part of *amqp.Channel used to declare topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare declares a durable exchange and its bound durable queues.
func Declare(ch Declarer, exchange ExchangeConfig, queues []QueueConfig) error {
	if err := ch.ExchangeDeclare(exchange.Name, exchange.Kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange.Name, err)
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange.Name, false, nil); err != nil {
			return fmt.Errorf("bind queue %s with routing key %s: %w", q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}
