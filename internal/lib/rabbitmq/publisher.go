package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AppID marks every message this service publishes.
const AppID = "warranty-service"

// Channel is the part of *amqp.Channel used to publish.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishMessage sends message as persistent JSON. Every message gets a
// fresh id so that consumers can drop redeliveries; the routing key is
// repeated in Type.
func PublishMessage(ch Channel, exchange, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", op, routingKey, err)
	}

	msg := amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp.Persistent,
		MessageId:       uuid.NewString(),
		AppId:           AppID,
		Type:            routingKey,
		Timestamp:       time.Now().UTC(),
		Body:            body,
	}
	if err := ch.Publish(exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("%s: publish %s to %q: %w", op, routingKey, exchange, err)
	}
	return nil
}
