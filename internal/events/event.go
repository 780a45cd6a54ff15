// Package events carries change notifications of customers, warranties and
// users to RabbitMQ and to connected browser sessions.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type is what happened.
type Type string

// Event types.
const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

// Entity is what it happened to.
type Entity string

// Entities.
const (
	EntityCustomer Entity = "customer"
	EntityWarranty Entity = "warranty"
	EntityUser     Entity = "user"
)

// Event is one change notification.
type Event struct {
	Type       Type       `json:"type"`
	Entity     Entity     `json:"entity"`
	ID         uuid.UUID  `json:"id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	At         time.Time  `json:"at"`
}

// New builds an event stamped with the current time.
func New(t Type, entity Entity, id uuid.UUID) Event {
	return Event{Type: t, Entity: entity, ID: id, At: time.Now().UTC()}
}

// ForCustomer sets the owning customer.
func (e Event) ForCustomer(id uuid.UUID) Event {
	e.CustomerID = &id
	return e
}

// By sets the user who made the change.
func (e Event) By(id uuid.UUID) Event {
	if id != uuid.Nil {
		e.ActorID = &id
	}
	return e
}

// Name is "<entity>.<type>", used as routing key and websocket event name.
func (e Event) Name() string {
	return string(e.Entity) + "." + string(e.Type)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
