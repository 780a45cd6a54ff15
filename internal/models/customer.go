// Package models contains the domain structures of the warranty service and
// the request shapes decoded from JSON before validation.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the owner of a set of warranties. One customer row is created
// per issued certificate.
type Customer struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	InvoiceNumber string    `json:"invoice_number"`
	RequestToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CustomerPatch is a partial update of a customer. Nil fields are kept.
type CustomerPatch struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,phone"`
	InvoiceNumber *string `json:"invoice_number,omitempty" validate:"omitempty,min=1,max=100"`
}

// Empty reports whether the patch changes nothing.
func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.InvoiceNumber == nil
}

// CustomerGroup is the set of warranties belonging to one customer as shown
// in the certificate list.
type CustomerGroup struct {
	Customer     Customer   `json:"customer"`
	Warranties   []Warranty `json:"warranties"`
	LatestExpiry time.Time  `json:"latest_expiry"`
}
