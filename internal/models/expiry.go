package models

import (
	"time"

	"github.com/google/uuid"
)

// ExpiryNotice is published for every customer whose warranties expire soon.
type ExpiryNotice struct {
	CustomerID    uuid.UUID `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	PhoneNumber   string    `json:"phone_number"`
	InvoiceNumber string    `json:"invoice_number"`
	Products      []string  `json:"products"`
	EarliestEnd   time.Time `json:"earliest_end"`
	DaysLeft      int       `json:"days_left"`
}
