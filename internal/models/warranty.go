package models

import (
	"time"

	"github.com/google/uuid"
)

// Warranty binds one customer to one product for a coverage window.
// WarrantyEndDate is always WarrantyStartDate plus WarrantyDurationMonths.
type Warranty struct {
	ID                     uuid.UUID  `json:"id"`
	CustomerID             uuid.UUID  `json:"customer_id"`
	ProductID              uuid.UUID  `json:"product_id"`
	WarrantyNumber         string     `json:"warranty_number"`
	PurchaseDate           time.Time  `json:"purchase_date"`
	WarrantyStartDate      time.Time  `json:"warranty_start_date"`
	WarrantyEndDate        time.Time  `json:"warranty_end_date"`
	WarrantyDurationMonths int        `json:"warranty_duration_months"`
	Notes                  string     `json:"notes,omitempty"`
	CreatedBy              *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy              *uuid.UUID `json:"updated_by,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	Customer *Customer `json:"customer,omitempty"`
	Product  *Product  `json:"product,omitempty"`
	Creator  *UserRef  `json:"created_by_user,omitempty"`
	Updater  *UserRef  `json:"updated_by_user,omitempty"`
}

// WarrantyPatch is a partial update of a single warranty row.
type WarrantyPatch struct {
	PurchaseDate           *Date   `json:"purchase_date,omitempty"`
	WarrantyStartDate      *Date   `json:"warranty_start_date,omitempty"`
	WarrantyDurationMonths *int    `json:"warranty_duration_months,omitempty" validate:"omitempty,min=1,max=60"`
	Notes                  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// Empty reports whether the patch changes nothing.
func (p WarrantyPatch) Empty() bool {
	return p.PurchaseDate == nil && p.WarrantyStartDate == nil &&
		p.WarrantyDurationMonths == nil && p.Notes == nil
}

// WarrantyChange is the resolved set of columns written by an update.
// WarrantyEndDate is recomputed by the service whenever the start date or the
// duration changes.
type WarrantyChange struct {
	PurchaseDate           *time.Time
	WarrantyStartDate      *time.Time
	WarrantyEndDate        *time.Time
	WarrantyDurationMonths *int
	Notes                  *string
}

// SearchParams selects warranties by exact invoice number and/or phone.
type SearchParams struct {
	InvoiceNumber string `json:"invoice_number,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
}

// Empty reports whether no search key was given.
func (p SearchParams) Empty() bool {
	return p.InvoiceNumber == "" && p.PhoneNumber == ""
}
