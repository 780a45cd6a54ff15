package models

import (
	"time"

	"github.com/google/uuid"
)

// IssueRequest is the certificate form: a customer, an invoice and the
// products to cover for a number of months.
type IssueRequest struct {
	CustomerName   string   `json:"customer_name" validate:"required,min=2,max=200"`
	PhoneNumber    string   `json:"phone_number" validate:"required,phone"`
	InvoiceNumber  string   `json:"invoice_number" validate:"required,max=100"`
	ProductIDs     []string `json:"product_ids" validate:"required,min=1,dive,uuid"`
	DurationMonths int      `json:"warranty_duration_months" validate:"required,min=1,max=60"`
	StartDate      Date     `json:"warranty_start_date"`
	PurchaseDate   Date     `json:"purchase_date"`
	Notes          string   `json:"notes,omitempty" validate:"max=1000"`
	RequestToken   string   `json:"-"`
}

// EditRequest replaces a customer's certificate set: customer fields, the
// selected products and the duration.
type EditRequest struct {
	CustomerName   string   `json:"customer_name" validate:"required,min=2,max=200"`
	PhoneNumber    string   `json:"phone_number" validate:"required,phone"`
	InvoiceNumber  string   `json:"invoice_number" validate:"required,max=100"`
	ProductIDs     []string `json:"product_ids" validate:"required,min=1,dive,uuid"`
	DurationMonths int      `json:"warranty_duration_months" validate:"required,min=1,max=60"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// IssueResult is returned after a certificate is issued.
type IssueResult struct {
	Customer   Customer   `json:"customer"`
	Warranties []Warranty `json:"warranties"`
	Replayed   bool       `json:"replayed"`
}

// EditResult summarises what an edit changed.
type EditResult struct {
	CustomerID uuid.UUID   `json:"customer_id"`
	Created    []uuid.UUID `json:"created"`
	Updated    []uuid.UUID `json:"updated"`
	Deleted    []uuid.UUID `json:"deleted"`
}

// Certificate is everything the printable certificate shows.
type Certificate struct {
	CustomerID      uuid.UUID `json:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	PhoneNumber     string    `json:"phone_number"`
	InvoiceNumber   string    `json:"invoice_number"`
	DurationMonths  int       `json:"warranty_duration_months"`
	Products        []Product `json:"products"`
	WarrantyNumbers []string  `json:"warranty_numbers"`
	StartDate       time.Time `json:"warranty_start_date"`
	EndDate         time.Time `json:"warranty_end_date"`
	IssuedAt        time.Time `json:"issued_at"`
}

// WarrantyExtension moves a kept warranty to a new duration. The end date is
// computed by the caller from the warranty's own start date.
type WarrantyExtension struct {
	ID             uuid.UUID
	EndDate        time.Time
	DurationMonths int
}

// CertificateEdit is the resolved change set of an edit, applied atomically.
type CertificateEdit struct {
	Customer CustomerPatch
	Delete   []uuid.UUID
	Extend   []WarrantyExtension
	Create   []Warranty
}
