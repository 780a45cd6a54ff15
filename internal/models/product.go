package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a covered company or brand.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
