package models

import "time"

// Contract is an assignment or purchase agreement tied to an opportunity.
type Contract struct {
	ID           int64     `db:"id" json:"id"`
	PropertyID   *int64    `db:"property_id" json:"propertyId"`
	ContactID    *int64    `db:"contact_id" json:"contactId"`
	Title        string    `db:"title" json:"title"`
	Amount       *float64  `db:"amount" json:"amount"`
	Status       string    `db:"status" json:"status"`
	DocumentPath string    `db:"document_path" json:"documentPath"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
