package models

import "time"

// Property is a deal-tracking record, shown as an "opportunity" in the UI.
// SourceLeadID points back at the Lead it was converted from, if any.
type Property struct {
	ID           int64     `db:"id" json:"id"`
	Address      string    `db:"address" json:"address"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	ZipCode      string    `db:"zip_code" json:"zipCode"`
	APN          string    `db:"apn" json:"apn"`
	Price        *float64  `db:"price" json:"price"`
	Status       string    `db:"status" json:"status"`
	SourceLeadID *int64    `db:"source_lead_id" json:"sourceLeadId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
