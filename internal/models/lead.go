// Package models defines the domain types for Flipdesk.
package models

import "time"

// Lead is a prospective acquisition target with owner contact details.
type Lead struct {
	ID             int64     `db:"id" json:"id"`
	Address        string    `db:"address" json:"address"`
	City           string    `db:"city" json:"city"`
	State          string    `db:"state" json:"state"`
	ZipCode        string    `db:"zip_code" json:"zipCode"`
	OwnerName      string    `db:"owner_name" json:"ownerName"`
	OwnerPhone     string    `db:"owner_phone" json:"ownerPhone"`
	OwnerEmail     string    `db:"owner_email" json:"ownerEmail"`
	EstimatedValue *float64  `db:"estimated_value" json:"estimatedValue"`
	Status         string    `db:"status" json:"status"`
	Notes          string    `db:"notes" json:"notes"`
	Source         string    `db:"source" json:"source"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
