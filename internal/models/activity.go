package models

import (
	"encoding/json"
	"time"
)

// SystemUserID marks activity written by background jobs rather than a person.
const SystemUserID int64 = 0

// ActionAutoConvertedLead tags activity rows written by the conversion worker.
const ActionAutoConvertedLead = "auto_converted_lead"

// GlobalActivity is an append-only audit log entry. Metadata holds a
// serialized JSON object.
type GlobalActivity struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	Metadata    string    `db:"metadata" json:"metadata"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ConversionMetadata is the metadata payload of an auto_converted_lead entry.
type ConversionMetadata struct {
	LeadID     int64  `json:"leadId"`
	PropertyID int64  `json:"propertyId"`
	Address    string `json:"address"`
	Trigger    string `json:"trigger"`
}

// DecodeConversion parses Metadata as a ConversionMetadata payload.
func (a GlobalActivity) DecodeConversion() (ConversionMetadata, error) {
	var m ConversionMetadata
	err := json.Unmarshal([]byte(a.Metadata), &m)
	return m, err
}
