package models

import "time"

// Contact is a buyer, seller, agent or other party.
type Contact struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Type      string    `db:"type" json:"type"`
	Company   string    `db:"company" json:"company"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Contact types.
const (
	ContactTypeBuyer  = "buyer"
	ContactTypeSeller = "seller"
	ContactTypeAgent  = "agent"
	ContactTypeTitle  = "title_company"
	ContactTypeOther  = "other"
)

// ContactTypes lists accepted contact types.
var ContactTypes = []string{ContactTypeBuyer, ContactTypeSeller, ContactTypeAgent, ContactTypeTitle, ContactTypeOther}
