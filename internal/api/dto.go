package api

import (
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/search"
)

// LeadRequest is the request body for creating or replacing a lead.
type LeadRequest struct {
	Address        string   `json:"address" example:"123 Main St" validate:"required"`
	City           string   `json:"city" example:"Springfield"`
	State          string   `json:"state" example:"IL"`
	ZipCode        string   `json:"zipCode" example:"62701"`
	OwnerName      string   `json:"ownerName" example:"Pat Doe"`
	OwnerPhone     string   `json:"ownerPhone" example:"555-0100"`
	OwnerEmail     string   `json:"ownerEmail" example:"pat@example.com"`
	EstimatedValue *float64 `json:"estimatedValue" example:"250000"`
	Status         string   `json:"status" example:"negotiation"`
	Notes          string   `json:"notes"`
	Source         string   `json:"source" example:"driving-for-dollars"`
}

func (req LeadRequest) model(id int64) models.Lead {
	return models.Lead{
		ID:             id,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		ZipCode:        req.ZipCode,
		OwnerName:      req.OwnerName,
		OwnerPhone:     req.OwnerPhone,
		OwnerEmail:     req.OwnerEmail,
		EstimatedValue: req.EstimatedValue,
		Status:         req.Status,
		Notes:          req.Notes,
		Source:         req.Source,
	}
}

// OpportunityRequest is the request body for creating or replacing an
// opportunity. The source lead is set only by conversion.
type OpportunityRequest struct {
	Address string   `json:"address" example:"123 Main St" validate:"required"`
	City    string   `json:"city" example:"Springfield"`
	State   string   `json:"state" example:"IL"`
	ZipCode string   `json:"zipCode" example:"62701"`
	APN     string   `json:"apn" example:"14-22-301-005"`
	Price   *float64 `json:"price" example:"250000"`
	Status  string   `json:"status" example:"active"`
}

func (req OpportunityRequest) model(id int64) models.Property {
	return models.Property{
		ID:      id,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		APN:     req.APN,
		Price:   req.Price,
		Status:  req.Status,
	}
}

// ContactRequest is the request body for creating or replacing a contact.
type ContactRequest struct {
	Name    string `json:"name" example:"Dana Buyer" validate:"required"`
	Email   string `json:"email" example:"dana@example.com"`
	Phone   string `json:"phone" example:"555-0101"`
	Type    string `json:"type" example:"buyer"`
	Company string `json:"company" example:"Cashflow Homes LLC"`
}

func (req ContactRequest) model(id int64) models.Contact {
	return models.Contact{
		ID:      id,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Type:    req.Type,
		Company: req.Company,
	}
}

// ContractRequest is the request body for creating or replacing a contract.
type ContractRequest struct {
	PropertyID *int64   `json:"propertyId" example:"7"`
	ContactID  *int64   `json:"contactId" example:"3"`
	Title      string   `json:"title" example:"Assignment of contract" validate:"required"`
	Amount     *float64 `json:"amount" example:"15000"`
	Status     string   `json:"status" example:"draft"`
}

func (req ContractRequest) model(id int64) models.Contract {
	return models.Contract{
		ID:         id,
		PropertyID: req.PropertyID,
		ContactID:  req.ContactID,
		Title:      req.Title,
		Amount:     req.Amount,
		Status:     req.Status,
	}
}

// LeadListResponse wraps paginated lead listings.
type LeadListResponse struct {
	Leads []models.Lead `json:"leads" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// OpportunityListResponse wraps paginated opportunity listings.
type OpportunityListResponse struct {
	Opportunities []models.Property `json:"opportunities" validate:"required"`
	Total         int               `json:"total" example:"42" validate:"required"`
}

// ContactListResponse wraps paginated contact listings.
type ContactListResponse struct {
	Contacts []models.Contact `json:"contacts" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// ContractListResponse wraps paginated contract listings.
type ContractListResponse struct {
	Contracts []models.Contract `json:"contracts" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// ActivityListResponse wraps paginated activity listings.
type ActivityListResponse struct {
	Activities []models.GlobalActivity `json:"activities" validate:"required"`
	Total      int                     `json:"total" example:"42" validate:"required"`
}

// SearchResponse is the cross-entity search result.
type SearchResponse = search.Result

// DocumentUploadResponse is returned after a contract document upload.
type DocumentUploadResponse struct {
	Filename string `json:"filename" example:"purchase-agreement.pdf" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/api/contracts/7/document" validate:"required"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
