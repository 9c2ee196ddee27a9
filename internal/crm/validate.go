package crm

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/flipdesk/internal/models"
)

var (
	leadStatuses     = enum(models.LeadStatuses)
	propertyStatuses = enum(models.PropertyStatuses)
	contractStatuses = enum(models.ContractStatuses)
	contactTypes     = enum(models.ContactTypes)
)

func enum[T ~string](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

// prepareLead normalizes l in place and validates it.
func prepareLead(l *models.Lead) error {
	l.Address = strings.TrimSpace(l.Address)
	l.OwnerEmail = strings.TrimSpace(l.OwnerEmail)
	l.Status = models.NormalizeStatus(l.Status)
	if l.Status == "" {
		l.Status = string(models.LeadNew)
	}
	return validation.ValidateStruct(l,
		validation.Field(&l.Address, validation.Required, validation.Length(1, 255)),
		validation.Field(&l.State, validation.Length(0, 32)),
		validation.Field(&l.OwnerEmail, is.EmailFormat),
		validation.Field(&l.EstimatedValue, validation.Min(0.0)),
		validation.Field(&l.Status, validation.In(leadStatuses...)),
	)
}

func prepareProperty(p *models.Property) error {
	p.Address = strings.TrimSpace(p.Address)
	p.Status = models.NormalizeStatus(p.Status)
	if p.Status == "" {
		p.Status = string(models.PropertyActive)
	}
	return validation.ValidateStruct(p,
		validation.Field(&p.Address, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Price, validation.Min(0.0)),
		validation.Field(&p.Status, validation.In(propertyStatuses...)),
	)
}

func prepareContact(c *models.Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Type = models.NormalizeStatus(c.Type)
	if c.Type == "" {
		c.Type = models.ContactTypeOther
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Type, validation.In(contactTypes...)),
	)
}

func prepareContract(c *models.Contract) error {
	c.Title = strings.TrimSpace(c.Title)
	c.Status = models.NormalizeStatus(c.Status)
	if c.Status == "" {
		c.Status = string(models.ContractDraft)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&c.Amount, validation.Min(0.0)),
		validation.Field(&c.Status, validation.In(contractStatuses...)),
	)
}

// ValidateLead normalizes l like CreateLead does and reports validation
// failures as apperr.ErrValidation.
func ValidateLead(l *models.Lead) error {
	if err := prepareLead(l); err != nil {
		return invalid(err)
	}
	return nil
}
