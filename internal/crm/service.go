// Package crm provides validated CRUD over the record store for the HTTP API
// and the MCP tools.
package crm

import (
	"context"
	"fmt"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/store"
)

// Entity names used in record events.
const (
	EntityLead        = "lead"
	EntityOpportunity = "opportunity"
	EntityContact     = "contact"
	EntityContract    = "contract"
)

// Record event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Store is the record-store surface the service needs.
type Store interface {
	CreateLead(ctx context.Context, l *models.Lead) error
	GetLead(ctx context.Context, id int64) (*models.Lead, error)
	UpdateLead(ctx context.Context, l *models.Lead) error
	DeleteLead(ctx context.Context, id int64) error
	ListLeadsFiltered(ctx context.Context, f store.LeadFilter) ([]models.Lead, int, error)

	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	DeleteProperty(ctx context.Context, id int64) error
	ListPropertiesFiltered(ctx context.Context, f store.PropertyFilter) ([]models.Property, int, error)

	CreateContact(ctx context.Context, c *models.Contact) error
	GetContact(ctx context.Context, id int64) (*models.Contact, error)
	UpdateContact(ctx context.Context, c *models.Contact) error
	DeleteContact(ctx context.Context, id int64) error
	ListContactsFiltered(ctx context.Context, f store.ContactFilter) ([]models.Contact, int, error)

	CreateContract(ctx context.Context, c *models.Contract) error
	GetContract(ctx context.Context, id int64) (*models.Contract, error)
	UpdateContract(ctx context.Context, c *models.Contract) error
	DeleteContract(ctx context.Context, id int64) error
	ListContractsFiltered(ctx context.Context, f store.ContractFilter) ([]models.Contract, int, error)

	ListActivities(ctx context.Context, f store.ActivityFilter) ([]models.GlobalActivity, int, error)
}

// Hook observes successful writes.
type Hook func(ctx context.Context, entity, action string, id int64)

// Service coordinates validation and persistence of CRM records.
type Service struct {
	store Store
	hooks []Hook
}

// NewService creates a new CRM service.
func NewService(s Store, hooks ...Hook) *Service {
	return &Service{store: s, hooks: hooks}
}

func (s *Service) notify(ctx context.Context, entity, action string, id int64) {
	for _, h := range s.hooks {
		h(ctx, entity, action, id)
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
}

// --- Leads ---

// CreateLead validates l and stores it. An empty status defaults to "new".
func (s *Service) CreateLead(ctx context.Context, l *models.Lead) error {
	if err := prepareLead(l); err != nil {
		return invalid(err)
	}
	if err := s.store.CreateLead(ctx, l); err != nil {
		return err
	}
	s.notify(ctx, EntityLead, ActionCreated, l.ID)
	return nil
}

// GetLead returns one lead.
func (s *Service) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	return s.store.GetLead(ctx, id)
}

// UpdateLead validates and overwrites l.
func (s *Service) UpdateLead(ctx context.Context, l *models.Lead) (*models.Lead, error) {
	if err := prepareLead(l); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.UpdateLead(ctx, l); err != nil {
		return nil, err
	}
	s.notify(ctx, EntityLead, ActionUpdated, l.ID)
	return s.store.GetLead(ctx, l.ID)
}

// DeleteLead removes a lead.
func (s *Service) DeleteLead(ctx context.Context, id int64) error {
	if err := s.store.DeleteLead(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, EntityLead, ActionDeleted, id)
	return nil
}

// ListLeads returns a page of leads, optionally filtered by status.
func (s *Service) ListLeads(ctx context.Context, status string, p store.Page) ([]models.Lead, int, error) {
	if status != "" {
		if _, ok := models.ParseLeadStatus(status); !ok {
			return nil, 0, fmt.Errorf("%w: unknown lead status %q", apperr.ErrValidation, status)
		}
	}
	return s.store.ListLeadsFiltered(ctx, store.LeadFilter{Status: status, Page: p})
}

// --- Opportunities ---

// CreateOpportunity validates p and stores it. An empty status defaults to
// "active". Manually created opportunities never carry a source lead.
func (s *Service) CreateOpportunity(ctx context.Context, p *models.Property) error {
	p.SourceLeadID = nil
	if err := prepareProperty(p); err != nil {
		return invalid(err)
	}
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return err
	}
	s.notify(ctx, EntityOpportunity, ActionCreated, p.ID)
	return nil
}

// GetOpportunity returns one opportunity.
func (s *Service) GetOpportunity(ctx context.Context, id int64) (*models.Property, error) {
	return s.store.GetProperty(ctx, id)
}

// UpdateOpportunity validates and overwrites p. The source lead is kept.
func (s *Service) UpdateOpportunity(ctx context.Context, p *models.Property) (*models.Property, error) {
	if err := prepareProperty(p); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.notify(ctx, EntityOpportunity, ActionUpdated, p.ID)
	return s.store.GetProperty(ctx, p.ID)
}

// DeleteOpportunity removes an opportunity.
func (s *Service) DeleteOpportunity(ctx context.Context, id int64) error {
	if err := s.store.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, EntityOpportunity, ActionDeleted, id)
	return nil
}

// ListOpportunities returns a page of opportunities, optionally filtered by status.
func (s *Service) ListOpportunities(ctx context.Context, status string, p store.Page) ([]models.Property, int, error) {
	return s.store.ListPropertiesFiltered(ctx, store.PropertyFilter{Status: status, Page: p})
}

// --- Contacts ---

// CreateContact validates c and stores it. An empty type defaults to "other".
func (s *Service) CreateContact(ctx context.Context, c *models.Contact) error {
	if err := prepareContact(c); err != nil {
		return invalid(err)
	}
	if err := s.store.CreateContact(ctx, c); err != nil {
		return err
	}
	s.notify(ctx, EntityContact, ActionCreated, c.ID)
	return nil
}

// GetContact returns one contact.
func (s *Service) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	return s.store.GetContact(ctx, id)
}

// UpdateContact validates and overwrites c.
func (s *Service) UpdateContact(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	if err := prepareContact(c); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.UpdateContact(ctx, c); err != nil {
		return nil, err
	}
	s.notify(ctx, EntityContact, ActionUpdated, c.ID)
	return s.store.GetContact(ctx, c.ID)
}

// DeleteContact removes a contact.
func (s *Service) DeleteContact(ctx context.Context, id int64) error {
	if err := s.store.DeleteContact(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, EntityContact, ActionDeleted, id)
	return nil
}

// ListContacts returns a page of contacts, optionally filtered by type.
func (s *Service) ListContacts(ctx context.Context, contactType string, p store.Page) ([]models.Contact, int, error) {
	return s.store.ListContactsFiltered(ctx, store.ContactFilter{Type: contactType, Page: p})
}

// --- Contracts ---

// CreateContract validates c and stores it. An empty status defaults to "draft".
func (s *Service) CreateContract(ctx context.Context, c *models.Contract) error {
	if err := prepareContract(c); err != nil {
		return invalid(err)
	}
	if err := s.store.CreateContract(ctx, c); err != nil {
		return err
	}
	s.notify(ctx, EntityContract, ActionCreated, c.ID)
	return nil
}

// GetContract returns one contract.
func (s *Service) GetContract(ctx context.Context, id int64) (*models.Contract, error) {
	return s.store.GetContract(ctx, id)
}

// UpdateContract validates and overwrites c. The stored document path is
// kept; use AttachDocument to change it.
func (s *Service) UpdateContract(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	if err := prepareContract(c); err != nil {
		return nil, invalid(err)
	}
	existing, err := s.store.GetContract(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.DocumentPath = existing.DocumentPath
	if err := s.store.UpdateContract(ctx, c); err != nil {
		return nil, err
	}
	s.notify(ctx, EntityContract, ActionUpdated, c.ID)
	return s.store.GetContract(ctx, c.ID)
}

// AttachDocument records path as the stored document of contract id.
func (s *Service) AttachDocument(ctx context.Context, id int64, path string) (*models.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	c.DocumentPath = path
	if err := s.store.UpdateContract(ctx, c); err != nil {
		return nil, err
	}
	s.notify(ctx, EntityContract, ActionUpdated, c.ID)
	return c, nil
}

// DeleteContract removes a contract.
func (s *Service) DeleteContract(ctx context.Context, id int64) error {
	if err := s.store.DeleteContract(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, EntityContract, ActionDeleted, id)
	return nil
}

// ListContracts returns a page of contracts filtered by opportunity and status.
func (s *Service) ListContracts(ctx context.Context, f store.ContractFilter) ([]models.Contract, int, error) {
	return s.store.ListContractsFiltered(ctx, f)
}

// --- Activity ---

// ListActivities returns audit log entries newest first.
func (s *Service) ListActivities(ctx context.Context, action string, p store.Page) ([]models.GlobalActivity, int, error) {
	return s.store.ListActivities(ctx, store.ActivityFilter{Action: action, Page: p})
}
