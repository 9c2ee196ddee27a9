package store

import (
	"context"

	"github.com/starford/flipdesk/internal/models"
)

// RecordStore is the data-access surface consumed by the conversion worker
// and the search aggregator.
type RecordStore interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	ListConversionCandidates(ctx context.Context, statuses []string) ([]models.Lead, error)
	FindPropertyBySourceLeadID(ctx context.Context, leadID int64) (*models.Property, error)
	CreateProperty(ctx context.Context, p *models.Property) error
	AppendActivity(ctx context.Context, a *models.GlobalActivity) error

	SearchLeads(ctx context.Context, q string, p Page) ([]models.Lead, error)
	SearchProperties(ctx context.Context, q string, p Page) ([]models.Property, error)
	SearchContacts(ctx context.Context, q string, p Page) ([]models.Contact, error)
	CountLeadsMatching(ctx context.Context, q string) (int, error)
	CountPropertiesMatching(ctx context.Context, q string) (int, error)
	CountContactsMatching(ctx context.Context, q string) (int, error)
}

// Verify both handles satisfy RecordStore at compile time.
var (
	_ RecordStore = (*DB)(nil)
	_ RecordStore = (*Tx)(nil)
)
