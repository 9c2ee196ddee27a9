//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/search"
	"github.com/starford/flipdesk/internal/store"
)

func openPostgres(t *testing.T) *store.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("flipdesk"),
		postgrescontainer.WithUsername("flipdesk"),
		postgrescontainer.WithPassword("flipdesk"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := store.Open(ctx, store.DriverPostgres, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgres_ConversionAndSearch(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()

	price := 150000.0
	leads := []models.Lead{
		{Address: "10 Harbor Way", Status: "Negotiation", EstimatedValue: &price},
		{Address: "11 Harbor Way", Status: "under_contract"},
		{Address: "12 Harbor Way", Status: "new"},
	}
	for i := range leads {
		require.NoError(t, db.CreateLead(ctx, &leads[i]))
	}
	require.NoError(t, db.CreateContact(ctx, &models.Contact{Name: "Harbor Capital", Type: "buyer"}))

	for _, pushdown := range []bool{true, false} {
		w := conversion.New(db, conversion.WithPushdown(pushdown))
		report, err := w.RunOnce(ctx, conversion.TriggerManual)
		require.NoError(t, err)
		if pushdown {
			require.Equal(t, 2, report.Converted)
		} else {
			require.Zero(t, report.Converted, "second pass must not duplicate")
			require.Equal(t, 2, report.Skipped)
		}
	}

	prop, err := db.FindPropertyBySourceLeadID(ctx, leads[0].ID)
	require.NoError(t, err)
	require.NotNil(t, prop)
	require.Equal(t, string(models.PropertyActive), prop.Status)
	require.Equal(t, price, *prop.Price)

	_, total, err := db.ListActivities(ctx, store.ActivityFilter{Action: models.ActionAutoConvertedLead, Page: store.Page{Limit: 10}})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	agg := search.New(db)
	res, err := agg.Search(ctx, search.Query{Text: "HARBOR", Limit: 4, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, search.Counts{Total: 6, Leads: 3, Opportunities: 2, Contacts: 1}, res.Counts)
	require.Len(t, res.Items, 4)
	require.Equal(t, search.TypeLead, res.Items[0].Type)
	require.Equal(t, search.TypeLead, res.Items[1].Type)
	require.Equal(t, search.TypeOpportunity, res.Items[2].Type)
	require.Equal(t, search.TypeOpportunity, res.Items[3].Type)
}

func TestPostgres_UniqueSourceLead(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()

	lead := models.Lead{Address: "1 Pier St", Status: "negotiation"}
	require.NoError(t, db.CreateLead(ctx, &lead))

	first := models.Property{Address: lead.Address, Status: "active", SourceLeadID: &lead.ID}
	require.NoError(t, db.CreateProperty(ctx, &first))

	dup := models.Property{Address: lead.Address, Status: "active", SourceLeadID: &lead.ID}
	require.ErrorIs(t, db.CreateProperty(ctx, &dup), apperr.ErrAlreadyExists)
}
