package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "flipdesk-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(context.Background(), DriverSQLite, f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"leads", "properties", "contacts", "contracts", "global_activities", "imported_files"} {
		var count int
		if err := db.conn.Get(&count, `SELECT count(*) FROM `+table); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
	var version int
	if err := db.conn.Get(&version, `SELECT MAX(version) FROM schema_migrations`); err != nil {
		t.Fatalf("schema_migrations: %v", err)
	}
	if version != SchemaVersion() {
		t.Errorf("version = %d, want %d", version, SchemaVersion())
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := migrate(context.Background(), db.conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var rows int
	if err := db.conn.Get(&rows, `SELECT count(*) FROM schema_migrations`); err != nil {
		t.Fatal(err)
	}
	if rows != len(migrations) {
		t.Errorf("schema_migrations rows = %d, want %d", rows, len(migrations))
	}
}

func TestLeadCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	l := &models.Lead{Address: "123 Main St", City: "Springfield", Status: "new", EstimatedValue: ptr(250000.0)}
	if err := db.CreateLead(ctx, l); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if l.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := db.GetLead(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if got.Address != "123 Main St" || got.EstimatedValue == nil || *got.EstimatedValue != 250000 {
		t.Errorf("unexpected lead: %+v", got)
	}

	got.Status = "contacted"
	got.EstimatedValue = nil
	if err := db.UpdateLead(ctx, got); err != nil {
		t.Fatalf("UpdateLead: %v", err)
	}
	got, _ = db.GetLead(ctx, l.ID)
	if got.Status != "contacted" || got.EstimatedValue != nil {
		t.Errorf("update not applied: %+v", got)
	}

	if err := db.DeleteLead(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLead: %v", err)
	}
	if _, err := db.GetLead(ctx, l.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetLead after delete err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteLead(ctx, l.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSourceLeadUniqueness(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	l := &models.Lead{Address: "9 Oak Ave", Status: "negotiation"}
	if err := db.CreateLead(ctx, l); err != nil {
		t.Fatal(err)
	}
	first := &models.Property{Address: l.Address, Status: "active", SourceLeadID: ptr(l.ID)}
	if err := db.CreateProperty(ctx, first); err != nil {
		t.Fatalf("first CreateProperty: %v", err)
	}
	dup := &models.Property{Address: l.Address, Status: "active", SourceLeadID: ptr(l.ID)}
	if err := db.CreateProperty(ctx, dup); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("duplicate CreateProperty err = %v, want ErrAlreadyExists", err)
	}

	// Properties without a source lead are unconstrained.
	for i := 0; i < 2; i++ {
		if err := db.CreateProperty(ctx, &models.Property{Address: "manual", Status: "active"}); err != nil {
			t.Fatalf("manual CreateProperty: %v", err)
		}
	}

	found, err := db.FindPropertyBySourceLeadID(ctx, l.ID)
	if err != nil {
		t.Fatalf("FindPropertyBySourceLeadID: %v", err)
	}
	if found.ID != first.ID {
		t.Errorf("found property %d, want %d", found.ID, first.ID)
	}
	if _, err := db.FindPropertyBySourceLeadID(ctx, l.ID+100); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing lookup err = %v, want ErrNotFound", err)
	}
}

func TestDeleteLeadKeepsProperty(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	l := &models.Lead{Address: "1 Pine", Status: "negotiation"}
	_ = db.CreateLead(ctx, l)
	p := &models.Property{Address: "1 Pine", Status: "active", SourceLeadID: ptr(l.ID)}
	_ = db.CreateProperty(ctx, p)

	if err := db.DeleteLead(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLead: %v", err)
	}
	got, err := db.GetProperty(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if got.SourceLeadID != nil {
		t.Errorf("source_lead_id = %v, want NULL", *got.SourceLeadID)
	}
}

func TestListConversionCandidates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	statuses := []string{" Negotiation ", "UNDER_CONTRACT", "new", "negotiation", "negotiation\t"}
	var ids []int64
	for _, s := range statuses {
		l := &models.Lead{Address: "addr " + s, Status: s}
		if err := db.CreateLead(ctx, l); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, l.ID)
	}
	// The last lead is already converted.
	_ = db.CreateProperty(ctx, &models.Property{Address: "x", Status: "active", SourceLeadID: ptr(ids[3])})

	got, err := db.ListConversionCandidates(ctx, models.ConvertibleLeadStatuses())
	if err != nil {
		t.Fatalf("ListConversionCandidates: %v", err)
	}
	if len(got) != 3 || got[0].ID != ids[0] || got[1].ID != ids[1] || got[2].ID != ids[4] {
		t.Fatalf("candidates = %+v, want leads %d, %d and %d", got, ids[0], ids[1], ids[4])
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_ = db.CreateContact(ctx, &models.Contact{Name: "100% Realty"})
	_ = db.CreateContact(ctx, &models.Contact{Name: "1000 Realty"})
	_ = db.CreateContact(ctx, &models.Contact{Name: "snake_case llc"})
	_ = db.CreateContact(ctx, &models.Contact{Name: "snakeXcase llc"})

	got, err := db.SearchContacts(ctx, "100%", Page{})
	if err != nil {
		t.Fatalf("SearchContacts: %v", err)
	}
	if len(got) != 1 || got[0].Name != "100% Realty" {
		t.Errorf("search 100%% = %+v", got)
	}
	n, err := db.CountContactsMatching(ctx, "E_C")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count e_c = %d, want 1", n)
	}
}

func TestSearchCaseInsensitiveAndPaged(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, addr := range []string{"123 Main St", "5 MAIN AVE", "77 Side Rd", "9 Mainline Blvd"} {
		_ = db.CreateLead(ctx, &models.Lead{Address: addr, Status: "new"})
	}
	all, err := db.SearchLeads(ctx, "main", Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("matches = %d, want 3", len(all))
	}
	page, err := db.SearchLeads(ctx, "MAIN", Page{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Address != "5 MAIN AVE" {
		t.Errorf("page = %+v", page)
	}
	tail, err := db.SearchLeads(ctx, "main", Page{Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].Address != "9 Mainline Blvd" {
		t.Errorf("offset-only page = %+v", tail)
	}
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_ = db.CreateLead(ctx, &models.Lead{Address: "12 ÉCOLE RUE", Status: "new"})
	_ = db.CreateContact(ctx, &models.Contact{Name: "Łukasz Żak"})

	for _, q := range []string{"ÉCOLE", "école", "École"} {
		n, err := db.CountLeadsMatching(ctx, q)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("count leads %q = %d, want 1", q, n)
		}
	}
	got, err := db.SearchContacts(ctx, "łukasz ż", Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("search contacts = %+v, want 1", got)
	}
}

func TestSearchMatchesEveryColumn(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	leadTests := []struct {
		column string
		lead   models.Lead
	}{
		{"address", models.Lead{Address: "Needle-Address"}},
		{"city", models.Lead{City: "Needle-City"}},
		{"state", models.Lead{State: "Needle-State"}},
		{"owner_name", models.Lead{OwnerName: "Needle-Owner"}},
		{"owner_phone", models.Lead{OwnerPhone: "555-NEEDLE-PHONE"}},
		{"owner_email", models.Lead{OwnerEmail: "Needle-Mail@Example.com"}},
	}
	for _, tt := range leadTests {
		l := tt.lead
		l.Status = "new"
		if err := db.CreateLead(ctx, &l); err != nil {
			t.Fatal(err)
		}
		q := tt.lead.Address + tt.lead.City + tt.lead.State + tt.lead.OwnerName + tt.lead.OwnerPhone + tt.lead.OwnerEmail
		got, err := db.SearchLeads(ctx, strings.ToLower(q), Page{})
		if err != nil {
			t.Fatalf("%s: %v", tt.column, err)
		}
		if len(got) != 1 || got[0].ID != l.ID {
			t.Errorf("lead %s: got %+v, want lead %d", tt.column, got, l.ID)
		}
	}

	propTests := []struct {
		column string
		prop   models.Property
	}{
		{"address", models.Property{Address: "Needle-Address"}},
		{"city", models.Property{City: "Needle-City"}},
		{"state", models.Property{State: "Needle-State"}},
		{"apn", models.Property{APN: "APN-0042-NEEDLE"}},
		{"zip_code", models.Property{ZipCode: "98765-NEEDLE"}},
	}
	for _, tt := range propTests {
		p := tt.prop
		p.Status = "active"
		if err := db.CreateProperty(ctx, &p); err != nil {
			t.Fatal(err)
		}
		q := tt.prop.Address + tt.prop.City + tt.prop.State + tt.prop.APN + tt.prop.ZipCode
		got, err := db.SearchProperties(ctx, strings.ToLower(q), Page{})
		if err != nil {
			t.Fatalf("%s: %v", tt.column, err)
		}
		if len(got) != 1 || got[0].ID != p.ID {
			t.Errorf("property %s: got %+v, want property %d", tt.column, got, p.ID)
		}
	}

	contactTests := []struct {
		column  string
		contact models.Contact
	}{
		{"name", models.Contact{Name: "Needle-Name"}},
		{"email", models.Contact{Email: "Needle-Contact@Example.com"}},
		{"phone", models.Contact{Phone: "555-NEEDLE-CELL"}},
	}
	for _, tt := range contactTests {
		c := tt.contact
		if err := db.CreateContact(ctx, &c); err != nil {
			t.Fatal(err)
		}
		q := tt.contact.Name + tt.contact.Email + tt.contact.Phone
		got, err := db.SearchContacts(ctx, strings.ToLower(q), Page{})
		if err != nil {
			t.Fatalf("%s: %v", tt.column, err)
		}
		if len(got) != 1 || got[0].ID != c.ID {
			t.Errorf("contact %s: got %+v, want contact %d", tt.column, got, c.ID)
		}
	}
}

func TestInTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.InTx(ctx, func(tx *Tx) error {
		if err := tx.CreateLead(ctx, &models.Lead{Address: "rolled back"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v", err)
	}
	leads, _ := db.ListLeads(ctx)
	if len(leads) != 0 {
		t.Errorf("leads after rollback = %d, want 0", len(leads))
	}
}

func TestActivitiesNewestFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, action := range []string{"a", "b", models.ActionAutoConvertedLead} {
		if err := db.AppendActivity(ctx, &models.GlobalActivity{Action: action}); err != nil {
			t.Fatal(err)
		}
	}
	got, total, err := db.ListActivities(ctx, ActivityFilter{Page: Page{Limit: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(got) != 2 || got[0].Action != models.ActionAutoConvertedLead {
		t.Errorf("activities = %+v total=%d", got, total)
	}
	if got[0].Metadata != "{}" {
		t.Errorf("default metadata = %q", got[0].Metadata)
	}
}

func TestContractForeignKeys(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.CreateContract(ctx, &models.Contract{Title: "orphan", Status: "draft", PropertyID: ptr(int64(999))})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("orphan contract err = %v, want ErrValidation", err)
	}

	p := &models.Property{Address: "2 Birch", Status: "active"}
	_ = db.CreateProperty(ctx, p)
	c := &models.Contract{Title: "assignment", Status: "draft", PropertyID: ptr(p.ID), Amount: ptr(15000.0)}
	if err := db.CreateContract(ctx, c); err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	list, total, err := db.ListContractsFiltered(ctx, ContractFilter{PropertyID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(list) != 1 || list[0].Title != "assignment" {
		t.Errorf("contracts = %+v", list)
	}
}

func TestMarkImported(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	ok, err := db.HasImported(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("HasImported = %v, %v", ok, err)
	}
	if err := db.MarkImported(ctx, &ImportRecord{Checksum: "abc", Path: "leads.csv", LeadCount: 3}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.HasImported(ctx, "abc"); !ok {
		t.Error("expected checksum to be recorded")
	}
	if err := db.MarkImported(ctx, &ImportRecord{Checksum: "abc", Path: "again.csv"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate MarkImported err = %v", err)
	}
}
