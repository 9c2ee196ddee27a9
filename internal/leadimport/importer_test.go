package leadimport

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/storage"
	"github.com/starford/flipdesk/internal/store"
	"github.com/starford/flipdesk/internal/testutil"
)

var testLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const sampleCSV = "address,city,status,value\n123 Main St,Springfield,Negotiation,250000\n9 Elm St,Shelbyville,,\n"

func importEnv(t *testing.T, opts ...Option) (string, *storage.FS, *store.DB, *Importer) {
	t.Helper()
	db := testutil.TestStore(t)
	dir, fs := testutil.TestFS(t)
	return dir, fs, db, New(db, fs, testLogger, opts...)
}

func leadCount(t *testing.T, db *store.DB) int {
	t.Helper()
	leads, err := db.ListLeads(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return len(leads)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestImportFile_CreatesLeadsOnce(t *testing.T) {
	_, fs, db, im := importEnv(t)
	ctx := context.Background()
	_ = fs.Write("batch.csv", []byte(sampleCSV))

	res, err := im.ImportFile(ctx, "batch.csv")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Duplicate || len(res.LeadIDs) != 2 {
		t.Fatalf("result = %+v", res)
	}

	lead, err := db.GetLead(ctx, res.LeadIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if lead.Status != "negotiation" {
		t.Errorf("status = %q, want normalized negotiation", lead.Status)
	}
	if lead.Source != "import:batch.csv" {
		t.Errorf("source = %q", lead.Source)
	}
	second, _ := db.GetLead(ctx, res.LeadIDs[1])
	if second.Status != "new" {
		t.Errorf("empty status = %q, want new", second.Status)
	}

	// Same content under another name is a duplicate.
	_ = fs.Write("copy.csv", []byte(sampleCSV))
	res, err = im.ImportFile(ctx, "copy.csv")
	if err != nil {
		t.Fatalf("ImportFile copy: %v", err)
	}
	if !res.Duplicate {
		t.Error("expected duplicate")
	}
	if n := leadCount(t, db); n != 2 {
		t.Errorf("leads = %d, want 2", n)
	}
}

func TestImportData_InvalidRowRejectsFile(t *testing.T) {
	_, _, db, im := importEnv(t)
	ctx := context.Background()
	data := []byte("address,status\n1 Oak St,new\n2 Oak St,someday\n")

	_, err := im.ImportData(ctx, "bad.csv", data)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if n := leadCount(t, db); n != 0 {
		t.Errorf("leads = %d, want 0", n)
	}
	seen, _ := db.HasImported(ctx, storage.Checksum(data))
	if seen {
		t.Error("rejected file must not be marked imported")
	}
}

func TestImportData_ParseErrorIsValidation(t *testing.T) {
	_, _, _, im := importEnv(t)
	_, err := im.ImportData(context.Background(), "x.yaml", []byte("just text"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestImportFile_Archive(t *testing.T) {
	dir, fs, _, im := importEnv(t, WithArchive(true))
	_ = fs.Write("batch.csv", []byte(sampleCSV))

	if _, err := im.ImportFile(context.Background(), "batch.csv"); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "batch.csv")); !os.IsNotExist(err) {
		t.Error("inbox file should be moved")
	}
	if _, err := os.Stat(filepath.Join(dir, ArchiveDir, "batch.csv")); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
}

func TestImport_CallbackOnlyWhenLeadsCreated(t *testing.T) {
	var calls []Result
	_, _, _, im := importEnv(t, WithCallback(func(_ context.Context, r Result) {
		calls = append(calls, r)
	}))
	ctx := context.Background()

	_, _ = im.ImportData(ctx, "a.csv", []byte(sampleCSV))
	_, _ = im.ImportData(ctx, "b.csv", []byte(sampleCSV))
	_, _ = im.ImportData(ctx, "empty.yaml", []byte("leads: []\n"))

	if len(calls) != 1 || calls[0].Path != "a.csv" {
		t.Errorf("callbacks = %+v", calls)
	}
}

func TestSync(t *testing.T) {
	_, fs, db, im := importEnv(t)
	_ = fs.Write("a.csv", []byte("address\n1 Pine Rd\n"))
	_ = fs.Write("b.yaml", []byte("- address: 2 Pine Rd\n"))
	_ = fs.Write("notes.txt", []byte("ignored"))
	_ = fs.Write("broken.csv", []byte("city\nnowhere\n"))
	_ = fs.Write(ArchiveDir+"/old.csv", []byte("address\n3 Pine Rd\n"))

	results, err := im.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
	if n := leadCount(t, db); n != 2 {
		t.Errorf("leads = %d, want 2", n)
	}
}

func TestWatch_ImportsNewFiles(t *testing.T) {
	var mu sync.Mutex
	var imported []string
	dir, _, db, im := importEnv(t, WithCallback(func(_ context.Context, r Result) {
		mu.Lock()
		imported = append(imported, r.Path)
		mu.Unlock()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- im.Watch(ctx, dir) }()

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "drop.csv"), []byte(sampleCSV), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# not a lead file"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return leadCount(t, db) == 2
	}, "dropped file not imported by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(imported) == 1 && imported[0] == "drop.csv"
	}, "expected one import callback for drop.csv")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop")
	}
}
