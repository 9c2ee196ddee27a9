package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("address,city\n1 Main St,Springfield\n")
	if err := s.Write("leads.csv", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("leads.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("contracts/7/deal.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("contracts/7/deal.pdf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "%PDF-1.4" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteRejectsRoot(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("", []byte("x")); err == nil {
		t.Error("expected error writing to root")
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.csv", []byte("bye"))
	if err := s.Delete("del.csv"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.csv"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("leads.csv", []byte("data"))
	if err := s.Move("leads.csv", "processed/leads.csv"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("processed/leads.csv")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("leads.csv"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.csv", []byte("a"))
	_ = s.Write("sub/b.yaml", []byte("b"))
	_ = s.Write("readme.txt", []byte("skip"))
	_ = s.Write(".hidden.csv", []byte("skip"))
	_ = s.Write(".cache/c.csv", []byte("skip"))

	items, err := s.List("", func(name string) bool {
		return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".yaml")
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Path != "a.csv" || items[1].Path != "sub/b.yaml" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Size != 1 || items[0].Checksum == "" {
		t.Errorf("meta = %+v", items[0])
	}
}

func TestListNilMatch(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.csv", []byte("a"))
	_ = s.Write("b.txt", []byte("b"))
	items, err := s.List("", nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.csv",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestRel(t *testing.T) {
	s := tempRoot(t)
	rel, err := s.Rel(filepath.Join(s.Root(), "sub", "x.csv"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if rel != "sub/x.csv" {
		t.Errorf("rel = %q", rel)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.csv", []byte("original"))
	if err := s.Write("atomic.csv", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.csv")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, tmpPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestEnsureFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "documents")
	s, err := EnsureFS(dir)
	if err != nil {
		t.Fatalf("EnsureFS: %v", err)
	}
	if _, err := os.Stat(s.Root()); err != nil {
		t.Errorf("root not created: %v", err)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/flipdesk-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "flipdesk-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
