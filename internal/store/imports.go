package store

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/flipdesk/internal/apperr"
)

// ImportRecord remembers a lead file that has already been imported.
type ImportRecord struct {
	Checksum   string    `db:"checksum"`
	Path       string    `db:"path"`
	LeadCount  int       `db:"lead_count"`
	ImportedAt time.Time `db:"imported_at"`
}

// ImportedChecksums returns every recorded import checksum.
func (r repo) ImportedChecksums(ctx context.Context) (map[string]struct{}, error) {
	var sums []string
	if err := sqlx.SelectContext(ctx, r.ext, &sums, `SELECT checksum FROM imported_files`); err != nil {
		return nil, wrapErr("imported checksums", err)
	}
	out := make(map[string]struct{}, len(sums))
	for _, s := range sums {
		out[s] = struct{}{}
	}
	return out, nil
}

// HasImported reports whether a file with checksum was imported before.
func (r repo) HasImported(ctx context.Context, checksum string) (bool, error) {
	var rec ImportRecord
	q := r.ext.Rebind(`SELECT checksum, path, lead_count, imported_at FROM imported_files WHERE checksum = ?`)
	err := sqlx.GetContext(ctx, r.ext, &rec, q, checksum)
	if err == nil {
		return true, nil
	}
	if err = wrapErr("has imported", err); errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// MarkImported records rec. Recording the same checksum twice fails with
// apperr.ErrAlreadyExists.
func (r repo) MarkImported(ctx context.Context, rec *ImportRecord) error {
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = r.now()
	}
	q := r.ext.Rebind(`INSERT INTO imported_files (checksum, path, lead_count, imported_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.ext.ExecContext(ctx, q, rec.Checksum, rec.Path, rec.LeadCount, rec.ImportedAt); err != nil {
		return wrapErr("mark imported", err)
	}
	return nil
}
