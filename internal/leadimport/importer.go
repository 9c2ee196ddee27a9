// Package leadimport turns lead files dropped into the import inbox into
// leads, once per distinct file content.
package leadimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/crm"
	"github.com/starford/flipdesk/internal/metrics"
	"github.com/starford/flipdesk/internal/parser"
	"github.com/starford/flipdesk/internal/storage"
	"github.com/starford/flipdesk/internal/store"
)

// ArchiveDir is the inbox subdirectory imported files are moved to.
const ArchiveDir = "processed"

// Store is the record-store surface the importer needs.
type Store interface {
	HasImported(ctx context.Context, checksum string) (bool, error)
	InTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Result describes one imported file.
type Result struct {
	Path      string  `json:"path"`
	Checksum  string  `json:"checksum"`
	Duplicate bool    `json:"duplicate"`
	LeadIDs   []int64 `json:"leadIds"`
}

// Callback observes each file that created leads.
type Callback func(ctx context.Context, r Result)

// Importer imports lead files. A file is all-or-nothing: one invalid row
// rejects the whole file.
type Importer struct {
	store   Store
	inbox   storage.Provider
	archive bool
	logger  *slog.Logger
	onDone  []Callback
}

// Option configures an Importer.
type Option func(*Importer)

// WithArchive moves files into ArchiveDir after they are handled.
func WithArchive(enabled bool) Option {
	return func(im *Importer) { im.archive = enabled }
}

// WithCallback registers cb for files that created leads.
func WithCallback(cb Callback) Option {
	return func(im *Importer) { im.onDone = append(im.onDone, cb) }
}

// New creates an Importer reading from inbox. inbox may be nil when only
// ImportData is used.
func New(s Store, inbox storage.Provider, logger *slog.Logger, opts ...Option) *Importer {
	im := &Importer{store: s, inbox: inbox, logger: logger}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile imports the inbox file at rel.
func (im *Importer) ImportFile(ctx context.Context, rel string) (Result, error) {
	data, err := im.inbox.Read(rel)
	if err != nil {
		return Result{}, err
	}
	res, err := im.ImportData(ctx, rel, data)
	if err != nil {
		return res, err
	}
	if im.archive {
		dst := path.Join(ArchiveDir, path.Base(rel))
		if err := im.inbox.Move(rel, dst); err != nil {
			im.logger.Warn("leadimport: archive failed",
				slog.String("path", rel),
				slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// ImportData imports the leads in data. name selects the format and is
// recorded with the checksum. Content imported before is reported as a
// duplicate and creates nothing.
func (im *Importer) ImportData(ctx context.Context, name string, data []byte) (Result, error) {
	res := Result{Path: name, Checksum: storage.Checksum(data), LeadIDs: []int64{}}

	seen, err := im.store.HasImported(ctx, res.Checksum)
	if err != nil {
		return res, err
	}
	if seen {
		res.Duplicate = true
		im.logger.Debug("leadimport: duplicate", slog.String("path", name))
		return res, nil
	}

	leads, err := parser.Parse(name, data)
	if err != nil {
		return res, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	for i := range leads {
		if err := crm.ValidateLead(&leads[i]); err != nil {
			return res, fmt.Errorf("leadimport: %s: lead %d: %w", name, i+1, err)
		}
	}

	err = im.store.InTx(ctx, func(tx *store.Tx) error {
		for i := range leads {
			if err := tx.CreateLead(ctx, &leads[i]); err != nil {
				return err
			}
			res.LeadIDs = append(res.LeadIDs, leads[i].ID)
		}
		return tx.MarkImported(ctx, &store.ImportRecord{
			Checksum:  res.Checksum,
			Path:      name,
			LeadCount: len(leads),
		})
	})
	if errors.Is(err, apperr.ErrAlreadyExists) {
		// Imported concurrently by another watcher or CLI run.
		return Result{Path: name, Checksum: res.Checksum, Duplicate: true, LeadIDs: []int64{}}, nil
	}
	if err != nil {
		return Result{Path: name, Checksum: res.Checksum, LeadIDs: []int64{}}, err
	}

	metrics.LeadsImported.Add(float64(len(res.LeadIDs)))
	im.logger.Info("leadimport: imported",
		slog.String("path", name),
		slog.Int("leads", len(res.LeadIDs)))
	if len(res.LeadIDs) > 0 {
		for _, cb := range im.onDone {
			cb(ctx, res)
		}
	}
	return res, nil
}

// Sync imports every supported file directly in the inbox. Failures are
// logged per file and do not stop the pass.
func (im *Importer) Sync(ctx context.Context) ([]Result, error) {
	metas, err := im.inbox.List("", parser.Supported)
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, m := range metas {
		if strings.Contains(m.Path, "/") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := im.ImportFile(ctx, m.Path)
		if err != nil {
			im.logger.Warn("leadimport: sync failed",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, res)
	}
	return out, nil
}
