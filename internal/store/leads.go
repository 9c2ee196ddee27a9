package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/starford/flipdesk/internal/models"
)

const leadColumns = `id, address, city, state, zip_code, owner_name, owner_phone, owner_email,
	estimated_value, status, notes, source, created_at, updated_at`

// leadSearchColumns are matched by SearchLeads.
var leadSearchColumns = []string{"address", "city", "state", "owner_name", "owner_phone", "owner_email"}

// LeadFilter narrows ListLeadsFiltered. Status is compared after normalization.
type LeadFilter struct {
	Status string
	Page   Page
}

// CreateLead inserts l and sets its ID and timestamps.
func (r repo) CreateLead(ctx context.Context, l *models.Lead) error {
	now := r.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	q := r.ext.Rebind(`INSERT INTO leads (address, city, state, zip_code, owner_name, owner_phone, owner_email,
		estimated_value, status, notes, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.ext.QueryRowxContext(ctx, q,
		l.Address, l.City, l.State, l.ZipCode, l.OwnerName, l.OwnerPhone, l.OwnerEmail,
		l.EstimatedValue, l.Status, l.Notes, l.Source, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return wrapErr("create lead", err)
	}
	return nil
}

// GetLead returns the lead with the given id.
func (r repo) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	var l models.Lead
	q := r.ext.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &l, q, id); err != nil {
		return nil, wrapErr("get lead", err)
	}
	return &l, nil
}

// UpdateLead overwrites the editable fields of l.
func (r repo) UpdateLead(ctx context.Context, l *models.Lead) error {
	l.UpdatedAt = r.now()
	q := r.ext.Rebind(`UPDATE leads SET address = ?, city = ?, state = ?, zip_code = ?, owner_name = ?,
		owner_phone = ?, owner_email = ?, estimated_value = ?, status = ?, notes = ?, source = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.ext.ExecContext(ctx, q,
		l.Address, l.City, l.State, l.ZipCode, l.OwnerName, l.OwnerPhone, l.OwnerEmail,
		l.EstimatedValue, l.Status, l.Notes, l.Source, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return wrapErr("update lead", err)
	}
	return mustAffect("update lead", res)
}

// DeleteLead removes a lead. Properties converted from it keep existing with
// source_lead_id cleared.
func (r repo) DeleteLead(ctx context.Context, id int64) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`DELETE FROM leads WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete lead", err)
	}
	return mustAffect("delete lead", res)
}

// ListLeads returns every lead ordered by id.
func (r repo) ListLeads(ctx context.Context) ([]models.Lead, error) {
	var out []models.Lead
	if err := sqlx.SelectContext(ctx, r.ext, &out, `SELECT `+leadColumns+` FROM leads ORDER BY id`); err != nil {
		return nil, wrapErr("list leads", err)
	}
	return out, nil
}

// ListLeadsFiltered returns one page of leads and the total matching f.
func (r repo) ListLeadsFiltered(ctx context.Context, f LeadFilter) ([]models.Lead, int, error) {
	where := ""
	var args []any
	if f.Status != "" {
		where = ` WHERE LOWER(TRIM(status)) = ?`
		args = append(args, models.NormalizeStatus(f.Status))
	}

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, r.ext.Rebind(`SELECT COUNT(*) FROM leads`+where), args...); err != nil {
		return nil, 0, wrapErr("count leads", err)
	}

	page, args := r.pageClause(f.Page, args)
	var out []models.Lead
	q := r.ext.Rebind(`SELECT ` + leadColumns + ` FROM leads` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, args...); err != nil {
		return nil, 0, wrapErr("list leads", err)
	}
	return out, total, nil
}

// ListConversionCandidates returns unconverted leads whose lowercased status
// contains one of statuses, ordered by id. The result is a superset: rows
// with stray whitespace or legacy casing are included, so callers classify
// each lead with models.ConvertibleStatus.
func (r repo) ListConversionCandidates(ctx context.Context, statuses []string) ([]models.Lead, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	cols := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		cols[i] = `LOWER(l.status) LIKE ? ESCAPE '\'`
		args[i] = ContainsPattern(s)
	}
	q := r.ext.Rebind(`SELECT ` + leadColumns + ` FROM leads l
		WHERE (` + strings.Join(cols, " OR ") + `)
		AND NOT EXISTS (SELECT 1 FROM properties p WHERE p.source_lead_id = l.id)
		ORDER BY l.id`)
	var out []models.Lead
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, args...); err != nil {
		return nil, wrapErr("list conversion candidates", err)
	}
	return out, nil
}

// SearchLeads returns leads with q as a case-insensitive substring of any
// searchable field, ordered by id.
func (r repo) SearchLeads(ctx context.Context, q string, p Page) ([]models.Lead, error) {
	where, args := likeWhere(leadSearchColumns, ContainsPattern(q))
	page, args := r.pageClause(p, args)
	var out []models.Lead
	query := r.ext.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE ` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, query, args...); err != nil {
		return nil, wrapErr("search leads", err)
	}
	return out, nil
}

// CountLeadsMatching counts the leads SearchLeads would return without paging.
func (r repo) CountLeadsMatching(ctx context.Context, q string) (int, error) {
	where, args := likeWhere(leadSearchColumns, ContainsPattern(q))
	var n int
	if err := sqlx.GetContext(ctx, r.ext, &n, r.ext.Rebind(`SELECT COUNT(*) FROM leads WHERE `+where), args...); err != nil {
		return 0, wrapErr("count leads", err)
	}
	return n, nil
}
