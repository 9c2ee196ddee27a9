package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/starford/flipdesk/internal/models"
)

const propertyColumns = `id, address, city, state, zip_code, apn, price, status, source_lead_id, created_at, updated_at`

var propertySearchColumns = []string{"address", "city", "state", "apn", "zip_code"}

// PropertyFilter narrows ListPropertiesFiltered.
type PropertyFilter struct {
	Status string
	Page   Page
}

// CreateProperty inserts p and sets its ID and timestamps. A second property
// for the same source lead fails with apperr.ErrAlreadyExists.
func (r repo) CreateProperty(ctx context.Context, p *models.Property) error {
	now := r.now()
	p.CreatedAt, p.UpdatedAt = now, now
	q := r.ext.Rebind(`INSERT INTO properties (address, city, state, zip_code, apn, price, status, source_lead_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.ext.QueryRowxContext(ctx, q,
		p.Address, p.City, p.State, p.ZipCode, p.APN, p.Price, p.Status, p.SourceLeadID, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return wrapErr("create property", err)
	}
	return nil
}

// GetProperty returns the property with the given id.
func (r repo) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	var p models.Property
	q := r.ext.Rebind(`SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &p, q, id); err != nil {
		return nil, wrapErr("get property", err)
	}
	return &p, nil
}

// FindPropertyBySourceLeadID returns the property converted from leadID, or
// apperr.ErrNotFound.
func (r repo) FindPropertyBySourceLeadID(ctx context.Context, leadID int64) (*models.Property, error) {
	var p models.Property
	q := r.ext.Rebind(`SELECT ` + propertyColumns + ` FROM properties WHERE source_lead_id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &p, q, leadID); err != nil {
		return nil, wrapErr("find property by source lead", err)
	}
	return &p, nil
}

// UpdateProperty overwrites the editable fields of p. SourceLeadID is not editable.
func (r repo) UpdateProperty(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = r.now()
	q := r.ext.Rebind(`UPDATE properties SET address = ?, city = ?, state = ?, zip_code = ?, apn = ?,
		price = ?, status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.ext.ExecContext(ctx, q,
		p.Address, p.City, p.State, p.ZipCode, p.APN, p.Price, p.Status, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return wrapErr("update property", err)
	}
	return mustAffect("update property", res)
}

// DeleteProperty removes a property.
func (r repo) DeleteProperty(ctx context.Context, id int64) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`DELETE FROM properties WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete property", err)
	}
	return mustAffect("delete property", res)
}

// ListPropertiesFiltered returns one page of properties and the total matching f.
func (r repo) ListPropertiesFiltered(ctx context.Context, f PropertyFilter) ([]models.Property, int, error) {
	where := ""
	var args []any
	if f.Status != "" {
		where = ` WHERE LOWER(TRIM(status)) = ?`
		args = append(args, models.NormalizeStatus(f.Status))
	}

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, r.ext.Rebind(`SELECT COUNT(*) FROM properties`+where), args...); err != nil {
		return nil, 0, wrapErr("count properties", err)
	}

	page, args := r.pageClause(f.Page, args)
	var out []models.Property
	q := r.ext.Rebind(`SELECT ` + propertyColumns + ` FROM properties` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, args...); err != nil {
		return nil, 0, wrapErr("list properties", err)
	}
	return out, total, nil
}

// SearchProperties returns properties with q as a case-insensitive substring
// of any searchable field, ordered by id.
func (r repo) SearchProperties(ctx context.Context, q string, p Page) ([]models.Property, error) {
	where, args := likeWhere(propertySearchColumns, ContainsPattern(q))
	page, args := r.pageClause(p, args)
	var out []models.Property
	query := r.ext.Rebind(`SELECT ` + propertyColumns + ` FROM properties WHERE ` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, query, args...); err != nil {
		return nil, wrapErr("search properties", err)
	}
	return out, nil
}

// CountPropertiesMatching counts the properties SearchProperties would return without paging.
func (r repo) CountPropertiesMatching(ctx context.Context, q string) (int, error) {
	where, args := likeWhere(propertySearchColumns, ContainsPattern(q))
	var n int
	if err := sqlx.GetContext(ctx, r.ext, &n, r.ext.Rebind(`SELECT COUNT(*) FROM properties WHERE `+where), args...); err != nil {
		return 0, wrapErr("count properties", err)
	}
	return n, nil
}
