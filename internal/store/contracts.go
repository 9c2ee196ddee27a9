package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/starford/flipdesk/internal/models"
)

const contractColumns = `id, property_id, contact_id, title, amount, status, document_path, created_at, updated_at`

// ContractFilter narrows ListContractsFiltered.
type ContractFilter struct {
	PropertyID int64
	Status     string
	Page       Page
}

// CreateContract inserts c and sets its ID and timestamps.
func (r repo) CreateContract(ctx context.Context, c *models.Contract) error {
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	q := r.ext.Rebind(`INSERT INTO contracts (property_id, contact_id, title, amount, status, document_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.ext.QueryRowxContext(ctx, q,
		c.PropertyID, c.ContactID, c.Title, c.Amount, c.Status, c.DocumentPath, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return wrapErr("create contract", err)
	}
	return nil
}

// GetContract returns the contract with the given id.
func (r repo) GetContract(ctx context.Context, id int64) (*models.Contract, error) {
	var c models.Contract
	q := r.ext.Rebind(`SELECT ` + contractColumns + ` FROM contracts WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &c, q, id); err != nil {
		return nil, wrapErr("get contract", err)
	}
	return &c, nil
}

// UpdateContract overwrites the editable fields of c, including DocumentPath.
func (r repo) UpdateContract(ctx context.Context, c *models.Contract) error {
	c.UpdatedAt = r.now()
	q := r.ext.Rebind(`UPDATE contracts SET property_id = ?, contact_id = ?, title = ?, amount = ?, status = ?,
		document_path = ?, updated_at = ? WHERE id = ?`)
	res, err := r.ext.ExecContext(ctx, q,
		c.PropertyID, c.ContactID, c.Title, c.Amount, c.Status, c.DocumentPath, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return wrapErr("update contract", err)
	}
	return mustAffect("update contract", res)
}

// DeleteContract removes a contract.
func (r repo) DeleteContract(ctx context.Context, id int64) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`DELETE FROM contracts WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete contract", err)
	}
	return mustAffect("delete contract", res)
}

// ListContractsFiltered returns one page of contracts and the total matching f.
func (r repo) ListContractsFiltered(ctx context.Context, f ContractFilter) ([]models.Contract, int, error) {
	where := ` WHERE 1 = 1`
	var args []any
	if f.PropertyID > 0 {
		where += ` AND property_id = ?`
		args = append(args, f.PropertyID)
	}
	if f.Status != "" {
		where += ` AND LOWER(TRIM(status)) = ?`
		args = append(args, models.NormalizeStatus(f.Status))
	}

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, r.ext.Rebind(`SELECT COUNT(*) FROM contracts`+where), args...); err != nil {
		return nil, 0, wrapErr("count contracts", err)
	}

	page, args := r.pageClause(f.Page, args)
	var out []models.Contract
	q := r.ext.Rebind(`SELECT ` + contractColumns + ` FROM contracts` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, args...); err != nil {
		return nil, 0, wrapErr("list contracts", err)
	}
	return out, total, nil
}
