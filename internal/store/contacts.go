package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/starford/flipdesk/internal/models"
)

const contactColumns = `id, name, email, phone, type, company, created_at, updated_at`

var contactSearchColumns = []string{"name", "email", "phone"}

// ContactFilter narrows ListContactsFiltered.
type ContactFilter struct {
	Type string
	Page Page
}

// CreateContact inserts c and sets its ID and timestamps.
func (r repo) CreateContact(ctx context.Context, c *models.Contact) error {
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	q := r.ext.Rebind(`INSERT INTO contacts (name, email, phone, type, company, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.ext.QueryRowxContext(ctx, q, c.Name, c.Email, c.Phone, c.Type, c.Company, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return wrapErr("create contact", err)
	}
	return nil
}

// GetContact returns the contact with the given id.
func (r repo) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	var c models.Contact
	q := r.ext.Rebind(`SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &c, q, id); err != nil {
		return nil, wrapErr("get contact", err)
	}
	return &c, nil
}

// UpdateContact overwrites the editable fields of c.
func (r repo) UpdateContact(ctx context.Context, c *models.Contact) error {
	c.UpdatedAt = r.now()
	q := r.ext.Rebind(`UPDATE contacts SET name = ?, email = ?, phone = ?, type = ?, company = ?, updated_at = ? WHERE id = ?`)
	res, err := r.ext.ExecContext(ctx, q, c.Name, c.Email, c.Phone, c.Type, c.Company, c.UpdatedAt, c.ID)
	if err != nil {
		return wrapErr("update contact", err)
	}
	return mustAffect("update contact", res)
}

// DeleteContact removes a contact.
func (r repo) DeleteContact(ctx context.Context, id int64) error {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(`DELETE FROM contacts WHERE id = ?`), id)
	if err != nil {
		return wrapErr("delete contact", err)
	}
	return mustAffect("delete contact", res)
}

// ListContactsFiltered returns one page of contacts and the total matching f.
func (r repo) ListContactsFiltered(ctx context.Context, f ContactFilter) ([]models.Contact, int, error) {
	where := ""
	var args []any
	if f.Type != "" {
		where = ` WHERE type = ?`
		args = append(args, f.Type)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, r.ext.Rebind(`SELECT COUNT(*) FROM contacts`+where), args...); err != nil {
		return nil, 0, wrapErr("count contacts", err)
	}

	page, args := r.pageClause(f.Page, args)
	var out []models.Contact
	q := r.ext.Rebind(`SELECT ` + contactColumns + ` FROM contacts` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, args...); err != nil {
		return nil, 0, wrapErr("list contacts", err)
	}
	return out, total, nil
}

// SearchContacts returns contacts with q as a case-insensitive substring of
// name, email or phone, ordered by id.
func (r repo) SearchContacts(ctx context.Context, q string, p Page) ([]models.Contact, error) {
	where, args := likeWhere(contactSearchColumns, ContainsPattern(q))
	page, args := r.pageClause(p, args)
	var out []models.Contact
	query := r.ext.Rebind(`SELECT ` + contactColumns + ` FROM contacts WHERE ` + where + ` ORDER BY id` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, query, args...); err != nil {
		return nil, wrapErr("search contacts", err)
	}
	return out, nil
}

// CountContactsMatching counts the contacts SearchContacts would return without paging.
func (r repo) CountContactsMatching(ctx context.Context, q string) (int, error) {
	where, args := likeWhere(contactSearchColumns, ContainsPattern(q))
	var n int
	if err := sqlx.GetContext(ctx, r.ext, &n, r.ext.Rebind(`SELECT COUNT(*) FROM contacts WHERE `+where), args...); err != nil {
		return 0, wrapErr("count contacts", err)
	}
	return n, nil
}
