package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/starford/flipdesk/internal/models"
)

const activityColumns = `id, user_id, action, description, metadata, created_at`

// ActivityFilter narrows ListActivities.
type ActivityFilter struct {
	Action string
	Page   Page
}

// AppendActivity writes one audit log entry. CreatedAt defaults to now.
func (r repo) AppendActivity(ctx context.Context, a *models.GlobalActivity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	if a.Metadata == "" {
		a.Metadata = "{}"
	}
	q := r.ext.Rebind(`INSERT INTO global_activities (user_id, action, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := r.ext.QueryRowxContext(ctx, q, a.UserID, a.Action, a.Description, a.Metadata, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return wrapErr("append activity", err)
	}
	return nil
}

// ListActivities returns activity newest first and the total matching f.
func (r repo) ListActivities(ctx context.Context, f ActivityFilter) ([]models.GlobalActivity, int, error) {
	where := ""
	var args []any
	if f.Action != "" {
		where = ` WHERE action = ?`
		args = append(args, f.Action)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, r.ext.Rebind(`SELECT COUNT(*) FROM global_activities`+where), args...); err != nil {
		return nil, 0, wrapErr("count activities", err)
	}

	page, args := r.pageClause(f.Page, args)
	var out []models.GlobalActivity
	q := r.ext.Rebind(`SELECT ` + activityColumns + ` FROM global_activities` + where + ` ORDER BY id DESC` + page)
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, args...); err != nil {
		return nil, 0, wrapErr("list activities", err)
	}
	return out, total, nil
}
