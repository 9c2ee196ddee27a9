package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version    int
	name       string
	statements []string
}

// Column type placeholders, expanded per driver.
var dialectTypes = map[string]*strings.Replacer{
	DriverSQLite: strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ref}}", "INTEGER",
		"{{ts}}", "DATETIME",
		"{{money}}", "REAL",
	),
	DriverPostgres: strings.NewReplacer(
		"{{pk}}", "BIGSERIAL PRIMARY KEY",
		"{{ref}}", "BIGINT",
		"{{ts}}", "TIMESTAMPTZ",
		"{{money}}", "DOUBLE PRECISION",
	),
}

var migrations = []migration{
	{
		version: 1,
		name:    "core tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS leads (
				id              {{pk}},
				address         TEXT NOT NULL DEFAULT '',
				city            TEXT NOT NULL DEFAULT '',
				state           TEXT NOT NULL DEFAULT '',
				zip_code        TEXT NOT NULL DEFAULT '',
				owner_name      TEXT NOT NULL DEFAULT '',
				owner_phone     TEXT NOT NULL DEFAULT '',
				owner_email     TEXT NOT NULL DEFAULT '',
				estimated_value {{money}},
				status          TEXT NOT NULL DEFAULT 'new',
				notes           TEXT NOT NULL DEFAULT '',
				source          TEXT NOT NULL DEFAULT '',
				created_at      {{ts}} NOT NULL,
				updated_at      {{ts}} NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS properties (
				id             {{pk}},
				address        TEXT NOT NULL DEFAULT '',
				city           TEXT NOT NULL DEFAULT '',
				state          TEXT NOT NULL DEFAULT '',
				zip_code       TEXT NOT NULL DEFAULT '',
				apn            TEXT NOT NULL DEFAULT '',
				price          {{money}},
				status         TEXT NOT NULL DEFAULT 'active',
				source_lead_id {{ref}} REFERENCES leads(id) ON DELETE SET NULL,
				created_at     {{ts}} NOT NULL,
				updated_at     {{ts}} NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_properties_source_lead_id
				ON properties(source_lead_id) WHERE source_lead_id IS NOT NULL`,
			`CREATE TABLE IF NOT EXISTS contacts (
				id         {{pk}},
				name       TEXT NOT NULL DEFAULT '',
				email      TEXT NOT NULL DEFAULT '',
				phone      TEXT NOT NULL DEFAULT '',
				type       TEXT NOT NULL DEFAULT '',
				company    TEXT NOT NULL DEFAULT '',
				created_at {{ts}} NOT NULL,
				updated_at {{ts}} NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS contracts (
				id            {{pk}},
				property_id   {{ref}} REFERENCES properties(id) ON DELETE SET NULL,
				contact_id    {{ref}} REFERENCES contacts(id) ON DELETE SET NULL,
				title         TEXT NOT NULL DEFAULT '',
				amount        {{money}},
				status        TEXT NOT NULL DEFAULT 'draft',
				document_path TEXT NOT NULL DEFAULT '',
				created_at    {{ts}} NOT NULL,
				updated_at    {{ts}} NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS global_activities (
				id          {{pk}},
				user_id     {{ref}} NOT NULL DEFAULT 0,
				action      TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				metadata    TEXT NOT NULL DEFAULT '{}',
				created_at  {{ts}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_global_activities_action ON global_activities(action)`,
		},
	},
	{
		version: 2,
		name:    "lead imports",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS imported_files (
				checksum    TEXT PRIMARY KEY,
				path        TEXT NOT NULL,
				lead_count  INTEGER NOT NULL DEFAULT 0,
				imported_at {{ts}} NOT NULL
			)`,
		},
	},
}

// SchemaVersion is the latest migration version.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate applies every migration newer than the recorded version, one
// transaction per version.
func migrate(ctx context.Context, conn *sqlx.DB) error {
	types, ok := dialectTypes[conn.DriverName()]
	if !ok {
		return fmt.Errorf("store: migrate: no dialect for %q", conn.DriverName())
	}

	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("store: migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := conn.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return fmt.Errorf("store: migrate: read current version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, conn, types, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sqlx.DB, types *strings.Replacer, m migration) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: migrate v%d: begin: %w", m.version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, types.Replace(stmt)); err != nil {
			return fmt.Errorf("store: migrate v%d (%s): %w", m.version, m.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), m.version); err != nil {
		return fmt.Errorf("store: migrate v%d: record version: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: migrate v%d: commit: %w", m.version, err)
	}
	return nil
}
