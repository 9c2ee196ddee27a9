// Package store is the relational Record Store for leads, opportunities,
// contacts, contracts and the activity log. It runs on SQLite (default) or
// PostgreSQL through sqlx.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// sqliteUnicodeDriver is go-sqlite3 with LOWER replaced by a Unicode-aware
// version, so LIKE matching folds case the same way ContainsPattern does.
// The built-in LOWER only folds ASCII letters.
const sqliteUnicodeDriver = "sqlite3_flipdesk"

func init() {
	sql.Register(sqliteUnicodeDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

// DB wraps a sqlx.DB with record-store operations. Methods promoted from
// repo run outside any transaction; see InTx for atomic sequences.
type DB struct {
	repo
	conn *sqlx.DB
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := openConn(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer at a time; share a single connection.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{repo: repo{ext: conn}, conn: conn}, nil
}

// openConn opens SQLite through sqliteUnicodeDriver while keeping the
// "sqlite3" name sqlx uses for bind vars and dialect checks.
func openConn(driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverSQLite {
		return sqlx.Open(driver, dsn)
	}
	db, err := sql.Open(sqliteUnicodeDriver, dsn)
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, DriverSQLite), nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// Driver returns the database driver name.
func (db *DB) Driver() string {
	return db.conn.DriverName()
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Tx is a record-store handle bound to one database transaction.
type Tx struct {
	repo
}

// InTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Tx{repo: repo{ext: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
