// Package sqlstore implements the domain repositories on PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clok/internal/domain"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect int

const (
	postgres dialect = iota
	sqliteDialect
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql     *sql.DB
	dialect dialect
}

// Ensure interfaces are met.
var _ domain.ClockRepository = (*DB)(nil)
var _ domain.JournalRepository = (*DB)(nil)
var _ domain.JobRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// Open connects to the database named by driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "postgres", "postgresql":
		return OpenPostgres(dsn)
	case "sqlite", "sqlite3":
		return OpenSQLite(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// OpenPostgres connects to PostgreSQL, pings, and runs migrations.
func OpenPostgres(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)
	return setup(s, postgres)
}

// OpenSQLite opens (or creates) a SQLite database file. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	}
	s, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps :memory: alive.
	s.SetMaxOpenConns(1)
	s.SetMaxIdleConns(1)
	return setup(s, sqliteDialect)
}

func setup(s *sql.DB, d dialect) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	db := &DB{sql: s, dialect: d}
	if err := db.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	id, ts := "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	if d.dialect == sqliteDialect {
		id, ts = "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id " + id + ", username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL DEFAULT '', active_job_id BIGINT, active_clock_id BIGINT, created_at " + ts + " NOT NULL, last_login " + ts + ");",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', ip TEXT NOT NULL DEFAULT '', expires_at " + ts + " NOT NULL, created_at " + ts + " NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE TABLE IF NOT EXISTS jobs (id " + id + ", user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, name TEXT NOT NULL, UNIQUE (user_id, name));",
		"CREATE TABLE IF NOT EXISTS clocks (id " + id + ", user_id BIGINT NOT NULL REFERENCES users(id), job_id BIGINT NOT NULL REFERENCES jobs(id), date_key INTEGER NOT NULL, week_key INTEGER NOT NULL, month_key INTEGER NOT NULL, time_in " + ts + " NOT NULL, time_out " + ts + ", time_span BIGINT NOT NULL DEFAULT 0, CONSTRAINT clocks_natural UNIQUE (job_id, user_id, time_in, time_out));",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_clocks_open_session ON clocks(user_id, job_id) WHERE time_out IS NULL;",
		"CREATE INDEX IF NOT EXISTS idx_clocks_user_date ON clocks(user_id, date_key);",
		"CREATE INDEX IF NOT EXISTS idx_clocks_user_week ON clocks(user_id, week_key);",
		"CREATE INDEX IF NOT EXISTS idx_clocks_user_month ON clocks(user_id, month_key);",
		"CREATE INDEX IF NOT EXISTS idx_clocks_user_time_in ON clocks(user_id, time_in);",
		"CREATE TABLE IF NOT EXISTS journals (id " + id + ", clock_id BIGINT NOT NULL REFERENCES clocks(id) ON DELETE CASCADE, time " + ts + " NOT NULL, entry TEXT NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_journals_clock_id ON journals(clock_id);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := d.sql.ExecContext(ctx, d.rebind(query), args...)
	return res, mapErr(err)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.rebind(query), args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.rebind(query), args...)
}

// mapErr turns uniqueness violations from either driver into
// domain.ErrStoreConflict.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", domain.ErrStoreConflict, pqErr.Constraint)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", domain.ErrStoreConflict, liteErr.Error())
		}
	}
	return err
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
