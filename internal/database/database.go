// Package database opens the SQL handle shared by the user store and the audit
// journal, and owns the schema migrations for both.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // PostgreSQL
)

// Dialect names a supported SQL dialect. Its value is also the database/sql
// driver name.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

var driverMap = map[string]Dialect{
	"postgresql": DialectPostgres,
	"postgres":   DialectPostgres,
	"pg":         DialectPostgres,
	"mysql":      DialectMySQL,
	"mariadb":    DialectMySQL,
}

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	d, ok := driverMap[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
	return d, nil
}

// Options configures Open.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// DB is a *sql.DB together with the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// New wraps an existing handle. Tests use it with go-sqlmock.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// Open opens and pings the database.
func Open(ctx context.Context, opts Options) (*DB, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	dsn := opts.DSN
	if dialect == DialectMySQL {
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return New(db, dialect), nil
}

// normalizeMySQLDSN forces time parsing in UTC so DATETIME and TIMESTAMP
// columns scan into time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax. Queries in
// this repository are written with '?' and never contain a literal '?'.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Rebind rewrites query for the handle's dialect.
func (db *DB) Rebind(query string) string {
	return db.Dialect.Rebind(query)
}
