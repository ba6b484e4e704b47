package database

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported drivers.
// Queries throughout the codebase are written with ? placeholders and
// rebound for the active dialect before execution.
type Dialect interface {
	// Name returns the dialect name ("sqlite" or "postgres"). It also names
	// the migrations subdirectory for the dialect.
	Name() string

	// DriverName returns the database/sql driver name to open.
	DriverName() string

	// Placeholder returns a parameter placeholder for the given 1-based index.
	Placeholder(index int) string

	// Rebind rewrites ? placeholders into the dialect's native form.
	Rebind(query string) string
}

// SQLiteDialect implements Dialect for mattn/go-sqlite3.
type SQLiteDialect struct{}

var _ Dialect = SQLiteDialect{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) DriverName() string { return "sqlite3" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) Rebind(query string) string { return query }

// PostgresDialect implements Dialect for the pgx stdlib driver.
type PostgresDialect struct{}

var _ Dialect = PostgresDialect{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) DriverName() string { return "pgx" }

func (PostgresDialect) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}

// Rebind replaces each ? outside single-quoted literals with $1, $2, ...
func (d PostgresDialect) Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	index := 0
	inLiteral := false
	for _, r := range query {
		switch {
		case r == '\'':
			inLiteral = !inLiteral
			b.WriteRune(r)
		case r == '?' && !inLiteral:
			index++
			b.WriteString(d.Placeholder(index))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DialectFor returns the dialect for a configured driver name.
// Unknown names fall back to SQLite.
func DialectFor(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return PostgresDialect{}
	default:
		return SQLiteDialect{}
	}
}
