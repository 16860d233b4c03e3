package database

import "fmt"

// Dialect covers the SQL differences between the two order stores.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func DialectFor(driver string) Dialect {
	if driver == "sqlite" || driver == "sqlite3" {
		return SQLite
	}
	return Postgres
}

// Arg is the placeholder for the n-th (1-based) query argument.
func (d Dialect) Arg(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func (d Dialect) Now() string {
	if d == SQLite {
		return "CURRENT_TIMESTAMP"
	}
	return "now()"
}

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// JSONArg is the placeholder for a JSON document argument.
func (d Dialect) JSONArg(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d::jsonb", n)
}
