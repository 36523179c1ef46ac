package repos

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a database/sql driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// DriverName is the name registered with database/sql.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

func (d Dialect) goose() goose.Dialect {
	if d == DialectPostgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// rebind turns ? placeholders into $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// Diagnostic carries the driver-provided details of a backend failure.
type Diagnostic struct {
	Code    string
	Details string
	Hint    string
}

// Diagnose extracts driver diagnostics from err, if any.
func Diagnose(err error) Diagnostic {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return Diagnostic{Code: string(pqErr.Code), Details: pqErr.Detail, Hint: pqErr.Hint}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return Diagnostic{Code: "SQLITE_" + strconv.Itoa(liteErr.Code()), Details: liteErr.Error()}
	}
	return Diagnostic{}
}
