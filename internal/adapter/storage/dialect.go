package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialect captures the differences between the supported databases. Queries
// are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name string
	// driver is the database/sql driver name.
	driver string
	// returning reports whether INSERT ... RETURNING id is used instead of
	// LastInsertId.
	returning bool
	// lockSuffix is appended to SELECTs that must hold row locks.
	lockSuffix string
	types     *strings.Replacer
}

var (
	MySQL = Dialect{
		Name:       DriverMySQL,
		driver:     "mysql",
		lockSuffix: " FOR UPDATE",
		types: strings.NewReplacer(
			"{{id}}", "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
			"{{ts}}", "DATETIME(6)",
			"{{engine}}", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		),
	}
	Postgres = Dialect{
		Name:       DriverPostgres,
		driver:     "pgx",
		returning:  true,
		lockSuffix: " FOR UPDATE",
		types: strings.NewReplacer(
			"{{id}}", "BIGSERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMPTZ",
			"{{engine}}", "",
		),
	}
	SQLite = Dialect{
		Name:      DriverSQLite,
		driver:    "sqlite",
		returning: true,
		types: strings.NewReplacer(
			"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{ts}}", "DATETIME",
			"{{engine}}", "",
		),
	}
)

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DriverMySQL:
		return MySQL, nil
	case DriverPostgres, "postgresql", "pgx":
		return Postgres, nil
	case DriverSQLite, "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// Rebind rewrites '?' placeholders to the dialect's positional form. Marks
// inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d.Name != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		if query[i] == '\'' {
			quoted = !quoted
		}
		if query[i] == '?' && !quoted {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure.
func (d Dialect) IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
