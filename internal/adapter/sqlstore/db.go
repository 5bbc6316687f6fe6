// Package sqlstore reads historical measurements from, and records predictions
// to, the air quality database (locations, air_quality_data, predictions).
package sqlstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	//go:embed schema_sqlite.sql
	sqliteSchema string

	//go:embed schema_postgres.sql
	postgresSchema string
)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// EnsureLocation returns the id of the named location, inserting it if needed.
func EnsureLocation(ctx context.Context, db *sqlx.DB, name string, lat, lon float64) (int64, error) {
	insert := db.Rebind(`INSERT INTO locations (name, latitude, longitude) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`)
	if _, err := db.ExecContext(ctx, insert, name, lat, lon); err != nil {
		return 0, fmt.Errorf("insert location %q: %w", name, err)
	}
	var id int64
	if err := db.GetContext(ctx, &id, db.Rebind(`SELECT id FROM locations WHERE name = ?`), name); err != nil {
		return 0, fmt.Errorf("lookup location %q: %w", name, err)
	}
	return id, nil
}
