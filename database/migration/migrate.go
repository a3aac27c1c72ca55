// Package migration applies versioned SQL migrations with golang-migrate.
//
// Migration files live in an fs.FS (normally embedded) and follow the
// pattern VERSION_name.up.sql / VERSION_name.down.sql. They are applied in
// ascending version order; already-applied versions are skipped.
//
//	//go:embed auth/*.sql
//	var authFS embed.FS
//
//	db, _ := migration.DSN(dsn)()
//	version, err := migration.Apply(db, authFS, "auth", migration.Postgres)
//
// Apply owns the handle it is given and closes it when done, so a run
// never holds a connection of the service's pool.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (database.Driver, error)

// Postgres is the DriverFunc for PostgreSQL.
func Postgres(db *sql.DB) (database.Driver, error) {
	return migratepg.WithInstance(db, &migratepg.Config{})
}

// Opener returns a database handle dedicated to one migration run.
type Opener func() (*sql.DB, error)

// DSN returns an Opener for a PostgreSQL connection string.
func DSN(dsn string) Opener {
	return func() (*sql.DB, error) {
		if dsn == "" {
			return nil, errors.New("empty connection string")
		}
		return sql.Open("pgx", dsn)
	}
}

// Apply runs pending migrations on db and returns the resulting schema
// version. db is closed before Apply returns. A dirty schema after the
// run is an error.
func Apply(db *sql.DB, fsys fs.FS, path string, driverFunc DriverFunc) (version uint, err error) {
	if db == nil {
		return 0, fmt.Errorf("no database connection")
	}
	defer db.Close()

	m, err := newMigrator(db, fsys, path, driverFunc)
	if err != nil {
		return 0, err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// newMigrator creates a golang-migrate instance backed by fsys.
func newMigrator(db *sql.DB, fsys fs.FS, path string, driverFunc DriverFunc) (*migrate.Migrate, error) {
	source, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	driver, err := driverFunc(db)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "database", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
