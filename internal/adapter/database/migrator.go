package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/nisthourly/internal/support/logger"
)

// DefaultMigrationsTable records the applied schema version.
const DefaultMigrationsTable = "nisthourly_schema_migrations"

// Migrator applies the migrations found under <dir>/<database type> of an fs.FS.
type Migrator struct {
	conn *Connection
}

// NewMigrator creates a Migrator for conn.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn}
}

func (m *Migrator) driver(tableName string) (migratedb.Driver, error) {
	sqlDB, err := m.conn.SQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	switch m.conn.Type() {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.conn.Type())
	}
}

// Up applies every pending migration in migrationFS under dir/<type>.
// The migrate instance is not closed because that would close the shared pool.
func (m *Migrator) Up(migrationFS fs.FS, dir string) error {
	path := m.conn.Type()
	if dir != "" {
		path = dir + "/" + path
	}
	logger.Infof("Executing migration 'up' (Path: %s, Table: %s)", path, DefaultMigrationsTable)

	source, err := iofs.New(migrationFS, path)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.driver(DefaultMigrationsTable)
	if err != nil {
		return err
	}
	instance, err := migrate.NewWithInstance("iofs", source, m.conn.Type(), dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed (DB: %s, Path: %s): %w", m.conn.Type(), path, err)
	}
	version, dirty, _ := instance.Version()
	logger.Infof("Migration 'up' completed. Version: %d, dirty: %t", version, dirty)
	return nil
}

// MigrationSource locates the application migrations: Dir/<database type> inside FS.
type MigrationSource struct {
	FS  fs.FS
	Dir string
}

// Apply runs Up for conn when the source has a file system.
func (s MigrationSource) Apply(conn *Connection) error {
	if s.FS == nil {
		logger.Debugf("No migration source configured for '%s'; skipping migrations.", conn.Name())
		return nil
	}
	return NewMigrator(conn).Up(s.FS, s.Dir)
}
