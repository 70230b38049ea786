package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Major117-gkd/WaterAlert-Group10/internal/config"
	"github.com/Major117-gkd/WaterAlert-Group10/migrations"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// NewDB opens the database selected by cfg.Type.
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	switch cfg.Type {
	case config.DatabasePostgres:
		return NewPostgresDB(cfg.URL, logger)
	case config.DatabaseSQLite:
		return NewSQLiteDB(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}

// NewPostgresDB establishes a new connection to the PostgreSQL database.
func NewPostgresDB(dataSourceName string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	logger.Info("Successfully connected to the database!", zap.String("type", config.DatabasePostgres))
	return db, nil
}

// NewSQLiteDB opens (and creates if needed) an SQLite database file.
func NewSQLiteDB(path string, logger *zap.Logger) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	logger.Info("Successfully connected to the database!", zap.String("type", config.DatabaseSQLite), zap.String("path", path))
	return db, nil
}

func newMigrator(db *sqlx.DB, dbType string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dbType {
	case config.DatabasePostgres:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case config.DatabaseSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unknown database type %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	source, err := iofs.New(migrations.FS, dbType)
	if err != nil {
		return nil, fmt.Errorf("couldn't open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "wateralert", driver)
	if err != nil {
		return nil, fmt.Errorf("couldn't create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateDB runs database migrations up to the latest schema version.
func MigrateDB(db *sqlx.DB, dbType string, logger *zap.Logger) error {
	m, err := newMigrator(db, dbType)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Database migration was run successfully", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
