package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Document tables. Each row is one JSON document in a doc JSONB column,
// with the key and creation time lifted out for ordering.
const (
	ArticlesTable   = "articles"
	CategoriesTable = "categories"
)

// DocumentTables lists every table the migrations create
var DocumentTables = []string{ArticlesTable, CategoriesTable}

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationSource opens the embedded schema as a golang-migrate source
func MigrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return src, nil
}

// DB wraps the sql.DB connection holding the document tables
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New creates a new database connection with connection pooling
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapper := &DB{
		DB:  db,
		log: log.With().Str("component", "database").Logger(),
	}

	wrapper.log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connection established")

	return wrapper, nil
}

// Wrap adapts an existing *sql.DB, e.g. one opened by a test harness
func Wrap(db *sql.DB, log zerolog.Logger) *DB {
	return &DB{DB: db, log: log.With().Str("component", "database").Logger()}
}

// RunMigrations brings the document tables up to the embedded schema
func (db *DB) RunMigrations() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	db.log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Migrations completed")

	return nil
}

// SchemaVersion reads the applied migration version; zero means none.
// It queries golang-migrate's bookkeeping table directly so no extra
// connection is pinned.
func (db *DB) SchemaVersion(ctx context.Context) (uint, bool, error) {
	var version int64
	var dirty bool
	err := db.QueryRowContext(ctx, "SELECT version, dirty FROM "+postgres.DefaultMigrationsTable+" LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return uint(version), dirty, nil
}

// Reset empties every document table, keeping the schema
func (db *DB) Reset(ctx context.Context) error {
	query := "TRUNCATE " + strings.Join(DocumentTables, ", ")
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to reset document tables: %w", err)
	}
	db.log.Warn().Strs("tables", DocumentTables).Msg("Document tables emptied")
	return nil
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := MigrationSource()
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// HealthCheck pings the database and confirms the article table answers
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1 FROM "+ArticlesTable+" LIMIT 1").Scan(&one); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("articles table unavailable: %w", err)
	}
	return nil
}
