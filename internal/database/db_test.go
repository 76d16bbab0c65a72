package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMigrationSource_PairsUpAndDown(t *testing.T) {
	src, err := MigrationSource()
	if err != nil {
		t.Fatalf("MigrationSource failed: %v", err)
	}
	defer src.Close()

	var versions []uint
	v, err := src.First()
	for err == nil {
		versions = append(versions, v)

		up, _, upErr := src.ReadUp(v)
		if upErr != nil {
			t.Fatalf("version %d has no up migration: %v", v, upErr)
		}
		up.Close()
		down, _, downErr := src.ReadDown(v)
		if downErr != nil {
			t.Fatalf("version %d has no down migration: %v", v, downErr)
		}
		down.Close()

		v, err = src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("unexpected error walking migrations: %v", err)
	}
	if len(versions) < 2 || versions[0] != 1 {
		t.Errorf("Expected versions starting at 1, got %v", versions)
	}
}

func TestMigrationSource_CreatesDocumentTables(t *testing.T) {
	src, err := MigrationSource()
	if err != nil {
		t.Fatalf("MigrationSource failed: %v", err)
	}
	defer src.Close()

	first, _ := src.First()
	r, _, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp failed: %v", err)
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	for _, table := range DocumentTables {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("Expected the schema to create %s", table)
		}
	}
	if !strings.Contains(string(body), "JSONB") {
		t.Error("Expected JSONB document columns")
	}
}

// Opt-in: POSTGRES_TEST_DSN="host=localhost user=postgres password=postgres dbname=cafe_test sslmode=disable"
func TestRunMigrations_Postgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	db := Wrap(sqlDB, zerolog.Nop())
	defer db.Close()
	ctx := context.Background()

	// Running twice is a no-op the second time
	for i := 0; i < 2; i++ {
		if err := db.RunMigrations(); err != nil {
			t.Fatalf("RunMigrations #%d failed: %v", i+1, err)
		}
	}

	version, dirty, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version < 2 || dirty {
		t.Errorf("Expected a clean schema at version >= 2, got %d (dirty=%v)", version, dirty)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO categories (slug, doc) VALUES ('reset-me', '{}'::jsonb) ON CONFLICT DO NOTHING`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty categories after Reset, got %d", n)
	}

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
