// Package pgtest opens a migrated Postgres database for adapter tests and
// skips the test when none is reachable.
package pgtest

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smartcart/product-service/internal/pkg/database/postgres"
)

func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	cfg := &postgres.Config{
		Host:         getEnv("POSTGRES_HOST", "localhost"),
		Port:         getEnv("POSTGRES_PORT", "5432"),
		User:         getEnv("POSTGRES_USER", "smartcart"),
		Password:     getEnv("POSTGRES_PASSWORD", "smartcart"),
		DBName:       getEnv("POSTGRES_TEST_DB", "smartcart_products_test"),
		SSLMode:      "disable",
		MaxOpenConns: 40,
		MaxIdleConns: 10,
	}

	db, err := postgres.NewPostgres(cfg)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	if err := postgres.Migrate(cfg); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// StoreID returns a fresh store so tests sharing a database do not see
// each other's rows.
func StoreID() string {
	return uuid.New().String()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
