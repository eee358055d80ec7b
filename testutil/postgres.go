// Package testutil holds shared test helpers: a Postgres harness gated on
// TEST_PG_DSN and fake upstream servers for the feed and captcha clients.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ivall/sifo/db"
)

// SetupTestDB opens the database named by TEST_PG_DSN, runs the embedded
// migration and truncates the content tables so each test starts clean.
// Tests are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	if err := db.Migrate(ctx, database); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	for _, table := range []string{"links", "episodes", "video_categories", "videos", "categories", "sessions", "users"} {
		if _, err := database.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to clear %s: %v", table, err)
		}
	}
	return database
}

// SeedCategory inserts a taxonomy tag and returns its id.
func SeedCategory(t *testing.T, database *sql.DB, name, ctype string) int64 {
	t.Helper()
	var id int64
	err := database.QueryRowContext(context.Background(),
		`INSERT INTO categories (name, type) VALUES ($1,$2) RETURNING id`, name, ctype).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed category %s: %v", name, err)
	}
	return id
}
