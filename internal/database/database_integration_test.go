package database_test

import (
	"context"
	"testing"

	"github.com/flaskbasic/basicapp/internal/testutil"
)

func TestIntegrationMigrate_CreatesTables(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() on an up-to-date schema: %v", err)
	}

	for _, table := range []string{"users", "dependents"} {
		t.Run(table, func(t *testing.T) {
			var exists bool
			err := db.QueryRowContext(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.tables
					WHERE table_schema = 'public' AND table_name = $1
				)`, table).Scan(&exists)
			if err != nil {
				t.Fatalf("query information_schema: %v", err)
			}
			if !exists {
				t.Errorf("table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationReset_EmptiesTables(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `INSERT INTO users (name, age) VALUES ('reset-me', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty users table after reset, got %d rows", count)
	}
}
