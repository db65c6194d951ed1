// Package testutil provides helpers for integration tests and test data.
package testutil

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flaskbasic/basicapp/internal/database"
	"github.com/flaskbasic/basicapp/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenTestDB connects to DATABASE_URL, takes the shared advisory lock and
// resets the schema. The test is skipped when DATABASE_URL is unset or in
// short mode.
func OpenTestDB(t testing.TB) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	dbURL := RequireEnv(t, "DATABASE_URL")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, dbURL, DiscardLogger())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	unlock, err := db.AcquireLock(ctx)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })

	if err := db.Reset(); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return db
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser returns an unsaved user with a unique name.
func NewTestUser(t testing.TB, age int) *model.User {
	t.Helper()
	return &model.User{
		Name: UniqueName("user"),
		Age:  age,
	}
}

// NewTestDependent returns an unsaved dependent of userKey.
func NewTestDependent(t testing.TB, userKey int64, age int) *model.Dependent {
	t.Helper()
	return &model.Dependent{
		Name2:   UniqueName("dep"),
		Age2:    age,
		UserKey: &userKey,
	}
}

// UniqueName generates a unique, lexically sortable name for tests.
func UniqueName(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return prefix + "-" + strings.ToLower(id.String())
}
