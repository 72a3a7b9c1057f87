package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkordes/trip-planner/backend/testutil"
)

// TestMain brings the test database schema up to date before any test in the
// package runs. Without TEST_DATABASE_URL every test skips itself.
func TestMain(m *testing.M) {
	if dsn := testutil.DSN(); dsn != "" {
		if _, err := testutil.Migrate(context.Background(), dsn); err != nil {
			log.Fatalf("TestMain: %v", err)
		}
	}
	os.Exit(m.Run())
}
