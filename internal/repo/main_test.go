package repo_test

import (
	"os"
	"testing"

	"github.com/pkordes/smartfare/testutil"
)

// TestMain runs before any test in the repo_test package.
// It applies all pending migrations to the test database so individual tests
// never need to think about schema state.
func TestMain(m *testing.M) {
	os.Exit(testutil.RunMigrated(m))
}
