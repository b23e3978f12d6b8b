package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/testutil"
)

// newTestTx opens a transaction against the test database. The transaction
// is rolled back when the test finishes, giving free per-test isolation.
//
// Requires TEST_DATABASE_URL; the test is skipped otherwise.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test, so no cleanup SQL is needed.
		_ = tx.Rollback(context.Background())
	})
	return tx
}

func lineOneStops() []domain.RouteStop {
	return []domain.RouteStop{
		{Name: "A", Price: 0},
		{Name: "B", Price: 10},
		{Name: "C", Price: 25},
	}
}

func openJourneyFixture(vehicleID, passengerID uuid.UUID) domain.Journey {
	return domain.Journey{
		ID:          uuid.New(),
		VehicleID:   vehicleID,
		PassengerID: passengerID,
		StartPlace:  "A",
		Status:      domain.JourneyOpen,
		StartTime:   time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}
