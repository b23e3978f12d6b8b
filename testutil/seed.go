package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/smartfare/internal/domain"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SeedVehicle inserts a route with the given stops (in order) and a vehicle
// running it. Provisioning is not part of the repo layer, so tests write
// these rows directly.
func SeedVehicle(t *testing.T, db Querier, stops []domain.RouteStop) domain.Vehicle {
	t.Helper()
	ctx := context.Background()

	v := domain.Vehicle{
		ID:           uuid.New(),
		Registration: "BUS-" + uuid.NewString()[:8],
		Route:        domain.Route{ID: uuid.New(), Name: "Route " + uuid.NewString()[:4], Stops: stops},
	}

	if _, err := db.Exec(ctx, `INSERT INTO routes (id, name) VALUES ($1, $2)`, v.Route.ID, v.Route.Name); err != nil {
		t.Fatalf("testutil.SeedVehicle: route: %v", err)
	}
	for i, s := range stops {
		_, err := db.Exec(ctx,
			`INSERT INTO route_stops (route_id, position, name, price) VALUES ($1, $2, $3, $4)`,
			v.Route.ID, i, s.Name, s.Price)
		if err != nil {
			t.Fatalf("testutil.SeedVehicle: stop %q: %v", s.Name, err)
		}
	}
	_, err := db.Exec(ctx,
		`INSERT INTO vehicles (id, registration, route_id) VALUES ($1, $2, $3)`,
		v.ID, v.Registration, v.Route.ID)
	if err != nil {
		t.Fatalf("testutil.SeedVehicle: vehicle: %v", err)
	}
	return v
}

// SeedAccount inserts a local passenger account with the given balance.
func SeedAccount(t *testing.T, db Querier, balance int64) domain.Account {
	t.Helper()

	a := domain.Account{
		ID:      uuid.New(),
		Kind:    domain.AccountLocal,
		Name:    "Test Passenger",
		Email:   fmt.Sprintf("%s@example.com", uuid.NewString()),
		NIC:     "901234567V",
		Balance: balance,
		History: []uuid.UUID{},
	}

	_, err := db.Exec(context.Background(),
		`INSERT INTO accounts (id, kind, name, email, nic, balance) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, string(a.Kind), a.Name, a.Email, a.NIC, a.Balance)
	if err != nil {
		t.Fatalf("testutil.SeedAccount: %v", err)
	}
	return a
}
