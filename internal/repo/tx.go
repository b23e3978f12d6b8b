package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Stores groups the repositories that take part in a settlement. Every
// repository in a Stores value is bound to the same transaction.
type Stores struct {
	Accounts AccountRepo
	Journeys JourneyRepo
}

// Transactor runs a unit of work atomically.
//
// WithinTx begins a transaction, hands fn repositories bound to it, and
// commits when fn returns nil. Any error from fn, a failed commit, or an
// expired ctx rolls back every write made through the Stores.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// beginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx. Passing a
// pgx.Tx nests the unit of work in a savepoint, which is how the
// integration tests keep per-test rollback isolation.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTransactor struct {
	db beginner
}

// NewTransactor constructs a Postgres-backed Transactor.
func NewTransactor(db beginner) Transactor {
	return &pgTransactor{db: db}
}

// WithinTx runs fn inside a single Postgres transaction.
func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	err := pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		return fn(ctx, Stores{
			Accounts: NewAccountRepo(tx),
			Journeys: NewJourneyRepo(tx),
		})
	})
	if err != nil {
		return fmt.Errorf("repo.Transactor.WithinTx: %w", err)
	}
	return nil
}
