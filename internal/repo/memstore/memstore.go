// Package memstore is an in-memory implementation of the repo interfaces,
// including the Transactor. It backs the server when STORE=memory and
// serves as the transactional test double for the service layer.
//
// A transaction stages its writes privately and records what it expected the
// committed state to be. Every committed account write bumps that account's
// version; a transaction remembers the version it first read and commit
// refuses it if the account has been written since. Commit takes the store
// lock, re-checks every expectation, and either applies all staged writes or
// none of them. The lock
// is held only for that check-and-apply step, never while caller code runs.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
)

// Store holds committed accounts, vehicles and journeys.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	versions map[uuid.UUID]uint64
	vehicles map[uuid.UUID]domain.Vehicle
	journeys map[uuid.UUID]domain.Journey
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		versions: make(map[uuid.UUID]uint64),
		vehicles: make(map[uuid.UUID]domain.Vehicle),
		journeys: make(map[uuid.UUID]domain.Journey),
	}
}

// compile-time checks.
var (
	_ repo.Transactor  = (*Store)(nil)
	_ repo.VehicleRepo = (*Store)(nil)
)

// PutAccount provisions (or replaces) an account.
func (s *Store) PutAccount(a domain.Account) error {
	if err := a.CheckInvariant(); err != nil {
		return fmt.Errorf("memstore.PutAccount: %w: %s", domain.ErrValidation, err)
	}
	if a.History == nil {
		a.History = []uuid.UUID{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a.Clone()
	s.versions[a.ID]++
	return nil
}

// PutVehicle provisions (or replaces) a vehicle and its route.
func (s *Store) PutVehicle(v domain.Vehicle) error {
	if err := v.Route.Validate(); err != nil {
		return fmt.Errorf("memstore.PutVehicle: %w", err)
	}
	v.Route.Stops = slices.Clone(v.Route.Stops)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
	return nil
}

// PutJourney stores a journey record as-is. Intended for fixtures and tests
// that need to start from a particular state.
func (s *Store) PutJourney(j domain.Journey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journeys[j.ID] = j
}

// GetWithRoute implements repo.VehicleRepo.
func (s *Store) GetWithRoute(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("memstore.GetWithRoute: %w", domain.ErrNotFound)
	}
	v.Route.Stops = slices.Clone(v.Route.Stops)
	return v, nil
}

// Accounts returns a non-transactional AccountRepo. Each write commits on its own.
func (s *Store) Accounts() repo.AccountRepo {
	return &accountRepo{s: s}
}

// Journeys returns a non-transactional JourneyRepo. Each write commits on its own.
func (s *Store) Journeys() repo.JourneyRepo {
	return &journeyRepo{s: s}
}

// WithinTx implements repo.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st repo.Stores) error) error {
	tx := newTxn()
	err := fn(ctx, repo.Stores{
		Accounts: &accountRepo{s: s, tx: tx},
		Journeys: &journeyRepo{s: s, tx: tx},
	})
	if err != nil {
		return fmt.Errorf("memstore.WithinTx: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore.WithinTx: %w", err)
	}
	if err := s.commit(tx); err != nil {
		return fmt.Errorf("memstore.WithinTx: commit: %w", err)
	}
	return nil
}

// txn is the private write set of one transaction.
type txn struct {
	accounts map[uuid.UUID]domain.Account
	journeys map[uuid.UUID]domain.Journey

	// readVersion is the committed version of each account when this
	// transaction first read it. A staged account commits only if its
	// version is unchanged.
	readVersion map[uuid.UUID]uint64
	// expectOpen lists committed journeys that must still be open at commit.
	expectOpen map[uuid.UUID]struct{}
	// created lists journeys inserted by this transaction.
	created []uuid.UUID
}

func newTxn() *txn {
	return &txn{
		accounts:    make(map[uuid.UUID]domain.Account),
		journeys:    make(map[uuid.UUID]domain.Journey),
		readVersion: make(map[uuid.UUID]uint64),
		expectOpen:  make(map[uuid.UUID]struct{}),
	}
}

// commit validates tx against the committed state and applies it atomically.
func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.accounts {
		read, seen := tx.readVersion[id]
		if _, ok := s.accounts[id]; !ok || !seen || s.versions[id] != read {
			return fmt.Errorf("account %s: %w", id, repo.ErrStateConflict)
		}
	}
	for id := range tx.expectOpen {
		cur, ok := s.journeys[id]
		if !ok || cur.Status != domain.JourneyOpen {
			return fmt.Errorf("journey %s: %w", id, repo.ErrStateConflict)
		}
	}
	for _, id := range tx.created {
		if _, exists := s.journeys[id]; exists {
			return fmt.Errorf("journey %s: %w", id, repo.ErrStateConflict)
		}
		if s.hasOpenJourneyLocked(tx.journeys[id].PassengerID, tx) {
			return fmt.Errorf("passenger %s: %w", tx.journeys[id].PassengerID, repo.ErrStateConflict)
		}
	}

	for id, a := range tx.accounts {
		s.accounts[id] = a
		s.versions[id]++
	}
	for id, j := range tx.journeys {
		s.journeys[id] = j
	}
	return nil
}

// hasOpenJourneyLocked reports whether the committed state has an open journey
// for passenger that tx does not close. Callers must hold s.mu.
func (s *Store) hasOpenJourneyLocked(passenger uuid.UUID, tx *txn) bool {
	for id, j := range s.journeys {
		if j.PassengerID != passenger || j.Status != domain.JourneyOpen {
			continue
		}
		if staged, ok := tx.journeys[id]; ok && staged.Status == domain.JourneyClosed {
			continue
		}
		return true
	}
	return false
}

// sortJourneys orders newest first, then by id for a stable page order.
func sortJourneys(js []domain.Journey) {
	slices.SortFunc(js, func(a, b domain.Journey) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
