package memstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
)

// accountRepo reads through tx's staged writes to the committed state.
// With a nil tx every write commits immediately.
type accountRepo struct {
	s  *Store
	tx *txn
}

var _ repo.AccountRepo = (*accountRepo)(nil)

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Account, error) {
	a, ok := r.view(id)
	if !ok {
		return domain.Account{}, fmt.Errorf("memstore.AccountRepo.GetByID: %w", domain.ErrNotFound)
	}
	return a, nil
}

// GetForUpdate takes no lock; the version recorded by the first read is
// re-checked at commit instead.
func (r *accountRepo) GetForUpdate(_ context.Context, id uuid.UUID) (domain.Account, error) {
	a, ok := r.view(id)
	if !ok {
		return domain.Account{}, fmt.Errorf("memstore.AccountRepo.GetForUpdate: %w", domain.ErrNotFound)
	}
	return a, nil
}

// Save stages the settlement fields of acct. History is left as stored;
// PrependHistory owns it, matching the Postgres repo.
func (r *accountRepo) Save(_ context.Context, acct domain.Account, wasInJourney bool) error {
	if err := acct.CheckInvariant(); err != nil {
		return fmt.Errorf("memstore.AccountRepo.Save: %w", err)
	}
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		cur, ok := r.s.accounts[acct.ID]
		if !ok || cur.InJourney != wasInJourney {
			return fmt.Errorf("memstore.AccountRepo.Save: %w", repo.ErrStateConflict)
		}
		r.s.accounts[acct.ID] = applySettlement(cur, acct)
		r.s.versions[acct.ID]++
		return nil
	}

	cur, ok := r.view(acct.ID)
	if !ok || cur.InJourney != wasInJourney {
		return fmt.Errorf("memstore.AccountRepo.Save: %w", repo.ErrStateConflict)
	}
	r.tx.accounts[acct.ID] = applySettlement(cur, acct)
	return nil
}

func (r *accountRepo) PrependHistory(_ context.Context, accountID, journeyID uuid.UUID) error {
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		cur, ok := r.s.accounts[accountID]
		if !ok {
			return fmt.Errorf("memstore.AccountRepo.PrependHistory: %w", domain.ErrNotFound)
		}
		cur.History = prepend(cur.History, journeyID)
		r.s.accounts[accountID] = cur
		r.s.versions[accountID]++
		return nil
	}

	cur, ok := r.view(accountID)
	if !ok {
		return fmt.Errorf("memstore.AccountRepo.PrependHistory: %w", domain.ErrNotFound)
	}
	if slices.Contains(cur.History, journeyID) {
		return fmt.Errorf("memstore.AccountRepo.PrependHistory: %w", repo.ErrStateConflict)
	}
	cur.History = prepend(cur.History, journeyID)
	r.tx.accounts[accountID] = cur
	return nil
}

// view returns a private copy of the account as this repo sees it.
// The first committed read inside a transaction pins the account's version.
func (r *accountRepo) view(id uuid.UUID) (domain.Account, bool) {
	if r.tx != nil {
		if a, ok := r.tx.accounts[id]; ok {
			return a.Clone(), true
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return domain.Account{}, false
	}
	if r.tx != nil {
		if _, seen := r.tx.readVersion[id]; !seen {
			r.tx.readVersion[id] = r.s.versions[id]
		}
	}
	return a.Clone(), true
}

func applySettlement(cur, next domain.Account) domain.Account {
	out := cur.Clone()
	out.Balance = next.Balance
	out.InJourney = next.InJourney
	out.ActiveJourneyID = nil
	if next.ActiveJourneyID != nil {
		id := *next.ActiveJourneyID
		out.ActiveJourneyID = &id
	}
	return out
}

func prepend(history []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(history)+1)
	out = append(out, id)
	return append(out, history...)
}
