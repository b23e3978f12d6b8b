package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
)

// journeyRepo reads through tx's staged writes to the committed state.
// With a nil tx every write commits immediately.
type journeyRepo struct {
	s  *Store
	tx *txn
}

var _ repo.JourneyRepo = (*journeyRepo)(nil)

func (r *journeyRepo) Create(_ context.Context, j domain.Journey) (domain.Journey, error) {
	j.Status = domain.JourneyOpen

	if r.tx == nil {
		tx := newTxn()
		tx.journeys[j.ID] = j
		tx.created = append(tx.created, j.ID)
		if err := r.s.commit(tx); err != nil {
			return domain.Journey{}, fmt.Errorf("memstore.JourneyRepo.Create: %w", err)
		}
		return j, nil
	}

	if _, exists := r.view(j.ID); exists {
		return domain.Journey{}, fmt.Errorf("memstore.JourneyRepo.Create: %w", repo.ErrStateConflict)
	}
	for _, other := range r.all() {
		if other.PassengerID == j.PassengerID && other.Status == domain.JourneyOpen {
			return domain.Journey{}, fmt.Errorf("memstore.JourneyRepo.Create: %w", repo.ErrStateConflict)
		}
	}
	r.tx.journeys[j.ID] = j
	r.tx.created = append(r.tx.created, j.ID)
	return j, nil
}

func (r *journeyRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Journey, error) {
	j, ok := r.view(id)
	if !ok {
		return domain.Journey{}, fmt.Errorf("memstore.JourneyRepo.GetByID: %w", domain.ErrNotFound)
	}
	return j, nil
}

// Close stages the closed journey. A journey that is missing or already
// closed is a state conflict; the commit re-checks that it is still open.
func (r *journeyRepo) Close(_ context.Context, j domain.Journey) (domain.Journey, error) {
	cur, ok := r.view(j.ID)
	if !ok || cur.Status != domain.JourneyOpen {
		return domain.Journey{}, fmt.Errorf("memstore.JourneyRepo.Close: %w", repo.ErrStateConflict)
	}
	closed := cur.Close(deref(j.EndPlace), deref(j.Cost), deref(j.EndTime))

	if r.tx == nil {
		tx := newTxn()
		tx.journeys[j.ID] = closed
		tx.expectOpen[j.ID] = struct{}{}
		if err := r.s.commit(tx); err != nil {
			return domain.Journey{}, fmt.Errorf("memstore.JourneyRepo.Close: %w", err)
		}
		return closed, nil
	}

	if _, staged := r.tx.journeys[j.ID]; !staged {
		r.tx.expectOpen[j.ID] = struct{}{}
	}
	r.tx.journeys[j.ID] = closed
	return closed, nil
}

func (r *journeyRepo) List(_ context.Context) ([]domain.Journey, error) {
	all := r.all()
	sortJourneys(all)
	return all, nil
}

func (r *journeyRepo) ListPaged(_ context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error) {
	all := r.all()
	sortJourneys(all)

	total := int64(len(all))
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], total, nil
}

func (r *journeyRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Journey, error) {
	out := make([]domain.Journey, 0, len(ids))
	for _, id := range ids {
		if j, ok := r.view(id); ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *journeyRepo) view(id uuid.UUID) (domain.Journey, bool) {
	if r.tx != nil {
		if j, ok := r.tx.journeys[id]; ok {
			return j, true
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.journeys[id]
	return j, ok
}

// all returns the committed journeys overlaid with tx's staged writes.
func (r *journeyRepo) all() []domain.Journey {
	r.s.mu.RLock()
	merged := make(map[uuid.UUID]domain.Journey, len(r.s.journeys))
	for id, j := range r.s.journeys {
		merged[id] = j
	}
	r.s.mu.RUnlock()

	if r.tx != nil {
		for id, j := range r.tx.journeys {
			merged[id] = j
		}
	}

	out := make([]domain.Journey, 0, len(merged))
	for _, j := range merged {
		out = append(out, j)
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
