package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
	"github.com/pkordes/smartfare/internal/service"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones a test needs.

type mockAccountRepo struct {
	getByID        func(ctx context.Context, id uuid.UUID) (domain.Account, error)
	getForUpdate   func(ctx context.Context, id uuid.UUID) (domain.Account, error)
	save           func(ctx context.Context, acct domain.Account, wasInJourney bool) error
	prependHistory func(ctx context.Context, accountID, journeyID uuid.UUID) error
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return m.getByID(ctx, id)
}
func (m *mockAccountRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return m.getForUpdate(ctx, id)
}
func (m *mockAccountRepo) Save(ctx context.Context, acct domain.Account, wasInJourney bool) error {
	return m.save(ctx, acct, wasInJourney)
}
func (m *mockAccountRepo) PrependHistory(ctx context.Context, accountID, journeyID uuid.UUID) error {
	return m.prependHistory(ctx, accountID, journeyID)
}

type mockJourneyRepo struct {
	create    func(ctx context.Context, j domain.Journey) (domain.Journey, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.Journey, error)
	close     func(ctx context.Context, j domain.Journey) (domain.Journey, error)
	list      func(ctx context.Context) ([]domain.Journey, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error)
	listByIDs func(ctx context.Context, ids []uuid.UUID) ([]domain.Journey, error)
}

func (m *mockJourneyRepo) Create(ctx context.Context, j domain.Journey) (domain.Journey, error) {
	return m.create(ctx, j)
}
func (m *mockJourneyRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error) {
	return m.getByID(ctx, id)
}
func (m *mockJourneyRepo) Close(ctx context.Context, j domain.Journey) (domain.Journey, error) {
	return m.close(ctx, j)
}
func (m *mockJourneyRepo) List(ctx context.Context) ([]domain.Journey, error) {
	return m.list(ctx)
}
func (m *mockJourneyRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockJourneyRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Journey, error) {
	return m.listByIDs(ctx, ids)
}

type mockTransactor struct {
	withinTx func(ctx context.Context, fn func(ctx context.Context, s repo.Stores) error) error
}

func (m *mockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s repo.Stores) error) error {
	return m.withinTx(ctx, fn)
}

type mockTapGuard struct {
	acquire func(ctx context.Context, accountID uuid.UUID) (bool, error)
	release func(ctx context.Context, accountID uuid.UUID) error
}

func (m *mockTapGuard) Acquire(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return m.acquire(ctx, accountID)
}
func (m *mockTapGuard) Release(ctx context.Context, accountID uuid.UUID) error {
	return m.release(ctx, accountID)
}

// windowGuard holds one key per account until it is released, like a
// debounce window that never expires during a test.
type windowGuard struct {
	mu       sync.Mutex
	held     map[uuid.UUID]bool
	released int
}

func newWindowGuard() *windowGuard {
	return &windowGuard{held: make(map[uuid.UUID]bool)}
}

func (g *windowGuard) Acquire(_ context.Context, id uuid.UUID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[id] {
		return false, nil
	}
	g.held[id] = true
	return true, nil
}

func (g *windowGuard) Release(_ context.Context, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, id)
	g.released++
	return nil
}

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.JourneyEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.JourneyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []domain.JourneyEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.JourneyEvent(nil), p.events...)
}

// compile-time checks.
var (
	_ repo.AccountRepo       = (*mockAccountRepo)(nil)
	_ repo.JourneyRepo       = (*mockJourneyRepo)(nil)
	_ repo.Transactor        = (*mockTransactor)(nil)
	_ service.TapGuard       = (*mockTapGuard)(nil)
	_ service.TapGuard       = (*windowGuard)(nil)
	_ service.EventPublisher = (*recordingPublisher)(nil)
)
