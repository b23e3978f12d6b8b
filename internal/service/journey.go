// Package service contains the settlement logic of SmartFare.
// Services validate taps against the route and account state, then apply
// each transition through a repo.Transactor. No SQL lives here: services
// depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
)

// EventPublisher receives a JourneyEvent after each committed transition.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.JourneyEvent) error
}

// TapGuard suppresses repeated taps of the same card. Acquire returns false
// when the account already tapped within the guard's window. Release gives
// the window back so the same tap can be retried at once.
type TapGuard interface {
	Acquire(ctx context.Context, accountID uuid.UUID) (bool, error)
	Release(ctx context.Context, accountID uuid.UUID) error
}

// JourneyDeps are the collaborators of a JourneyService.
// Events, Guard, Now and Logger are optional.
type JourneyDeps struct {
	Vehicles repo.VehicleRepo
	Accounts repo.AccountRepo
	Journeys repo.JourneyRepo
	Tx       repo.Transactor

	Events EventPublisher
	Guard  TapGuard

	// TxTimeout bounds each atomic unit. Zero means no deadline beyond ctx.
	TxTimeout time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// JourneyService runs the journey lifecycle: it decides whether a tap starts
// or ends a journey and settles the fare.
type JourneyService struct {
	vehicles repo.VehicleRepo
	accounts repo.AccountRepo
	journeys repo.JourneyRepo
	tx       repo.Transactor

	events EventPublisher
	guard  TapGuard

	txTimeout time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewJourneyService constructs a JourneyService.
func NewJourneyService(d JourneyDeps) *JourneyService {
	s := &JourneyService{
		vehicles:  d.Vehicles,
		accounts:  d.Accounts,
		journeys:  d.Journeys,
		tx:        d.Tx,
		events:    d.Events,
		guard:     d.Guard,
		txTimeout: d.TxTimeout,
		now:       d.Now,
		log:       d.Logger,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Tap dispatches a card tap: an account that is not in a journey starts one,
// an account that is in a journey ends it.
//
// A tap that fails without a domain refusal (a rolled-back settlement, a
// store error) releases the guard, so the gate can resend it immediately.
func (s *JourneyService) Tap(ctx context.Context, tap domain.Tap) (domain.TapOutcome, error) {
	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, tap.AccountID)
		switch {
		case err != nil:
			// The guard fails open.
			s.log.WarnContext(ctx, "tap guard unavailable", "account_id", tap.AccountID, "error", err)
		case !ok:
			return domain.TapOutcome{}, fmt.Errorf("service.JourneyService.Tap: %w", domain.ErrDuplicateTap)
		default:
			out, err := s.tap(ctx, tap)
			if err != nil && !isRefusal(err) {
				s.release(ctx, tap.AccountID)
			}
			return out, err
		}
	}
	return s.tap(ctx, tap)
}

func (s *JourneyService) tap(ctx context.Context, tap domain.Tap) (domain.TapOutcome, error) {
	acct, err := s.account(ctx, tap.AccountID)
	if err != nil {
		return domain.TapOutcome{}, fmt.Errorf("service.JourneyService.Tap: %w", err)
	}

	if !acct.InJourney {
		j, err := s.begin(ctx, acct, tap.VehicleID, tap.Stop)
		if err != nil {
			return domain.TapOutcome{}, fmt.Errorf("service.JourneyService.Tap: %w", err)
		}
		return domain.TapOutcome{Journey: j, Status: domain.TapStart, PassengerName: acct.Name}, nil
	}

	j, err := s.end(ctx, acct, tap.VehicleID, tap.Stop)
	if err != nil {
		return domain.TapOutcome{}, fmt.Errorf("service.JourneyService.Tap: %w", err)
	}
	return domain.TapOutcome{Journey: j, Status: domain.TapEnd, PassengerName: acct.Name}, nil
}

// Begin starts a journey for accountID at stop on vehicleID.
//
// Checks run in this order and stop at the first failure: the account exists,
// the vehicle exists, the balance covers the route's maximum fare, the stop
// is on the route.
func (s *JourneyService) Begin(ctx context.Context, accountID, vehicleID uuid.UUID, stop string) (domain.Journey, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Begin: %w", err)
	}
	j, err := s.begin(ctx, acct, vehicleID, stop)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.Begin: %w", err)
	}
	return j, nil
}

// End closes the account's active journey at stop on vehicleID and charges
// the fare from the journey's start stop.
func (s *JourneyService) End(ctx context.Context, accountID, vehicleID uuid.UUID, stop string) (domain.Journey, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.End: %w", err)
	}
	j, err := s.end(ctx, acct, vehicleID, stop)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.End: %w", err)
	}
	return j, nil
}

// GetByID returns a single journey.
func (s *JourneyService) GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error) {
	j, err := s.journeys.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.GetByID: %w", domain.ErrJourneyNotFound)
	}
	if err != nil {
		return domain.Journey{}, fmt.Errorf("service.JourneyService.GetByID: %w", err)
	}
	return j, nil
}

// ListPaged returns one page of journeys, newest first, and the total count.
func (s *JourneyService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error) {
	js, total, err := s.journeys.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.JourneyService.ListPaged: %w", err)
	}
	return js, total, nil
}

func (s *JourneyService) begin(ctx context.Context, acct domain.Account, vehicleID uuid.UUID, stop string) (domain.Journey, error) {
	v, err := s.vehicle(ctx, vehicleID)
	if err != nil {
		return domain.Journey{}, err
	}
	maxFare := v.Route.MaxFare()
	if acct.Balance < maxFare {
		return domain.Journey{}, fmt.Errorf("%w (balance %d, required %d)", domain.ErrInsufficientBalance, acct.Balance, maxFare)
	}
	if !v.Route.HasStop(stop) {
		return domain.Journey{}, fmt.Errorf("%w: %q", domain.ErrStopNotOnRoute, stop)
	}

	j := domain.Journey{
		ID:          uuid.New(),
		VehicleID:   v.ID,
		PassengerID: acct.ID,
		StartPlace:  stop,
		Status:      domain.JourneyOpen,
		StartTime:   s.now(),
	}

	var after domain.Account
	err = s.settle(ctx, domain.ErrJourneyAlreadyActive, func(ctx context.Context, st repo.Stores) error {
		cur, err := st.Accounts.GetForUpdate(ctx, acct.ID)
		if err != nil {
			return lookupErr(err, domain.ErrUnknownAccount)
		}
		// Another tap may have settled between the read above and this lock.
		if cur.InJourney {
			return domain.ErrJourneyAlreadyActive
		}
		if cur.Balance < maxFare {
			return domain.ErrInsufficientBalance
		}

		created, err := st.Journeys.Create(ctx, j)
		if err != nil {
			return err
		}
		cur.InJourney = true
		cur.ActiveJourneyID = &created.ID
		if err := st.Accounts.Save(ctx, cur, false); err != nil {
			return err
		}
		j, after = created, cur
		return nil
	})
	if err != nil {
		return domain.Journey{}, err
	}

	s.log.InfoContext(ctx, "journey started",
		"journey_id", j.ID, "account_id", acct.ID, "vehicle_id", v.ID, "stop", stop)
	s.publish(ctx, domain.JourneyEvent{Type: domain.TapStart, Journey: j, BalanceAfter: after.Balance, PassengerName: acct.Name})
	return j, nil
}

func (s *JourneyService) end(ctx context.Context, acct domain.Account, vehicleID uuid.UUID, stop string) (domain.Journey, error) {
	if !acct.InJourney || acct.ActiveJourneyID == nil {
		return domain.Journey{}, domain.ErrNoActiveJourney
	}
	open, err := s.journeys.GetByID(ctx, *acct.ActiveJourneyID)
	if err != nil {
		return domain.Journey{}, lookupErr(err, domain.ErrNoActiveJourney)
	}
	if open.Status != domain.JourneyOpen {
		return domain.Journey{}, domain.ErrNoActiveJourney
	}

	v, err := s.vehicle(ctx, vehicleID)
	if err != nil {
		return domain.Journey{}, err
	}
	if !v.Route.HasStop(stop) {
		return domain.Journey{}, fmt.Errorf("%w: %q", domain.ErrStopNotOnRoute, stop)
	}
	if !v.Route.HasStop(open.StartPlace) {
		return domain.Journey{}, fmt.Errorf("%w: %q", domain.ErrInconsistentRoute, open.StartPlace)
	}
	cost, err := v.Route.Fare(open.StartPlace, stop)
	if err != nil {
		return domain.Journey{}, err
	}
	closing := open.Close(stop, cost, s.now())

	var (
		closed domain.Journey
		after  domain.Account
	)
	err = s.settle(ctx, domain.ErrNoActiveJourney, func(ctx context.Context, st repo.Stores) error {
		cur, err := st.Accounts.GetForUpdate(ctx, acct.ID)
		if err != nil {
			return lookupErr(err, domain.ErrUnknownAccount)
		}
		if !cur.InJourney || cur.ActiveJourneyID == nil || *cur.ActiveJourneyID != open.ID {
			return domain.ErrNoActiveJourney
		}

		c, err := st.Journeys.Close(ctx, closing)
		if err != nil {
			return err
		}
		cur.Balance -= cost
		cur.InJourney = false
		cur.ActiveJourneyID = nil
		if err := st.Accounts.Save(ctx, cur, true); err != nil {
			return err
		}
		if err := st.Accounts.PrependHistory(ctx, cur.ID, c.ID); err != nil {
			return err
		}
		closed, after = c, cur
		return nil
	})
	if err != nil {
		return domain.Journey{}, err
	}

	s.log.InfoContext(ctx, "journey ended",
		"journey_id", closed.ID, "account_id", acct.ID, "vehicle_id", v.ID,
		"stop", stop, "cost", cost, "balance", after.Balance)
	s.publish(ctx, domain.JourneyEvent{Type: domain.TapEnd, Journey: closed, BalanceAfter: after.Balance, PassengerName: acct.Name})
	return closed, nil
}

// settle runs fn as one atomic unit under the configured deadline.
//
// Errors from fn that already carry a domain kind pass through unchanged.
// A state conflict detected by the store means a concurrent tap won the
// race and becomes onConflict. Anything else (store failure, commit failure,
// deadline) becomes ErrTransactionFailed; the unit was rolled back, so the
// tap can be retried.
func (s *JourneyService) settle(ctx context.Context, onConflict error, fn func(ctx context.Context, st repo.Stores) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	err := s.tx.WithinTx(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrStateConflict):
		s.log.WarnContext(ctx, "settlement lost a race", "error", err)
		return onConflict
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrBusinessRule):
		return err
	default:
		s.log.WarnContext(ctx, "settlement rolled back", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrTransactionFailed, err)
	}
}

func (s *JourneyService) account(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, lookupErr(err, domain.ErrUnknownAccount)
	}
	return acct, nil
}

func (s *JourneyService) vehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	v, err := s.vehicles.GetWithRoute(ctx, id)
	if err != nil {
		return domain.Vehicle{}, lookupErr(err, domain.ErrUnknownVehicle)
	}
	return v, nil
}

// publish hands ev to the event sink. The transition has already committed,
// so a failure here is logged and otherwise ignored.
func (s *JourneyService) publish(ctx context.Context, ev domain.JourneyEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.ErrorContext(ctx, "publish journey event", "journey_id", ev.Journey.ID, "type", ev.Type, "error", err)
	}
}

// release hands the guard window back after a failed tap.
func (s *JourneyService) release(ctx context.Context, accountID uuid.UUID) {
	// The tap already failed; a cancelled request must not keep the key.
	ctx = context.WithoutCancel(ctx)
	if err := s.guard.Release(ctx, accountID); err != nil {
		s.log.WarnContext(ctx, "tap guard release failed", "account_id", accountID, "error", err)
	}
}

// isRefusal reports whether err is a deliberate refusal of the tap, which a
// resend within the guard window would only repeat.
func isRefusal(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrBusinessRule)
}

// lookupErr replaces a store not-found error with the specific domain error.
func lookupErr(err, notFound error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return notFound
	}
	return err
}
