package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
)

// AccountService serves read-only account views.
type AccountService struct {
	accounts repo.AccountRepo
	journeys repo.JourneyRepo
}

// NewAccountService constructs an AccountService.
func NewAccountService(accounts repo.AccountRepo, journeys repo.JourneyRepo) *AccountService {
	return &AccountService{accounts: accounts, journeys: journeys}
}

// GetByID returns the account with its active journey and its journey
// history resolved. History keeps the account's most-recent-first order.
func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (domain.AccountDetails, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.AccountDetails{}, fmt.Errorf("service.AccountService.GetByID: %w", domain.ErrUnknownAccount)
	}
	if err != nil {
		return domain.AccountDetails{}, fmt.Errorf("service.AccountService.GetByID: %w", err)
	}

	ids := acct.History
	if acct.ActiveJourneyID != nil {
		ids = append([]uuid.UUID{*acct.ActiveJourneyID}, ids...)
	}
	js, err := s.journeys.ListByIDs(ctx, ids)
	if err != nil {
		return domain.AccountDetails{}, fmt.Errorf("service.AccountService.GetByID: %w", err)
	}

	out := domain.AccountDetails{Account: acct, Journeys: make([]domain.Journey, 0, len(acct.History))}
	for _, j := range js {
		if acct.ActiveJourneyID != nil && j.ID == *acct.ActiveJourneyID {
			active := j
			out.ActiveJourney = &active
			continue
		}
		out.Journeys = append(out.Journeys, j)
	}
	return out, nil
}
