package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo"
)

// ExportService assembles a flat export of every journey for reconciliation.
type ExportService struct {
	journeys repo.JourneyRepo
	accounts repo.AccountRepo
}

// NewExportService constructs an ExportService backed by the provided repos.
func NewExportService(journeys repo.JourneyRepo, accounts repo.AccountRepo) *ExportService {
	return &ExportService{journeys: journeys, accounts: accounts}
}

// Export returns one ExportRow per journey, newest first.
// A journey whose passenger no longer resolves is exported with an empty name.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	journeys, err := s.journeys.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	names := make(map[uuid.UUID]string)
	rows := make([]domain.ExportRow, 0, len(journeys))
	for _, j := range journeys {
		name, seen := names[j.PassengerID]
		if !seen {
			acct, err := s.accounts.GetByID(ctx, j.PassengerID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
			case err != nil:
				return nil, fmt.Errorf("service.ExportService.Export: %w", err)
			default:
				name = acct.Name
			}
			names[j.PassengerID] = name
		}

		row := domain.ExportRow{
			JourneyID:     j.ID,
			PassengerID:   j.PassengerID,
			PassengerName: name,
			VehicleID:     j.VehicleID,
			StartPlace:    j.StartPlace,
			Status:        j.Status,
			Cost:          j.Cost,
			StartTime:     j.StartTime,
			EndTime:       j.EndTime,
		}
		if j.EndPlace != nil {
			row.EndPlace = *j.EndPlace
		}
		rows = append(rows, row)
	}
	return rows, nil
}
