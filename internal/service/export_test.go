package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/service"
)

func closedJourneyFixture(passenger uuid.UUID, from, to string, cost int64) domain.Journey {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return domain.Journey{
		ID:          uuid.New(),
		VehicleID:   uuid.New(),
		PassengerID: passenger,
		StartPlace:  from,
		Status:      domain.JourneyOpen,
		StartTime:   start,
	}.Close(to, cost, start.Add(20*time.Minute))
}

func TestExportService_Export_ResolvesNamesOnce(t *testing.T) {
	alice := uuid.New()
	j1 := closedJourneyFixture(alice, "A", "C", 25)
	j2 := closedJourneyFixture(alice, "C", "B", 15)
	lookups := 0

	svc := service.NewExportService(
		&mockJourneyRepo{list: func(context.Context) ([]domain.Journey, error) {
			return []domain.Journey{j1, j2}, nil
		}},
		&mockAccountRepo{getByID: func(_ context.Context, id uuid.UUID) (domain.Account, error) {
			lookups++
			return domain.Account{ID: id, Name: "Alice"}, nil
		}},
	)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, lookups)
	assert.Equal(t, "Alice", rows[0].PassengerName)
	assert.Equal(t, "C", rows[0].EndPlace)
	assert.EqualValues(t, 25, *rows[0].Cost)
	assert.Equal(t, domain.JourneyClosed, rows[1].Status)
}

func TestExportService_Export_OpenJourneyAndMissingPassenger(t *testing.T) {
	open := domain.Journey{ID: uuid.New(), PassengerID: uuid.New(), StartPlace: "A", Status: domain.JourneyOpen}

	svc := service.NewExportService(
		&mockJourneyRepo{list: func(context.Context) ([]domain.Journey, error) {
			return []domain.Journey{open}, nil
		}},
		&mockAccountRepo{getByID: func(context.Context, uuid.UUID) (domain.Account, error) {
			return domain.Account{}, domain.ErrNotFound
		}},
	)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].PassengerName)
	assert.Empty(t, rows[0].EndPlace)
	assert.Nil(t, rows[0].Cost)
}

func TestExportService_Export_Empty(t *testing.T) {
	svc := service.NewExportService(
		&mockJourneyRepo{list: func(context.Context) ([]domain.Journey, error) { return nil, nil }},
		&mockAccountRepo{},
	)

	rows, err := svc.Export(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExportService_Export_RepoError(t *testing.T) {
	boom := errors.New("db down")
	svc := service.NewExportService(
		&mockJourneyRepo{list: func(context.Context) ([]domain.Journey, error) { return nil, boom }},
		&mockAccountRepo{},
	)

	_, err := svc.Export(context.Background())

	assert.ErrorIs(t, err, boom)
}
