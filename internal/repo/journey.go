package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/smartfare/internal/domain"
)

// JourneyRepo defines the persistence operations for Journeys.
type JourneyRepo interface {
	// Create inserts a new open journey and returns the persisted record.
	// Returns ErrStateConflict if the passenger already has an open journey.
	Create(ctx context.Context, j domain.Journey) (domain.Journey, error)

	// GetByID retrieves a single journey by its UUID primary key.
	// Returns domain.ErrNotFound if no journey with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error)

	// Close writes the end stop, cost and end time of an open journey and
	// marks it closed. Returns ErrStateConflict if the journey is not open.
	Close(ctx context.Context, j domain.Journey) (domain.Journey, error)

	// List returns all journeys ordered by start_time descending.
	List(ctx context.Context) ([]domain.Journey, error)

	// ListPaged returns one page of journeys ordered by start_time descending,
	// and the total number of journeys.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error)

	// ListByIDs returns the journeys with the given ids in the order of ids.
	// Unknown ids are skipped.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Journey, error)
}

// pgJourneyRepo is the Postgres implementation of JourneyRepo.
type pgJourneyRepo struct {
	db db
}

// NewJourneyRepo constructs a JourneyRepo backed by the provided db connection.
// In production pass *pgxpool.Pool or a pgx.Tx; in tests pass a pgx.Tx for rollback isolation.
func NewJourneyRepo(db db) JourneyRepo {
	return &pgJourneyRepo{db: db}
}

const journeyColumns = `id, vehicle_id, passenger_id, start_place, end_place,
		status, cost, start_time, end_time`

// Create inserts a journey row. The partial unique index
// journeys_one_open_per_passenger turns a second open journey into ErrStateConflict.
func (r *pgJourneyRepo) Create(ctx context.Context, j domain.Journey) (domain.Journey, error) {
	const q = `
		INSERT INTO journeys (id, vehicle_id, passenger_id, start_place, status, start_time)
		VALUES (@id, @vehicle_id, @passenger_id, @start_place, @status, @start_time)
		RETURNING ` + journeyColumns

	args := pgx.NamedArgs{
		"id":           j.ID,
		"vehicle_id":   j.VehicleID,
		"passenger_id": j.PassengerID,
		"start_place":  j.StartPlace,
		"status":       string(domain.JourneyOpen),
		"start_time":   j.StartTime,
	}

	result, err := scanJourney(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.Create: %w", ErrStateConflict)
		}
		return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a journey by primary key.
func (r *pgJourneyRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error) {
	q := `SELECT ` + journeyColumns + ` FROM journeys WHERE id = @id`

	result, err := scanJourney(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.GetByID: %w", err)
	}
	return result, nil
}

// Close updates an open journey. The status guard in the WHERE clause keeps
// closed journeys immutable.
func (r *pgJourneyRepo) Close(ctx context.Context, j domain.Journey) (domain.Journey, error) {
	const q = `
		UPDATE journeys
		SET end_place = @end_place,
		    status    = @closed,
		    cost      = @cost,
		    end_time  = @end_time
		WHERE id = @id
		  AND status = @open
		RETURNING ` + journeyColumns

	args := pgx.NamedArgs{
		"id":        j.ID,
		"end_place": j.EndPlace,
		"cost":      j.Cost,
		"end_time":  j.EndTime,
		"open":      string(domain.JourneyOpen),
		"closed":    string(domain.JourneyClosed),
	}

	result, err := scanJourney(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.Close: %w", ErrStateConflict)
		}
		return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.Close: %w", err)
	}
	return result, nil
}

// List returns every journey, newest first.
func (r *pgJourneyRepo) List(ctx context.Context) ([]domain.Journey, error) {
	q := `SELECT ` + journeyColumns + ` FROM journeys ORDER BY start_time DESC, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.List: %w", err)
	}
	journeys, err := collectJourneys(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.List: %w", err)
	}
	return journeys, nil
}

// ListPaged returns one page of journeys plus the total count.
func (r *pgJourneyRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM journeys`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.JourneyRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + journeyColumns + `
		FROM journeys
		ORDER BY start_time DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.JourneyRepo.ListPaged: %w", err)
	}
	journeys, err := collectJourneys(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.JourneyRepo.ListPaged: %w", err)
	}
	return journeys, total, nil
}

// ListByIDs fetches a set of journeys and returns them in the caller's order.
func (r *pgJourneyRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Journey, error) {
	if len(ids) == 0 {
		return []domain.Journey{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	q := `SELECT ` + journeyColumns + ` FROM journeys WHERE id = ANY(@ids::uuid[])`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": keys})
	if err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.ListByIDs: %w", err)
	}
	found, err := collectJourneys(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.JourneyRepo.ListByIDs: %w", err)
	}

	byID := make(map[uuid.UUID]domain.Journey, len(found))
	for _, j := range found {
		byID[j.ID] = j
	}
	out := make([]domain.Journey, 0, len(found))
	for _, id := range ids {
		if j, ok := byID[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func collectJourneys(rows pgx.Rows) ([]domain.Journey, error) {
	defer rows.Close()

	journeys := []domain.Journey{}
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return journeys, nil
}

// scanJourney maps a single database row into a domain.Journey.
// It handles the UUID conversions and the columns that stay NULL while the
// journey is open.
func scanJourney(s scanner) (domain.Journey, error) {
	var (
		j         domain.Journey
		id        pgtype.UUID
		vehicleID pgtype.UUID
		passenger pgtype.UUID
		endPlace  pgtype.Text
		status    string
		cost      pgtype.Int8
		endTime   pgtype.Timestamptz
	)

	err := s.Scan(&id, &vehicleID, &passenger, &j.StartPlace, &endPlace,
		&status, &cost, &j.StartTime, &endTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Journey{}, domain.ErrNotFound
		}
		return domain.Journey{}, err
	}

	j.ID = uuid.UUID(id.Bytes)
	j.VehicleID = uuid.UUID(vehicleID.Bytes)
	j.PassengerID = uuid.UUID(passenger.Bytes)
	j.Status = domain.JourneyStatus(status)
	if endPlace.Valid {
		ep := endPlace.String
		j.EndPlace = &ep
	}
	if cost.Valid {
		c := cost.Int64
		j.Cost = &c
	}
	if endTime.Valid {
		et := endTime.Time
		j.EndTime = &et
	}
	return j, nil
}
