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

// VehicleRepo is the read-only lookup of vehicles and the routes they run.
type VehicleRepo interface {
	// GetWithRoute retrieves a vehicle with its route stops in traversal order.
	// Returns domain.ErrNotFound if no vehicle with that ID exists.
	GetWithRoute(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
}

// pgVehicleRepo is the Postgres implementation of VehicleRepo.
type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

// GetWithRoute loads the vehicle row joined to its route, then the route's stops.
func (r *pgVehicleRepo) GetWithRoute(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `
		SELECT v.id, v.registration, rt.id, rt.name
		FROM vehicles v
		JOIN routes rt ON rt.id = v.route_id
		WHERE v.id = @id`

	var (
		v       domain.Vehicle
		vid     pgtype.UUID
		routeID pgtype.UUID
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&vid, &v.Registration, &routeID, &v.Route.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetWithRoute: %w", domain.ErrNotFound)
		}
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetWithRoute: %w", err)
	}
	v.ID = uuid.UUID(vid.Bytes)
	v.Route.ID = uuid.UUID(routeID.Bytes)

	const sq = `
		SELECT name, price
		FROM route_stops
		WHERE route_id = @route_id
		ORDER BY position`

	rows, err := r.db.Query(ctx, sq, pgx.NamedArgs{"route_id": v.Route.ID})
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetWithRoute: stops: %w", err)
	}
	defer rows.Close()

	v.Route.Stops = []domain.RouteStop{}
	for rows.Next() {
		var s domain.RouteStop
		if err := rows.Scan(&s.Name, &s.Price); err != nil {
			return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetWithRoute: scan: %w", err)
		}
		v.Route.Stops = append(v.Route.Stops, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetWithRoute: rows: %w", err)
	}

	return v, nil
}
