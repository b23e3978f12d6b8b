// Package handler implements the HTTP handlers for the SmartFare API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, tap.go, journey.go, ...) but share the same Server struct so
// they can access its dependencies. Routes wires them onto a chi router.
package handler

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/smartfare/internal/domain"
)

// JourneyServicer defines the settlement operations the tap and journey
// handlers depend on. Defining the interface here (in the consumer package)
// lets handler tests inject a mock without touching the store.
type JourneyServicer interface {
	Tap(ctx context.Context, tap domain.Tap) (domain.TapOutcome, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error)
}

// AccountServicer defines the account read the account handler depends on.
type AccountServicer interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.AccountDetails, error)
}

// ExportServicer defines the export operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Server serves every API endpoint.
type Server struct {
	journeys JourneyServicer
	accounts AccountServicer
	export   ExportServicer
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(journeys JourneyServicer, accounts AccountServicer, export ExportServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{journeys: journeys, accounts: accounts, export: export, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes returns a chi router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Post("/taps", s.PostTap)

	r.Get("/journeys", s.ListJourneys)
	r.Get("/journeys/{id}", s.GetJourney)

	r.Get("/accounts/{id}", s.GetAccount)

	r.Get("/export", s.GetExport)
	return r
}
