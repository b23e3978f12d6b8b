package handler

import (
	"net/http"

	"github.com/pkordes/smartfare/internal/domain"
)

// ListJourneys handles GET /journeys.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListJourneys(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeRequestError(w, "page must be an integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeRequestError(w, "limit must be an integer")
		return
	}

	params := domain.NewPaginationParams(page, limit)
	journeys, total, err := s.journeys.ListPaged(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, JourneyList{
		Data: journeysToResponse(journeys),
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// GetJourney handles GET /journeys/{id}.
func (s *Server) GetJourney(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeRequestError(w, "id must be a UUID")
		return
	}

	j, err := s.journeys.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, journeyToResponse(j))
}
