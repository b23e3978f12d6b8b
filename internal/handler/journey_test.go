package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/handler"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// ---- GET /journeys ---------------------------------------------------------

func TestListJourneys_200_DefaultPagination(t *testing.T) {
	fixture := journeyFixture()
	var gotParams domain.PaginationParams
	svc := &mockJourneyServicer{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error) {
			gotParams = p
			return []domain.Journey{fixture}, 1, nil
		},
	}

	rec := get(newHTTPHandler(svc), "/journeys")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: 20}, gotParams)

	var resp handler.JourneyList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, fixture.ID, resp.Data[0].Id)
	assert.Equal(t, handler.Pagination{Page: 1, Limit: 20, Total: 1}, resp.Pagination)
}

func TestListJourneys_200_LimitCapped(t *testing.T) {
	var gotParams domain.PaginationParams
	svc := &mockJourneyServicer{
		listPaged: func(_ context.Context, p domain.PaginationParams) ([]domain.Journey, int64, error) {
			gotParams = p
			return nil, 0, nil
		},
	}

	rec := get(newHTTPHandler(svc), "/journeys?page=3&limit=500")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 3, Limit: 100}, gotParams)

	var resp handler.JourneyList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestListJourneys_400_BadQuery(t *testing.T) {
	for _, q := range []string{"?page=first", "?limit=many"} {
		t.Run(q, func(t *testing.T) {
			rec := get(newHTTPHandler(&mockJourneyServicer{}), "/journeys"+q)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec).Code)
		})
	}
}

func TestListJourneys_500_ServiceError(t *testing.T) {
	svc := &mockJourneyServicer{
		listPaged: func(context.Context, domain.PaginationParams) ([]domain.Journey, int64, error) {
			return nil, 0, fmt.Errorf("connection reset")
		},
	}

	rec := get(newHTTPHandler(svc), "/journeys")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ---- GET /journeys/{id} ----------------------------------------------------

func TestGetJourney_200(t *testing.T) {
	fixture := journeyFixture()
	svc := &mockJourneyServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Journey, error) {
			require.Equal(t, fixture.ID, id)
			return fixture, nil
		},
	}

	rec := get(newHTTPHandler(svc), "/journeys/"+fixture.ID.String())

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.Journey
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.Id)
	assert.Equal(t, "A", resp.StartPlace)
	assert.Equal(t, "open", resp.Status)
}

func TestGetJourney_404(t *testing.T) {
	svc := &mockJourneyServicer{
		getByID: func(context.Context, uuid.UUID) (domain.Journey, error) {
			return domain.Journey{}, fmt.Errorf("service.JourneyService.GetByID: %w", domain.ErrJourneyNotFound)
		},
	}

	rec := get(newHTTPHandler(svc), "/journeys/"+uuid.NewString())

	require.Equal(t, http.StatusNotFound, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "journey_not_found", detail.Code)
	assert.Equal(t, "journey not found", detail.Message)
}

func TestGetJourney_400_BadID(t *testing.T) {
	rec := get(newHTTPHandler(&mockJourneyServicer{}), "/journeys/not-a-uuid")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id must be a UUID", decodeError(t, rec).Message)
}
