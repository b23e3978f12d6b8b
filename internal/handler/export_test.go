package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/handler"
)

// ---- mock ExportServicer ---------------------------------------------------

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

// compile-time check: mockExportServicer must satisfy handler.ExportServicer.
var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newExportHTTPHandler wires a Server with only the export service mock.
func newExportHTTPHandler(exportSvc handler.ExportServicer) http.Handler {
	return handler.NewServer(nil, nil, exportSvc, discardLogger()).Routes()
}

// exportRowFixture returns a fully-populated domain.ExportRow for testing.
func exportRowFixture() domain.ExportRow {
	start := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 15, 8, 45, 0, 0, time.UTC)
	cost := int64(25)

	return domain.ExportRow{
		JourneyID:     uuid.New(),
		PassengerID:   uuid.New(),
		PassengerName: "Kamal Perera",
		VehicleID:     uuid.New(),
		StartPlace:    "Colombo Fort",
		EndPlace:      "Kadawatha",
		Status:        domain.JourneyClosed,
		Cost:          &cost,
		StartTime:     start,
		EndTime:       &end,
	}
}

func getExport(t *testing.T, svc handler.ExportServicer, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/export"+query, nil)
	rec := httptest.NewRecorder()
	newExportHTTPHandler(svc).ServeHTTP(rec, req)
	return rec
}

func rowsOf(rows ...domain.ExportRow) *mockExportServicer {
	return &mockExportServicer{
		export: func(_ context.Context) ([]domain.ExportRow, error) {
			return rows, nil
		},
	}
}

// ---- GET /export - JSON ----------------------------------------------------

func TestGetExport_DefaultJSON_EmptyResult(t *testing.T) {
	rec := getExport(t, rowsOf(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var rows []handler.ExportRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	assert.Empty(t, rows)
}

func TestGetExport_FormatJSON_ExplicitParam(t *testing.T) {
	row := exportRowFixture()

	rec := getExport(t, rowsOf(row), "?format=json")

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []handler.ExportRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, row.JourneyID, rows[0].JourneyId)
	assert.Equal(t, "Kamal Perera", *rows[0].PassengerName)
	assert.EqualValues(t, 25, *rows[0].Cost)
}

func TestGetExport_JSON_OpenJourney_EmptyEndFields(t *testing.T) {
	row := exportRowFixture()
	row.Status = domain.JourneyOpen
	row.EndPlace = ""
	row.Cost = nil
	row.EndTime = nil

	rec := getExport(t, rowsOf(row), "")

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []handler.ExportRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].EndPlace)
	assert.Nil(t, rows[0].Cost)
	assert.Nil(t, rows[0].EndTime)
}

// ---- GET /export - CSV -----------------------------------------------------

func TestGetExport_CSV_EmptyResult_HasHeaderRow(t *testing.T) {
	rec := getExport(t, rowsOf(), "?format=csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "journey_id,"), "CSV should start with header row, got: %q", body)
}

func TestGetExport_CSV_OneRow_HasHeaderAndDataRow(t *testing.T) {
	row := exportRowFixture()

	rec := getExport(t, rowsOf(row), "?format=csv")

	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	// Header + 1 data row.
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "passenger_name")
	assert.Contains(t, lines[1], row.JourneyID.String())
	assert.Contains(t, lines[1], ",closed,25,2024-06-15T08:00:00Z,2024-06-15T08:45:00Z")
}

func TestGetExport_UnknownFormat_Returns400(t *testing.T) {
	rec := getExport(t, rowsOf(), "?format=xml")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- error handling --------------------------------------------------------

func TestGetExport_ServiceError_Returns500(t *testing.T) {
	svc := &mockExportServicer{
		export: func(_ context.Context) ([]domain.ExportRow, error) {
			return nil, fmt.Errorf("database unavailable")
		},
	}

	rec := getExport(t, svc, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database unavailable")
}
