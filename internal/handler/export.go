package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/smartfare/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"journey_id", "passenger_id", "passenger_name", "vehicle_id",
	"start_place", "end_place", "status", "cost", "start_time", "end_time",
}

// ExportRow is the JSON form of one exported journey.
type ExportRow struct {
	JourneyId     openapi_types.UUID `json:"journey_id"`
	PassengerId   openapi_types.UUID `json:"passenger_id"`
	PassengerName *string            `json:"passenger_name,omitempty"`
	VehicleId     openapi_types.UUID `json:"vehicle_id"`
	StartPlace    string             `json:"start_place"`
	EndPlace      *string            `json:"end_place,omitempty"`
	Status        string             `json:"status"`
	Cost          *int64             `json:"cost,omitempty"`
	StartTime     time.Time          `json:"start_time"`
	EndTime       *time.Time         `json:"end_time,omitempty"`
}

// GetExport handles GET /export.
// It returns every journey as a flat table for reconciliation.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeRequestError(w, "format must be a string")
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		writeRequestError(w, "format must be csv or json")
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONRows(rows))
}

// buildJSONRows converts domain rows to the JSON response.
// Empty strings become nil pointers (omitempty in JSON).
func buildJSONRows(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, ExportRow{
			JourneyId:     r.JourneyID,
			PassengerId:   r.PassengerID,
			PassengerName: optional(r.PassengerName),
			VehicleId:     r.VehicleID,
			StartPlace:    r.StartPlace,
			EndPlace:      optional(r.EndPlace),
			Status:        string(r.Status),
			Cost:          r.Cost,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
		})
	}
	return out
}

// writeCSV encodes domain rows as CSV.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	buf.WriteTo(w)
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Nil pointers are encoded as empty strings.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	cost := ""
	if r.Cost != nil {
		cost = strconv.FormatInt(*r.Cost, 10)
	}
	return []string{
		r.JourneyID.String(),
		r.PassengerID.String(),
		r.PassengerName,
		r.VehicleID.String(),
		r.StartPlace,
		r.EndPlace,
		string(r.Status),
		cost,
		r.StartTime.UTC().Format(time.RFC3339),
		formatOptionalTime(r.EndTime),
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
