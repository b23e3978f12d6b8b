package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/smartfare/internal/domain"
)

// Wire types. These mirror the schemas in spec/openapi.yaml.

type TapRequest struct {
	AccountID *openapi_types.UUID `json:"account_id"`
	VehicleID *openapi_types.UUID `json:"vehicle_id"`
	Stop      *StopRef            `json:"stop"`
}

type StopRef struct {
	Name string `json:"name"`
}

type TapResponse struct {
	Journey       Journey `json:"journey"`
	Status        string  `json:"status"`
	PassengerName string  `json:"passenger_name"`
}

type Journey struct {
	Id          openapi_types.UUID `json:"id"`
	VehicleId   openapi_types.UUID `json:"vehicle_id"`
	PassengerId openapi_types.UUID `json:"passenger_id"`
	StartPlace  string             `json:"start_place"`
	EndPlace    *string            `json:"end_place,omitempty"`
	Status      string             `json:"status"`
	Cost        *int64             `json:"cost,omitempty"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     *time.Time         `json:"end_time,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type JourneyList struct {
	Data       []Journey  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Account struct {
	Id            openapi_types.UUID `json:"id"`
	Kind          string             `json:"kind"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Nic           *string            `json:"nic,omitempty"`
	PassportId    *string            `json:"passport_id,omitempty"`
	ManagerId     *string            `json:"manager_id,omitempty"`
	Balance       int64              `json:"balance"`
	InJourney     bool               `json:"in_journey"`
	ActiveJourney *Journey           `json:"active_journey,omitempty"`
	History       []Journey          `json:"history"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// --- mapping helpers --------------------------------------------------------

func journeyToResponse(j domain.Journey) Journey {
	return Journey{
		Id:          j.ID,
		VehicleId:   j.VehicleID,
		PassengerId: j.PassengerID,
		StartPlace:  j.StartPlace,
		EndPlace:    j.EndPlace,
		Status:      string(j.Status),
		Cost:        j.Cost,
		StartTime:   j.StartTime,
		EndTime:     j.EndTime,
	}
}

func journeysToResponse(js []domain.Journey) []Journey {
	out := make([]Journey, len(js))
	for i, j := range js {
		out[i] = journeyToResponse(j)
	}
	return out
}

func accountToResponse(d domain.AccountDetails) Account {
	a := Account{
		Id:         d.ID,
		Kind:       string(d.Kind),
		Name:       d.Name,
		Email:      d.Email,
		Nic:        optional(d.NIC),
		PassportId: optional(d.PassportID),
		ManagerId:  optional(d.ManagerID),
		Balance:    d.Balance,
		InJourney:  d.InJourney,
		History:    journeysToResponse(d.Journeys),
	}
	if d.ActiveJourney != nil {
		j := journeyToResponse(*d.ActiveJourney)
		a.ActiveJourney = &j
	}
	return a
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// --- request plumbing -------------------------------------------------------

// pathUUID binds the {name} path parameter the way generated oapi-codegen
// servers do.
func pathUUID(r *http.Request, name string) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return id, err
}

// queryInt binds an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	var v *int
	err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v)
	return v, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client may be gone; nothing useful to do with the error.
	json.NewEncoder(w).Encode(v)
}
