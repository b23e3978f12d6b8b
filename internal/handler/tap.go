package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/smartfare/internal/domain"
)

// PostTap handles POST /taps.
// The response status is 201 for both transitions; the body's status field
// says whether the tap started or ended a journey.
func (s *Server) PostTap(w http.ResponseWriter, r *http.Request) {
	tap, err := decodeTap(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		writeRequestError(w, err.Error())
		return
	}

	out, err := s.journeys.Tap(r.Context(), tap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, TapResponse{
		Journey:       journeyToResponse(out.Journey),
		Status:        string(out.Status),
		PassengerName: out.PassengerName,
	})
}

// decodeTap converts a TapRequest body into a domain.Tap.
// Returns an error if the body is malformed or a required field is missing.
func decodeTap(r *http.Request) (domain.Tap, error) {
	var body TapRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Tap{}, err
		}
		return domain.Tap{}, errors.New("request body must be a JSON tap object")
	}

	var missing []string
	if body.AccountID == nil {
		missing = append(missing, "account_id")
	}
	if body.VehicleID == nil {
		missing = append(missing, "vehicle_id")
	}
	if body.Stop == nil || strings.TrimSpace(body.Stop.Name) == "" {
		missing = append(missing, "stop.name")
	}
	if len(missing) > 0 {
		return domain.Tap{}, errors.New("missing required fields: " + strings.Join(missing, ", "))
	}

	return domain.Tap{AccountID: *body.AccountID, VehicleID: *body.VehicleID, Stop: body.Stop.Name}, nil
}
