package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/smartfare/internal/domain"
)

// errorCodes maps specific domain errors to stable machine-readable codes.
// Order matters: the first match wins.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrUnknownAccount, "unknown_account"},
	{domain.ErrUnknownVehicle, "unknown_vehicle"},
	{domain.ErrJourneyNotFound, "journey_not_found"},
	{domain.ErrStopNotOnRoute, "stop_not_on_route"},
	{domain.ErrInconsistentRoute, "inconsistent_route"},
	{domain.ErrInsufficientBalance, "insufficient_balance"},
	{domain.ErrNoActiveJourney, "no_active_journey"},
	{domain.ErrJourneyAlreadyActive, "journey_already_active"},
	{domain.ErrDuplicateTap, "duplicate_tap"},
}

// writeError classifies err by kind and writes the matching status and body.
// Unclassified errors are logged and reported as a bare 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: "internal_error", Message: "internal server error"}})
		return
	}

	code := codeFor(err, status)
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   unwrapMessage(err, kind),
		Retryable: domain.IsRetryable(err),
	}})
}

func classify(err error) (int, error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, domain.ErrValidation
	case errors.Is(err, domain.ErrBusinessRule):
		return http.StatusConflict, domain.ErrBusinessRule
	case errors.Is(err, domain.ErrTransactionFailed):
		return http.StatusServiceUnavailable, nil
	default:
		return http.StatusInternalServerError, nil
	}
}

func codeFor(err error, status int) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	case http.StatusConflict:
		return "business_rule"
	default:
		return "transaction_failed"
	}
}

// unwrapMessage extracts the human-readable part of a wrapped domain error.
// e.g. "service.JourneyService.Tap: not found: invalid smart card" -> "invalid smart card"
func unwrapMessage(err error, kind error) string {
	msg := err.Error()
	if kind == nil {
		if errors.Is(err, domain.ErrTransactionFailed) {
			return "the tap could not be recorded, please tap again"
		}
		return msg
	}
	prefix := kind.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

// writeRequestError rejects a request before it reaches the service layer.
func writeRequestError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: "bad_request", Message: message}})
}
