package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every settlement error wraps exactly one of these so the HTTP
// layer (and the fare gate behind it) can decide between "deny boarding" and
// "ask for a retap" with errors.Is, without knowing each individual error.
var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Handlers should map this to HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input does not fit the data it refers to
	// (a stop that is not on the vehicle's route, a journey whose start stop
	// disappeared from the route). Handlers should map this to HTTP 422.
	ErrValidation = errors.New("validation error")

	// ErrBusinessRule is returned for expected operational refusals such as an
	// insufficient balance. Handlers should map this to HTTP 409.
	ErrBusinessRule = errors.New("business rule violation")
)

// Settlement errors.
var (
	ErrUnknownAccount  = fmt.Errorf("%w: invalid smart card", ErrNotFound)
	ErrUnknownVehicle  = fmt.Errorf("%w: no vehicle found for the given id", ErrNotFound)
	ErrJourneyNotFound = fmt.Errorf("%w: journey not found", ErrNotFound)

	ErrStopNotOnRoute    = fmt.Errorf("%w: stop is not on the vehicle's route", ErrValidation)
	ErrInconsistentRoute = fmt.Errorf("%w: journey start stop is no longer on the vehicle's route", ErrValidation)

	ErrInsufficientBalance  = fmt.Errorf("%w: balance is insufficient for this route, please top up", ErrBusinessRule)
	ErrNoActiveJourney      = fmt.Errorf("%w: account has no active journey", ErrBusinessRule)
	ErrJourneyAlreadyActive = fmt.Errorf("%w: account already has an active journey", ErrBusinessRule)
	ErrDuplicateTap         = fmt.Errorf("%w: tap ignored, card was tapped moments ago", ErrBusinessRule)
)

// ErrTransactionFailed is returned when the atomic settlement unit could not
// commit (store failure, deadline expiry). Nothing was written, so the whole
// tap is safe to retry.
var ErrTransactionFailed = errors.New("transaction failed")

// IsRetryable reports whether the caller may resubmit the same tap.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
