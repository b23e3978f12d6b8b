// Package domain contains the core data types and pure business rules of the
// SmartFare settlement engine. It has no storage or transport dependencies
// and is imported by every other internal package (repo, service, handler).
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// RouteStop is one priced stop on a route.
// Price is in minor currency units; the fare between two stops is the
// absolute difference of their prices.
type RouteStop struct {
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"`
}

// Route is an ordered sequence of priced stops. The order is the physical
// traversal order, which is not necessarily price order.
type Route struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Stops []RouteStop `json:"stops"`
}

// Stop returns the first stop named name, and whether one was found.
func (r Route) Stop(name string) (RouteStop, bool) {
	for _, s := range r.Stops {
		if s.Name == name {
			return s, true
		}
	}
	return RouteStop{}, false
}

// HasStop reports whether name is a stop on the route.
func (r Route) HasStop(name string) bool {
	_, ok := r.Stop(name)
	return ok
}

// Fare returns the cost of travelling between two stops of the route.
// The result does not depend on the direction of travel.
// Returns ErrStopNotOnRoute if either stop is missing.
func (r Route) Fare(from, to string) (int64, error) {
	start, ok := r.Stop(from)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrStopNotOnRoute, from)
	}
	end, ok := r.Stop(to)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrStopNotOnRoute, to)
	}
	fare := end.Price - start.Price
	if fare < 0 {
		fare = -fare
	}
	return fare, nil
}

// MaxFare returns the most expensive fare between any two stops of the route.
// Because a fare is an absolute price difference, that is max(price) - min(price).
// It is the balance a passenger must hold before a journey may start.
func (r Route) MaxFare() int64 {
	if len(r.Stops) == 0 {
		return 0
	}
	lo, hi := r.Stops[0].Price, r.Stops[0].Price
	for _, s := range r.Stops[1:] {
		lo = min(lo, s.Price)
		hi = max(hi, s.Price)
	}
	return hi - lo
}

// Validate checks that stop names are non-empty and unique within the route
// and that no price is negative.
func (r Route) Validate() error {
	seen := make(map[string]struct{}, len(r.Stops))
	for _, s := range r.Stops {
		if s.Name == "" {
			return fmt.Errorf("%w: route %q has a stop without a name", ErrValidation, r.Name)
		}
		if s.Price < 0 {
			return fmt.Errorf("%w: route %q prices stop %q below zero", ErrValidation, r.Name, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: route %q lists stop %q twice", ErrValidation, r.Name, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// Vehicle is a bus (or tram, or ferry) running a single route.
type Vehicle struct {
	ID           uuid.UUID `json:"id"`
	Registration string    `json:"registration"`
	Route        Route     `json:"route"`
}
