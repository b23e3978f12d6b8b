package domain

import (
	"time"

	"github.com/google/uuid"
)

// JourneyStatus is the lifecycle state of a journey.
type JourneyStatus string

const (
	JourneyOpen   JourneyStatus = "open"
	JourneyClosed JourneyStatus = "closed"
)

// Journey records one ride from the boarding tap to the alighting tap.
// EndPlace, Cost and EndTime are nil while the journey is open.
// A closed journey is never modified again.
type Journey struct {
	ID          uuid.UUID     `json:"id"`
	VehicleID   uuid.UUID     `json:"vehicle_id"`
	PassengerID uuid.UUID     `json:"passenger_id"`
	StartPlace  string        `json:"start_place"`
	EndPlace    *string       `json:"end_place,omitempty"`
	Status      JourneyStatus `json:"status"`
	Cost        *int64        `json:"cost,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
}

// Close returns a copy of j ended at stop with the given cost.
func (j Journey) Close(stop string, cost int64, at time.Time) Journey {
	j.EndPlace = &stop
	j.Cost = &cost
	j.EndTime = &at
	j.Status = JourneyClosed
	return j
}

// TapStatus tells the gate which transition a tap triggered.
type TapStatus string

const (
	TapStart TapStatus = "start"
	TapEnd   TapStatus = "end"
)

// Tap is a single card presentation at a reader on a vehicle.
type Tap struct {
	AccountID uuid.UUID
	VehicleID uuid.UUID
	Stop      string
}

// TapOutcome is the result of a dispatched tap.
type TapOutcome struct {
	Journey       Journey
	Status        TapStatus
	PassengerName string
}

// JourneyEvent is emitted after a transition commits.
type JourneyEvent struct {
	Type          TapStatus `json:"type"`
	Journey       Journey   `json:"journey"`
	BalanceAfter  int64     `json:"balance_after"`
	PassengerName string    `json:"passenger_name"`
}
