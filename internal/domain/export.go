package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportRow is one journey flattened for the settlement export, with the
// passenger's name resolved.
type ExportRow struct {
	JourneyID     uuid.UUID
	PassengerID   uuid.UUID
	PassengerName string
	VehicleID     uuid.UUID
	StartPlace    string
	EndPlace      string
	Status        JourneyStatus
	Cost          *int64
	StartTime     time.Time
	EndTime       *time.Time
}
