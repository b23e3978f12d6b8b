package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// AccountKind tags the passenger variant behind an account.
// The journey core only reads the fields shared by every kind.
type AccountKind string

const (
	AccountLocal     AccountKind = "local"
	AccountForeigner AccountKind = "foreigner"
	AccountManager   AccountKind = "manager"
)

// Account is a passenger's smart-card ledger.
//
// InJourney is true exactly when ActiveJourneyID is set (see CheckInvariant).
// Balance is in minor currency units and may go negative after a journey ends.
// History holds closed journey ids, most recent first.
type Account struct {
	ID    uuid.UUID   `json:"id"`
	Kind  AccountKind `json:"kind"`
	Name  string      `json:"name"`
	Email string      `json:"email"`

	// Kind-specific identity. Only the field matching Kind is set.
	NIC        string `json:"nic,omitempty"`
	PassportID string `json:"passport_id,omitempty"`
	ManagerID  string `json:"manager_id,omitempty"`

	Balance         int64       `json:"balance"`
	InJourney       bool        `json:"in_journey"`
	ActiveJourneyID *uuid.UUID  `json:"active_journey_id,omitempty"`
	History         []uuid.UUID `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInvariant verifies that the in-journey flag and the active journey
// reference agree.
func (a Account) CheckInvariant() error {
	if a.InJourney != (a.ActiveJourneyID != nil) {
		return fmt.Errorf("account %s: in_journey=%t but active journey set=%t",
			a.ID, a.InJourney, a.ActiveJourneyID != nil)
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with a.
func (a Account) Clone() Account {
	out := a
	if a.ActiveJourneyID != nil {
		id := *a.ActiveJourneyID
		out.ActiveJourneyID = &id
	}
	out.History = slices.Clone(a.History)
	return out
}

// AccountDetails is an account with its journey references resolved.
type AccountDetails struct {
	Account
	ActiveJourney *Journey  `json:"active_journey,omitempty"`
	Journeys      []Journey `json:"journeys"`
}
