package gizmos

import "time"

// RoundStatus narrows (never widens) spec.md's implicit round status,
// recovered from the original source's BookingRound.status plus its
// allocation_start_time/allocation_duration_mins bookkeeping columns
// (SPEC_FULL.md supplemented feature 5).
type RoundStatus string

const (
	RoundPending              RoundStatus = "pending"
	RoundAllocating           RoundStatus = "allocating"
	RoundAwaitingConfirmation RoundStatus = "awaiting_confirmation"
	RoundConfirmed            RoundStatus = "confirmed"
)

// BookingRound groups pending shipments into a timed allocation window
// (spec §3.1).
type BookingRound struct {
	ID             int64
	RoundDate      time.Time // date only
	RoundTime      string    // "HH:MM" time of day
	WarehouseCode  string
	Status         RoundStatus
	CreatedBy      string
	CreatedAt      time.Time
	TotalVolumeCBM float64

	// Shipments is eagerly attached by RoundService.GetRounds (spec §4.4);
	// it is not part of the persisted row.
	Shipments []*Shipment
}

// MasterBookingRound is the canonical-round-time catalog (spec §3.1
// "optional scaffolding"), used to seed RoundService.SyncDay's default
// round times (SPEC_FULL.md supplemented feature 2).
type MasterBookingRound struct {
	ID        int64
	RoundTime string
	RoundName string
	Active    bool
}
