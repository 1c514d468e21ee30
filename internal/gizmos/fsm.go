// Mnemonic:	fsm
// Abstract:	ShipmentFSM — the single pure transition table for shipment
//		docstat (spec §4.3). Centralizing transitions here answers design
//		note §9 "FSM duplicated across handlers: centralize transitions in
//		one pure function/table per §4.3; handlers only decide which event
//		to dispatch." Grounded on gizmos/pledge.go's guard-function style
//		(Is_expired, Is_paused) generalized into one table-driven Next.
package gizmos

import (
	"time"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
)

// Event is one of the eleven events spec §4.3 defines.
type Event int

const (
	EvRequestBooking Event = iota
	EvAllocatorAssign
	EvVendorConfirm
	EvVendorReject
	EvTimeout02
	EvTimeoutBC
	EvHold
	EvUnhold
	EvDispatcherConfirmRound
	EvCancel
	EvManualAssign
)

// TransitionInput carries everything Next needs beyond the current Shipment
// state: the acting vendor/grade (when applicable), the wall-clock time to
// stamp, and the dispatcher id for audit fields. Car reservability is
// checked by the caller (DispatchActions, via CarBook) before VendorConfirm
// is dispatched here — Next only re-checks the docstat/grade/rejected-set
// guards that are pure functions of shipment state.
type TransitionInput struct {
	Event      Event
	Now        time.Time
	Vendor     *Vendor
	Dispatcher string
}

// Next applies event to a copy of s and returns the resulting Shipment, or a
// *dispatcherr.Error (KindStateConflict/KindInvalidInput) if the event's
// precondition fails. Next never mutates its argument.
func Next(s *Shipment, in TransitionInput) (*Shipment, error) {
	if s == nil {
		return nil, dispatcherr.InvalidInput("nil shipment")
	}
	next := s.Clone()

	switch in.Event {
	case EvRequestBooking:
		if err := guardRequestBooking(s); err != nil {
			return nil, err
		}
		next.DocStat = DocWaitingVendor
		a := GradeA
		next.CurrentGradeToAssign = &a
		next.AssignedAt = &in.Now
		next.VenCode = nil
		next.CarLicense = nil
		next.ConfirmedByGrade = nil
		next.RejectedByVenCodes = nil // re-entry into 01's lifecycle clears I7

	case EvAllocatorAssign:
		if s.DocStat != DocWaitingRound {
			return nil, dispatcherr.StateConflict("shipment %s not in WaitingRound", s.ShipID)
		}
		if in.Vendor == nil {
			return nil, dispatcherr.InvalidInput("AllocatorAssign requires a vendor")
		}
		next.DocStat = DocWaitingVendor
		vc := in.Vendor.VenCode
		next.VenCode = &vc
		g := in.Vendor.Grade
		next.CurrentGradeToAssign = &g
		next.AssignedAt = &in.Now

	case EvVendorConfirm:
		if in.Vendor == nil {
			return nil, dispatcherr.InvalidInput("VendorConfirm requires a vendor")
		}
		switch {
		case s.DocStat == DocWaitingVendor && s.CurrentGradeToAssign != nil && *s.CurrentGradeToAssign == in.Vendor.Grade:
			// offered to this grade, falls through
		case s.DocStat == DocBroadcast && !s.RejectedByVenCodes.Contains(in.Vendor.VenCode):
			// broadcast, first-come first-served
		default:
			return nil, dispatcherr.StateConflict("shipment %s not confirmable by vendor %s", s.ShipID, in.Vendor.VenCode)
		}
		next.DocStat = DocVendorConfirmed
		vc := in.Vendor.VenCode
		next.VenCode = &vc
		g := in.Vendor.Grade
		next.ConfirmedByGrade = &g
		next.CurrentGradeToAssign = nil
		next.AssignedAt = nil
		// CarLicense is set by the caller (DispatchActions) once CarBook.try_reserve
		// succeeds; Next is told which car via the caller re-stamping next.CarLicense
		// after this call returns, since car reservation is not a pure FSM concern.

	case EvVendorReject:
		if in.Vendor == nil {
			return nil, dispatcherr.InvalidInput("VendorReject requires a vendor")
		}
		if s.DocStat != DocWaitingVendor || s.CurrentGradeToAssign == nil || *s.CurrentGradeToAssign != in.Vendor.Grade {
			return nil, dispatcherr.StateConflict("shipment %s not rejectable by vendor %s", s.ShipID, in.Vendor.VenCode)
		}
		next.RejectedByVenCodes = s.RejectedByVenCodes.Add(in.Vendor.VenCode)
		next.DocStat = DocBroadcast
		next.CurrentGradeToAssign = nil
		next.AssignedAt = &in.Now

	case EvTimeout02:
		if s.DocStat != DocWaitingVendor {
			return nil, dispatcherr.StateConflict("shipment %s not in WaitingVendor", s.ShipID)
		}
		if in.Vendor != nil {
			next.RejectedByVenCodes = s.RejectedByVenCodes.Add(in.Vendor.VenCode)
		}
		next.DocStat = DocBroadcast
		next.CurrentGradeToAssign = nil
		next.AssignedAt = &in.Now

	case EvTimeoutBC:
		if s.DocStat != DocBroadcast {
			return nil, dispatcherr.StateConflict("shipment %s not in Broadcast", s.ShipID)
		}
		next.DocStat = DocHold
		next.AssignedAt = nil

	case EvHold:
		if s.IsOnHold {
			return nil, dispatcherr.StateConflict("shipment %s already on hold", s.ShipID)
		}
		if s.BookingRoundID != nil {
			return nil, dispatcherr.InvalidInput("shipment %s is already in a round", s.ShipID)
		}
		ds := s.DocStat
		next.DocStatBeforeHold = &ds
		next.DocStat = DocHold
		next.IsOnHold = true

	case EvUnhold:
		if !s.IsOnHold {
			return nil, dispatcherr.StateConflict("shipment %s is not on hold", s.ShipID)
		}
		if s.DocStatBeforeHold != nil {
			next.DocStat = *s.DocStatBeforeHold
		}
		next.DocStatBeforeHold = nil
		next.IsOnHold = false

	case EvDispatcherConfirmRound:
		if s.DocStat != DocVendorConfirmed {
			return nil, dispatcherr.StateConflict("shipment %s not VendorConfirmed", s.ShipID)
		}
		next.DocStat = DocDispatcherAssigned

	case EvCancel:
		if (s.DocStat != DocVendorConfirmed && s.DocStat != DocDispatcherAssigned) || !in.Now.Before(s.ApmDate) {
			return nil, dispatcherr.StateConflict("shipment %s not cancelable at %s", s.ShipID, in.Now)
		}
		next.DocStat = DocCanceled
		next.VenCode = nil
		next.CarLicense = nil
		next.ConfirmedByGrade = nil

	case EvManualAssign:
		if s.DocStat != DocRejectedAll && s.DocStat != DocWaitingRound {
			return nil, dispatcherr.StateConflict("shipment %s not manually assignable", s.ShipID)
		}
		if in.Vendor == nil {
			return nil, dispatcherr.InvalidInput("ManualAssign requires a vendor")
		}
		next.DocStat = DocWaitingVendor
		vc := in.Vendor.VenCode
		next.VenCode = &vc
		g := in.Vendor.Grade
		next.CurrentGradeToAssign = &g
		next.AssignedAt = &in.Now

	default:
		return nil, dispatcherr.InvalidInput("unknown event %d", in.Event)
	}

	return next, nil
}

func guardRequestBooking(s *Shipment) error {
	if s.IsOnHold {
		return dispatcherr.StateConflict("shipment %s is on hold", s.ShipID)
	}
	switch s.DocStat {
	case DocWaitingRound, DocCanceled, DocRejectedAll:
		return nil
	default:
		return dispatcherr.StateConflict("shipment %s not requestable from %s", s.ShipID, s.DocStat)
	}
}
