// Mnemonic:	dispatch
// Abstract:	DispatchActions — the dispatcher/vendor-facing operations that
//		each wrap a single ShipmentFSM event (spec §4.6). Grounded on
//		managers/http_api.go's per-verb case dispatch (parse_post's
//		case "reserve":, case "cancelres":), generalized to one method per
//		FSM event instead of one case arm per wire verb.
package managers

import (
	"context"
	"time"

	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

// DispatchActions is the façade internal/httpapi calls into; every method
// opens exactly one transaction and returns a typed dispatcherr.Error on
// failure (spec §4.6, §7).
type DispatchActions struct {
	carbook *CarBook
	rounds  *RoundService
	notify  Notifier
}

func NewDispatchActions(cb *CarBook, rs *RoundService, n Notifier) *DispatchActions {
	return &DispatchActions{carbook: cb, rounds: rs, notify: n}
}

func (d *DispatchActions) Hold(ctx context.Context, st store.Store, shipID, dispatcher string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvHold, Now: now, Dispatcher: dispatcher})
		if err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (d *DispatchActions) Unhold(ctx context.Context, st store.Store, shipID, dispatcher string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvUnhold, Now: now, Dispatcher: dispatcher})
		if err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// RequestBooking re-enters a shipment into the dispatch lifecycle and offers
// it to every active grade-A vendor.
func (d *DispatchActions) RequestBooking(ctx context.Context, st store.Store, shipID, dispatcher string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	var gradeAUsers []*gizmos.User
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvRequestBooking, Now: now, Dispatcher: dispatcher})
		if err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		gradeAUsers, err = tx.ListActiveVendorUsersByGrade(ctx, gizmos.GradeA)
		if err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.notifyUsers(ctx, gradeAUsers, "New shipment available",
		"Shipment "+result.ShipID+" is waiting for a grade A vendor", map[string]string{"shipid": result.ShipID})
	return result, nil
}

// VendorConfirm locks the shipment, reserves the car, applies the FSM event
// and commits the car assignment in the same transaction (spec §4.6 — this
// repeats the commit that DispatcherConfirmRound performs later, which is
// exactly why CarBook.CommitAssignment must be idempotent).
func (d *DispatchActions) VendorConfirm(ctx context.Context, st store.Store, shipID string, vendor *gizmos.Vendor, carLicense string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	var dispatcherUsers []*gizmos.User
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		res, _, err := d.carbook.TryReserve(ctx, tx, carLicense, vendor.VenCode, sh.ApmDate)
		if err != nil {
			return err
		}
		switch res {
		case ReserveNotFound:
			return carNotFoundErr(carLicense)
		case ReserveWrongOwner:
			return carWrongOwnerErr(carLicense, vendor.VenCode)
		case ReserveBusy:
			return carBusyErr(carLicense)
		}

		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvVendorConfirm, Now: now, Vendor: vendor})
		if err != nil {
			return err
		}
		lic := carLicense
		next.CarLicense = &lic
		if err := d.carbook.CommitAssignment(ctx, tx, next); err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		dispatcherUsers, err = tx.ListUsersByRole(ctx, gizmos.RoleDispatcher)
		if err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.notifyUsers(ctx, dispatcherUsers, "Vendor confirmed",
		"Shipment "+result.ShipID+" confirmed by "+vendor.VenCode, map[string]string{"shipid": result.ShipID})
	return result, nil
}

// VendorReject broadcasts a rejected shipment to every other active vendor.
func (d *DispatchActions) VendorReject(ctx context.Context, st store.Store, shipID string, vendor *gizmos.Vendor, reason string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	var otherVendorUsers []*gizmos.User
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvVendorReject, Now: now, Vendor: vendor})
		if err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		vendorUsers, err := tx.ListUsersByRole(ctx, gizmos.RoleVendor)
		if err != nil {
			return err
		}
		for _, u := range vendorUsers {
			if u.VenCode != nil && *u.VenCode != vendor.VenCode {
				otherVendorUsers = append(otherVendorUsers, u)
			}
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.notifyUsers(ctx, otherVendorUsers, "Shipment rejected, now open",
		"Shipment "+result.ShipID+" is available: "+reason, map[string]string{"shipid": result.ShipID})
	return result, nil
}

// Cancel voids a confirmed or dispatcher-assigned shipment ahead of its
// appointment date and notifies whichever vendor held it.
func (d *DispatchActions) Cancel(ctx context.Context, st store.Store, shipID, dispatcher string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	var priorVendorUser *gizmos.User
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		if sh.VenCode != nil {
			if u, err := tx.GetUserByVenCode(ctx, *sh.VenCode); err == nil {
				priorVendorUser = u
			}
		}
		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvCancel, Now: now, Dispatcher: dispatcher})
		if err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if priorVendorUser != nil {
		d.notifyUsers(ctx, []*gizmos.User{priorVendorUser}, "Shipment canceled",
			"Shipment "+result.ShipID+" was canceled by the dispatcher", map[string]string{"shipid": result.ShipID})
	}
	return result, nil
}

// ManualAssign lets a dispatcher hand a RejectedAll/WaitingRound shipment
// directly to a specific vendor.
func (d *DispatchActions) ManualAssign(ctx context.Context, st store.Store, shipID string, vendor *gizmos.Vendor, dispatcher string, now time.Time) (*gizmos.Shipment, error) {
	var result *gizmos.Shipment
	var targetUser *gizmos.User
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, shipID)
		if err != nil {
			return err
		}
		next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvManualAssign, Now: now, Vendor: vendor, Dispatcher: dispatcher})
		if err != nil {
			return err
		}
		if err := tx.SaveShipment(ctx, next); err != nil {
			return err
		}
		if u, err := tx.GetUserByVenCode(ctx, vendor.VenCode); err == nil {
			targetUser = u
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if targetUser != nil {
		d.notifyUsers(ctx, []*gizmos.User{targetUser}, "Shipment assigned to you",
			"Shipment "+result.ShipID+" was manually assigned to you", map[string]string{"shipid": result.ShipID})
	}
	return result, nil
}

// DispatcherConfirmRound delegates to RoundService; per-shipment vendor
// notifications are fired by RoundService.ConfirmRound itself.
func (d *DispatchActions) DispatcherConfirmRound(ctx context.Context, st store.Store, roundID int64, dispatcher string, now time.Time) (*gizmos.BookingRound, error) {
	return d.rounds.ConfirmRound(ctx, st, roundID, dispatcher, now)
}

func (d *DispatchActions) notifyUsers(ctx context.Context, users []*gizmos.User, title, body string, data map[string]string) {
	if d.notify == nil {
		return
	}
	for _, u := range users {
		if u.PushToken != nil {
			d.notify.Push(ctx, *u.PushToken, title, body, data)
		}
	}
}
