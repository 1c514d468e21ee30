// Mnemonic:	carbook
// Abstract:	CarBook — truck reservation bookkeeping (spec §4.2). Grounded
//		on gizmos/pledge.go's Is_paused/state-guard style generalized onto
//		the Car entity; the booking math itself comes from Route's lead
//		time (internal/gizmos/route.go).
package managers

import (
	"context"
	"time"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

// ReserveResult is the outcome of CarBook.TryReserve.
type ReserveResult int

const (
	ReserveOk ReserveResult = iota
	ReserveBusy
	ReserveNotFound
	ReserveWrongOwner
)

func (r ReserveResult) String() string {
	switch r {
	case ReserveOk:
		return "Ok"
	case ReserveBusy:
		return "Busy"
	case ReserveNotFound:
		return "NotFound"
	case ReserveWrongOwner:
		return "WrongOwner"
	default:
		return "Unknown"
	}
}

// CarBook reserves and commits truck assignments. Both methods take the car's
// row lock themselves (GetCarForUpdate) inside the caller's transaction, so
// callers invoke them after any round and shipment locks (spec §4.2, §5 lock
// order round -> shipments -> cars).
type CarBook struct{}

func NewCarBook() *CarBook { return &CarBook{} }

// TryReserve checks whether carLicense, owned by venCode, can take a
// shipment that must be delivered by requiredDate. It does not mutate the
// car; the caller commits the reservation via CommitAssignment once the rest
// of the transaction (the FSM transition) has also succeeded.
func (b *CarBook) TryReserve(ctx context.Context, tx store.Tx, carLicense, venCode string, requiredDate time.Time) (ReserveResult, *gizmos.Car, error) {
	car, err := tx.GetCarForUpdate(ctx, carLicense)
	if err != nil {
		if dispatcherr.Is(err, dispatcherr.KindNotFound) {
			return ReserveNotFound, nil, nil
		}
		return ReserveNotFound, nil, err
	}
	if car.OwnerVenCode != venCode {
		return ReserveWrongOwner, car, nil
	}
	if !car.UsableOn(requiredDate) {
		return ReserveBusy, car, nil
	}
	return ReserveOk, car, nil
}

// CommitAssignment marks car busy through the route's lead time, computed
// from the shipment's apmdate (spec §4.2). Idempotent per (shipid,
// carlicense): committing the same pair twice recomputes the identical
// will_be_available_at and is a harmless no-op.
func (b *CarBook) CommitAssignment(ctx context.Context, tx store.Tx, s *gizmos.Shipment) error {
	if s.CarLicense == nil {
		return dispatcherr.InvalidInput("shipment %s has no car to commit", s.ShipID)
	}
	car, err := tx.GetCarForUpdate(ctx, *s.CarLicense)
	if err != nil {
		return err
	}
	route, err := tx.GetRoute(ctx, s.Route)
	if err != nil {
		return err
	}
	available := route.AvailableDateFrom(s.ApmDate)
	car.Status = gizmos.CarInactive
	car.WillBeAvailableAt = &available
	return tx.SaveCar(ctx, car)
}

func carNotFoundErr(carLicense string) error {
	return dispatcherr.NotFound("car %s not found", carLicense)
}

func carWrongOwnerErr(carLicense, venCode string) error {
	return dispatcherr.Forbidden("car %s is not owned by vendor %s", carLicense, venCode)
}

func carBusyErr(carLicense string) error {
	return dispatcherr.Conflict("car %s is not available for the required date", carLicense)
}
