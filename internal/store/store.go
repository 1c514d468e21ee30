// Mnemonic:	store
// Abstract:	Transactional persistence contract (spec §4.1). Generalizes
//		tegu's managers/res_mgr.go Inventory (an in-process map guarded by
//		one goroutine: Add_res/Get_res/Del_res/load_chkpt) into a real
//		transactional relational store, because this spec requires
//		row-level SELECT ... FOR UPDATE and atomic conditional updates
//		(spec §1, §4.1, §5) that an in-process map cannot honestly provide
//		under concurrent dispatcher/vendor actions.
package store

import (
	"context"
	"time"

	"github.com/freightrelay/dispatchd/internal/gizmos"
)

// Store opens transactions. Every mutating operation in this system runs
// inside one (spec §4.1); read-only call sites may use View for a
// convenience non-transactional snapshot read.
type Store interface {
	// WithTx runs fn inside a single transaction, committing if fn returns
	// nil and rolling back otherwise. Multi-entity mutators must acquire
	// locks in the documented order: round -> shipments (by shipid
	// ascending) -> cars (by carlicense ascending) (spec §5).
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View runs fn with read-only access, outside any write transaction.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// Tx is the full set of reads and mutators available inside a transaction.
// GetXForUpdate variants hold a row lock until the transaction ends (commit
// or rollback); plain GetX variants do not.
type Tx interface {
	// Shipments
	GetShipment(ctx context.Context, shipID string) (*gizmos.Shipment, error)
	GetShipmentForUpdate(ctx context.Context, shipID string) (*gizmos.Shipment, error)
	SaveShipment(ctx context.Context, s *gizmos.Shipment) error
	ListUnassigned(ctx context.Context, apmDate time.Time, warehouse string) ([]*gizmos.Shipment, error)
	ListForVendor(ctx context.Context, grade gizmos.Grade, venCode string) ([]*gizmos.Shipment, error)
	ListHeld(ctx context.Context, warehouse string) ([]*gizmos.Shipment, error)
	ListByShipmentRound(ctx context.Context, roundID int64) ([]*gizmos.Shipment, error)
	ListExpiredWaitingVendor(ctx context.Context, cutoff time.Time) ([]*gizmos.Shipment, error)
	ListExpiredBroadcast(ctx context.Context, cutoff time.Time) ([]*gizmos.Shipment, error)
	ListReadyForRound(ctx context.Context, shipPoint string, createdOn time.Time) ([]*gizmos.Shipment, error)
	ListHeldAllWarehouses(ctx context.Context) ([]*gizmos.Shipment, error)
	ListShipmentDetails(ctx context.Context, shipID string) ([]*gizmos.ShipmentDetail, error)

	// Booking rounds
	GetRound(ctx context.Context, id int64) (*gizmos.BookingRound, error)
	GetRoundForUpdate(ctx context.Context, id int64) (*gizmos.BookingRound, error)
	ListRounds(ctx context.Context, date time.Time, warehouse string) ([]*gizmos.BookingRound, error)
	ListRoundsPendingConfirmation(ctx context.Context) ([]*gizmos.BookingRound, error)
	SaveRound(ctx context.Context, r *gizmos.BookingRound) error
	DeleteRoundsForDay(ctx context.Context, date time.Time, warehouse string) ([]int64, error)
	DetachShipmentsFromRounds(ctx context.Context, roundIDs []int64) error
	ListMasterRounds(ctx context.Context) ([]*gizmos.MasterBookingRound, error)

	// Cars
	GetCar(ctx context.Context, carLicense string) (*gizmos.Car, error)
	GetCarForUpdate(ctx context.Context, carLicense string) (*gizmos.Car, error)
	SaveCar(ctx context.Context, c *gizmos.Car) error
	ListActiveCarsByType(ctx context.Context, cartype string) ([]*gizmos.Car, error)
	ListCarsByVendor(ctx context.Context, venCode string) ([]*gizmos.Car, error)

	// Vendors
	GetVendor(ctx context.Context, venCode string) (*gizmos.Vendor, error)
	GetVendorForUpdate(ctx context.Context, venCode string) (*gizmos.Vendor, error)
	SaveVendor(ctx context.Context, v *gizmos.Vendor) error
	ListActiveVendors(ctx context.Context) ([]*gizmos.Vendor, error)
	FirstByGrade(ctx context.Context, grade gizmos.Grade) (*gizmos.Vendor, error)

	// Reference data
	GetRoute(ctx context.Context, code string) (*gizmos.Route, error)
	GetWarehouse(ctx context.Context, code string) (*gizmos.Warehouse, error)
	GetShipType(ctx context.Context, cartype string) (*gizmos.ShipType, error)

	// Users
	GetUser(ctx context.Context, username string) (*gizmos.User, error)
	GetUserByVenCode(ctx context.Context, venCode string) (*gizmos.User, error)
	ListUsersByRole(ctx context.Context, role gizmos.Role) ([]*gizmos.User, error)
	ListActiveVendorUsersByGrade(ctx context.Context, grade gizmos.Grade) ([]*gizmos.User, error)
}
