package managers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

// recordingNotifier captures every push for assertions instead of discarding
// them like NoopNotifier.
type recordingNotifier struct {
	mu    sync.Mutex
	pushes []string
}

func (r *recordingNotifier) Push(ctx context.Context, token, title, body string, data map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, token)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func newDispatchFixture(t *testing.T) (*store.MemStore, *DispatchActions, *recordingNotifier) {
	t.Helper()
	s := store.NewMemStore()
	s.SeedRoute(&gizmos.Route{RouteCode: "R1", LeadTimeDays: 2})
	s.SeedCar(&gizmos.Car{CarLicense: "CAR1", OwnerVenCode: "V1", CarType: "10T", Status: gizmos.CarActive})

	notifier := &recordingNotifier{}
	cb := NewCarBook()
	rs := NewRoundService(cb, notifier)
	da := NewDispatchActions(cb, rs, notifier)
	return s, da, notifier
}

func seedDispatcherUser(s *store.MemStore) {
	s.SeedUser(&gizmos.User{Username: "dispatcher1", Role: gizmos.RoleDispatcher, Active: true, PushToken: strPtr("tok-dispatcher")})
}

func strPtr(s string) *string { return &s }

func TestDispatchActions_VendorConfirm_DoubleCommitAssignmentIsHarmless(t *testing.T) {
	s, da, _ := newDispatchFixture(t)
	seedDispatcherUser(s)
	apm := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	ga := gizmos.GradeA
	s.SeedShipment(&gizmos.Shipment{
		ShipID: "SH1", ShipPoint: "WH1", Route: "R1", CarType: "10T", ApmDate: apm,
		DocStat: gizmos.DocWaitingVendor, CurrentGradeToAssign: &ga,
	})
	vendor := gizmos.Mk_vendor("V1", "Acme", gizmos.GradeA, true)

	sh, err := da.VendorConfirm(context.Background(), s, "SH1", vendor, "CAR1", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.DocVendorConfirmed, sh.DocStat)

	var rid int64 = 1
	s.SeedShipment(func() *gizmos.Shipment {
		got := sh
		got.BookingRoundID = &rid
		return got
	}())

	// DispatcherConfirmRound re-invokes CarBook.CommitAssignment for the same
	// (shipid, carlicense) pair VendorConfirm already committed once.
	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		round := &gizmos.BookingRound{ID: rid, RoundDate: time.Now(), RoundTime: "08:00", WarehouseCode: "WH1"}
		return tx.SaveRound(ctx, round)
	})
	require.NoError(t, err)

	round, err := da.DispatcherConfirmRound(context.Background(), s, rid, "dispatcher1", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.RoundConfirmed, round.Status)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		car, err := tx.GetCar(ctx, "CAR1")
		require.NoError(t, err)
		require.Equal(t, gizmos.CarInactive, car.Status)
		require.Equal(t, time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), *car.WillBeAvailableAt)
		return nil
	})
	require.NoError(t, err)
}

func TestDispatchActions_VendorConfirm_BusyCarRejected(t *testing.T) {
	s, da, _ := newDispatchFixture(t)
	apm := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	future := apm.AddDate(0, 0, 10)
	s.SeedCar(&gizmos.Car{CarLicense: "CAR1", OwnerVenCode: "V1", CarType: "10T", Status: gizmos.CarActive, WillBeAvailableAt: &future})
	ga := gizmos.GradeA
	s.SeedShipment(&gizmos.Shipment{
		ShipID: "SH1", ShipPoint: "WH1", Route: "R1", CarType: "10T", ApmDate: apm,
		DocStat: gizmos.DocWaitingVendor, CurrentGradeToAssign: &ga,
	})
	vendor := gizmos.Mk_vendor("V1", "Acme", gizmos.GradeA, true)

	_, err := da.VendorConfirm(context.Background(), s, "SH1", vendor, "CAR1", time.Now())
	require.Error(t, err)
	require.True(t, dispatcherr.Is(err, dispatcherr.KindConflict))

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocWaitingVendor, sh.DocStat) // untouched: the FSM event was never applied
		return nil
	})
	require.NoError(t, err)
}

func TestDispatchActions_VendorReject_NotifiesOtherVendorsOnly(t *testing.T) {
	s, da, notifier := newDispatchFixture(t)
	gb := gizmos.GradeB
	s.SeedShipment(&gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocWaitingVendor, CurrentGradeToAssign: &gb})
	s.SeedUser(&gizmos.User{Username: "v1", Role: gizmos.RoleVendor, Active: true, VenCode: strPtr("V1"), PushToken: strPtr("tok1")})
	s.SeedUser(&gizmos.User{Username: "v2", Role: gizmos.RoleVendor, Active: true, VenCode: strPtr("V2"), PushToken: strPtr("tok2")})

	vendor := gizmos.Mk_vendor("V1", "Acme", gizmos.GradeB, true)
	sh, err := da.VendorReject(context.Background(), s, "SH1", vendor, "no capacity", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.DocBroadcast, sh.DocStat)
	require.True(t, sh.RejectedByVenCodes.Contains("V1"))

	require.Equal(t, 1, notifier.count()) // only V2's user gets notified, not the rejecter
}

func TestDispatchActions_Cancel_NotifiesPriorVendor(t *testing.T) {
	s, da, notifier := newDispatchFixture(t)
	vc := "V1"
	future := time.Now().Add(72 * time.Hour)
	s.SeedShipment(&gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", ApmDate: future, DocStat: gizmos.DocVendorConfirmed, VenCode: &vc})
	s.SeedUser(&gizmos.User{Username: "v1", Role: gizmos.RoleVendor, Active: true, VenCode: strPtr("V1"), PushToken: strPtr("tok1")})

	sh, err := da.Cancel(context.Background(), s, "SH1", "dispatcher1", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.DocCanceled, sh.DocStat)
	require.Nil(t, sh.VenCode)
	require.Equal(t, 1, notifier.count())
}

func TestDispatchActions_ManualAssign_FromRejectedAll(t *testing.T) {
	s, da, notifier := newDispatchFixture(t)
	s.SeedShipment(&gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocRejectedAll})
	s.SeedUser(&gizmos.User{Username: "v1", Role: gizmos.RoleVendor, Active: true, VenCode: strPtr("V1"), PushToken: strPtr("tok1")})

	vendor := gizmos.Mk_vendor("V1", "Acme", gizmos.GradeD, true)
	sh, err := da.ManualAssign(context.Background(), s, "SH1", vendor, "dispatcher1", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.DocWaitingVendor, sh.DocStat)
	require.Equal(t, "V1", *sh.VenCode)
	require.Equal(t, 1, notifier.count())
}

func TestDispatchActions_RequestBooking_NotifiesGradeAVendors(t *testing.T) {
	s, da, notifier := newDispatchFixture(t)
	s.SeedShipment(&gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocCanceled})
	s.SeedVendor(&gizmos.Vendor{VenCode: "V1", Grade: gizmos.GradeA, Active: true})
	s.SeedUser(&gizmos.User{Username: "v1", Role: gizmos.RoleVendor, Active: true, VenCode: strPtr("V1"), PushToken: strPtr("tok1")})

	sh, err := da.RequestBooking(context.Background(), s, "SH1", "dispatcher1", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.DocWaitingVendor, sh.DocStat)
	require.Equal(t, 1, notifier.count())
}
