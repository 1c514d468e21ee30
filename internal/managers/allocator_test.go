package managers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

// seedAllocatorFixture builds a round with n pending shipments and one active
// vendor+car per grade, so every shipment is eligible for every grade's
// vendor (cartype "10T" throughout).
func seedAllocatorFixture(t *testing.T, n int) (*store.MemStore, int64) {
	t.Helper()
	s := store.NewMemStore()
	s.SeedRoute(&gizmos.Route{RouteCode: "R1", LeadTimeDays: 2})

	for _, g := range gizmos.Grades {
		code := "V" + string(g)
		s.SeedVendor(&gizmos.Vendor{VenCode: code, Grade: g, Active: true})
		s.SeedCar(&gizmos.Car{CarLicense: "CAR" + string(g), OwnerVenCode: code, CarType: "10T", Status: gizmos.CarActive})
	}

	var roundID int64
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		round := &gizmos.BookingRound{RoundDate: time.Now(), RoundTime: "08:00", WarehouseCode: "WH1", Status: gizmos.RoundPending}
		if err := tx.SaveRound(ctx, round); err != nil {
			return err
		}
		roundID = round.ID
		for i := 0; i < n; i++ {
			sh := &gizmos.Shipment{
				ShipID:         fmt.Sprintf("SH%03d", i),
				ShipPoint:      "WH1",
				Route:          "R1",
				CarType:        "10T",
				ApmDate:        time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
				BookingRoundID: &roundID,
				DocStat:        gizmos.DocWaitingRound,
			}
			if err := tx.SaveShipment(ctx, sh); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return s, roundID
}

func TestAllocator_RespectsQuotas(t *testing.T) {
	s, roundID := seedAllocatorFixture(t, 10)
	alloc := NewAllocator(NoopNotifier{})

	var summary *AllocationSummary
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		summary, err = alloc.AllocateRound(ctx, tx, roundID, time.Now())
		return err
	})
	require.NoError(t, err)

	// n=10: qA=4, qB=3, qC=2, qD=1 (remainder) per spec §4.5.
	require.Equal(t, 4, summary.PerGrade[gizmos.GradeA])
	require.Equal(t, 3, summary.PerGrade[gizmos.GradeB])
	require.Equal(t, 2, summary.PerGrade[gizmos.GradeC])
	require.Equal(t, 1, summary.PerGrade[gizmos.GradeD])
	require.Equal(t, 10, summary.Assigned)
	require.Equal(t, 0, summary.Held)
}

func TestAllocator_HoldsShipmentsWithNoEligibleVendor(t *testing.T) {
	s := store.NewMemStore()
	s.SeedRoute(&gizmos.Route{RouteCode: "R1", LeadTimeDays: 1})
	// no vendor owns a car of type "20T"

	var roundID int64
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		round := &gizmos.BookingRound{RoundDate: time.Now(), RoundTime: "08:00", WarehouseCode: "WH1"}
		require.NoError(t, tx.SaveRound(ctx, round))
		roundID = round.ID
		sh := &gizmos.Shipment{
			ShipID: "SH1", ShipPoint: "WH1", Route: "R1", CarType: "20T",
			ApmDate: time.Now(), BookingRoundID: &roundID, DocStat: gizmos.DocWaitingRound,
		}
		return tx.SaveShipment(ctx, sh)
	})
	require.NoError(t, err)

	alloc := NewAllocator(NoopNotifier{})
	var summary *AllocationSummary
	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		summary, err = alloc.AllocateRound(ctx, tx, roundID, time.Now())
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Held)
	require.Equal(t, 0, summary.Assigned)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocHold, sh.DocStat)
		// this is the Allocator's own quota/eligibility fallback, not the
		// dispatcher Hold/Unhold event: is_on_hold stays false.
		require.False(t, sh.IsOnHold)
		return nil
	})
	require.NoError(t, err)
}

func TestAllocator_RanksByLastAssignedThenVenCode(t *testing.T) {
	s := store.NewMemStore()
	s.SeedRoute(&gizmos.Route{RouteCode: "R1", LeadTimeDays: 1})

	recently := time.Now().Add(-time.Hour)
	s.SeedVendor(&gizmos.Vendor{VenCode: "VB", Grade: gizmos.GradeA, Active: true, LastAssignedAt: &recently})
	s.SeedVendor(&gizmos.Vendor{VenCode: "VA", Grade: gizmos.GradeA, Active: true}) // never assigned: ranks first
	s.SeedCar(&gizmos.Car{CarLicense: "C1", OwnerVenCode: "VA", CarType: "10T", Status: gizmos.CarActive})
	s.SeedCar(&gizmos.Car{CarLicense: "C2", OwnerVenCode: "VB", CarType: "10T", Status: gizmos.CarActive})

	var roundID int64
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		round := &gizmos.BookingRound{RoundDate: time.Now(), RoundTime: "08:00", WarehouseCode: "WH1"}
		require.NoError(t, tx.SaveRound(ctx, round))
		roundID = round.ID
		sh := &gizmos.Shipment{
			ShipID: "SH1", ShipPoint: "WH1", Route: "R1", CarType: "10T",
			ApmDate: time.Now(), BookingRoundID: &roundID, DocStat: gizmos.DocWaitingRound,
		}
		return tx.SaveShipment(ctx, sh)
	})
	require.NoError(t, err)

	alloc := NewAllocator(NoopNotifier{})
	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := alloc.AllocateRound(ctx, tx, roundID, time.Now())
		return err
	})
	require.NoError(t, err)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, "VA", *sh.VenCode)
		return nil
	})
	require.NoError(t, err)
}
