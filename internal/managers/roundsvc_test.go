package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

func TestRoundService_CreateRound_SkipsHeldAndAlreadyRoundedShipments(t *testing.T) {
	s := store.NewMemStore()
	other := int64(99)
	s.SeedShipment(&gizmos.Shipment{ShipID: "FREE", ShipPoint: "WH1", DocStat: gizmos.DocWaitingRound})
	s.SeedShipment(&gizmos.Shipment{ShipID: "HELD", ShipPoint: "WH1", DocStat: gizmos.DocHold, IsOnHold: true})
	s.SeedShipment(&gizmos.Shipment{ShipID: "TAKEN", ShipPoint: "WH1", DocStat: gizmos.DocWaitingRound, BookingRoundID: &other})

	rs := NewRoundService(NewCarBook(), NoopNotifier{})
	round, err := rs.CreateRound(context.Background(), s, time.Now(), "08:00", "WH1",
		[]string{"FREE", "HELD", "TAKEN"}, nil, "dispatcher1", time.Now())
	require.NoError(t, err)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		free, err := tx.GetShipment(ctx, "FREE")
		require.NoError(t, err)
		require.NotNil(t, free.BookingRoundID)
		require.Equal(t, round.ID, *free.BookingRoundID)

		held, err := tx.GetShipment(ctx, "HELD")
		require.NoError(t, err)
		require.Nil(t, held.BookingRoundID)

		taken, err := tx.GetShipment(ctx, "TAKEN")
		require.NoError(t, err)
		require.Equal(t, other, *taken.BookingRoundID)
		return nil
	})
	require.NoError(t, err)
}

// TestCreateRound_UnholdsGlobally pins spec §4.4's documented secondary
// effect: creating a round in one warehouse un-holds every on-hold shipment
// in every warehouse, not just the one the round belongs to. Preserved
// verbatim from the source system; not a behavior this port introduced.
func TestCreateRound_UnholdsGlobally(t *testing.T) {
	s := store.NewMemStore()
	before := gizmos.DocWaitingVendor
	s.SeedShipment(&gizmos.Shipment{
		ShipID: "OTHERWH", ShipPoint: "WH2", DocStat: gizmos.DocHold,
		IsOnHold: true, DocStatBeforeHold: &before,
	})

	rs := NewRoundService(NewCarBook(), NoopNotifier{})
	_, err := rs.CreateRound(context.Background(), s, time.Now(), "08:00", "WH1", nil, nil, "dispatcher1", time.Now())
	require.NoError(t, err)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "OTHERWH")
		require.NoError(t, err)
		require.False(t, sh.IsOnHold)
		require.Equal(t, gizmos.DocWaitingVendor, sh.DocStat)
		return nil
	})
	require.NoError(t, err)
}

func TestRoundService_SyncDay_DetachesWithoutChangingDocstat(t *testing.T) {
	s := store.NewMemStore()
	rs := NewRoundService(NewCarBook(), NoopNotifier{})
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	rounds, err := rs.SyncDay(context.Background(), s, date, "WH1", []string{"08:00", "14:00"}, "dispatcher1", time.Now())
	require.NoError(t, err)
	require.Len(t, rounds, 2)

	rid := rounds[0].ID
	sh := &gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocWaitingRound, BookingRoundID: &rid}
	s.SeedShipment(sh)

	_, err = rs.SyncDay(context.Background(), s, date, "WH1", []string{"09:00"}, "dispatcher1", time.Now())
	require.NoError(t, err)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Nil(t, got.BookingRoundID)
		require.Equal(t, gizmos.DocWaitingRound, got.DocStat) // docstat untouched by detach
		return nil
	})
	require.NoError(t, err)
}

func TestRoundService_ConfirmRound_OnlyVendorConfirmedAdvance(t *testing.T) {
	s := store.NewMemStore()
	s.SeedRoute(&gizmos.Route{RouteCode: "R1", LeadTimeDays: 2})
	s.SeedCar(&gizmos.Car{CarLicense: "CAR1", OwnerVenCode: "V1", CarType: "10T", Status: gizmos.CarActive})

	var roundID int64
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		round := &gizmos.BookingRound{RoundDate: time.Now(), RoundTime: "08:00", WarehouseCode: "WH1"}
		require.NoError(t, tx.SaveRound(ctx, round))
		roundID = round.ID
		lic := "CAR1"
		vc := "V1"
		confirmed := &gizmos.Shipment{
			ShipID: "CONF", ShipPoint: "WH1", Route: "R1", CarType: "10T",
			ApmDate: time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
			BookingRoundID: &roundID, DocStat: gizmos.DocVendorConfirmed,
			VenCode: &vc, CarLicense: &lic,
		}
		waiting := &gizmos.Shipment{
			ShipID: "WAIT", ShipPoint: "WH1", BookingRoundID: &roundID, DocStat: gizmos.DocWaitingVendor,
		}
		if err := tx.SaveShipment(ctx, confirmed); err != nil {
			return err
		}
		return tx.SaveShipment(ctx, waiting)
	})
	require.NoError(t, err)

	rs := NewRoundService(NewCarBook(), NoopNotifier{})
	round, err := rs.ConfirmRound(context.Background(), s, roundID, "dispatcher1", time.Now())
	require.NoError(t, err)
	require.Equal(t, gizmos.RoundConfirmed, round.Status)

	err = s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		conf, err := tx.GetShipment(ctx, "CONF")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocDispatcherAssigned, conf.DocStat)
		require.True(t, conf.DocStat.Terminal())

		wait, err := tx.GetShipment(ctx, "WAIT")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocWaitingVendor, wait.DocStat) // untouched: not docstat 03

		car, err := tx.GetCar(ctx, "CAR1")
		require.NoError(t, err)
		require.Equal(t, gizmos.CarInactive, car.Status)
		return nil
	})
	require.NoError(t, err)
}
