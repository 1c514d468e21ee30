package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

func newTestStoreForCarBook(t *testing.T) *store.MemStore {
	t.Helper()
	s := store.NewMemStore()
	s.SeedRoute(&gizmos.Route{RouteCode: "R1", LeadTimeDays: 3})
	s.SeedCar(&gizmos.Car{CarLicense: "CAR1", OwnerVenCode: "V1", CarType: "10T", Status: gizmos.CarActive})
	return s
}

func TestCarBook_TryReserve_Ok(t *testing.T) {
	s := newTestStoreForCarBook(t)
	cb := NewCarBook()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		res, car, err := cb.TryReserve(ctx, tx, "CAR1", "V1", time.Now())
		require.NoError(t, err)
		require.Equal(t, ReserveOk, res)
		require.Equal(t, "CAR1", car.CarLicense)
		return nil
	})
	require.NoError(t, err)
}

func TestCarBook_TryReserve_WrongOwner(t *testing.T) {
	s := newTestStoreForCarBook(t)
	cb := NewCarBook()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		res, _, err := cb.TryReserve(ctx, tx, "CAR1", "V2", time.Now())
		require.NoError(t, err)
		require.Equal(t, ReserveWrongOwner, res)
		return nil
	})
	require.NoError(t, err)
}

func TestCarBook_TryReserve_NotFound(t *testing.T) {
	s := newTestStoreForCarBook(t)
	cb := NewCarBook()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		res, _, err := cb.TryReserve(ctx, tx, "NOPE", "V1", time.Now())
		require.NoError(t, err)
		require.Equal(t, ReserveNotFound, res)
		return nil
	})
	require.NoError(t, err)
}

func TestCarBook_CommitAssignment_IdempotentPerShipmentAndCar(t *testing.T) {
	s := newTestStoreForCarBook(t)
	cb := NewCarBook()
	apm := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	lic := "CAR1"
	sh := &gizmos.Shipment{ShipID: "SH1", Route: "R1", ApmDate: apm, CarLicense: &lic}

	commitOnce := func() {
		err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			return cb.CommitAssignment(ctx, tx, sh)
		})
		require.NoError(t, err)
	}
	commitOnce()
	commitOnce() // calling twice for the same (shipid, carlicense) must be harmless

	err := s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		car, err := tx.GetCar(ctx, "CAR1")
		require.NoError(t, err)
		require.Equal(t, gizmos.CarInactive, car.Status)
		require.NotNil(t, car.WillBeAvailableAt)
		require.Equal(t, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC), *car.WillBeAvailableAt)
		return nil
	})
	require.NoError(t, err)
}

func TestCarBook_TryReserve_BusyAfterCommit(t *testing.T) {
	s := newTestStoreForCarBook(t)
	cb := NewCarBook()
	apm := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	lic := "CAR1"
	sh := &gizmos.Shipment{ShipID: "SH1", Route: "R1", ApmDate: apm, CarLicense: &lic}

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return cb.CommitAssignment(ctx, tx, sh)
	})
	require.NoError(t, err)

	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		res, _, err := cb.TryReserve(ctx, tx, "CAR1", "V1", apm.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Equal(t, ReserveBusy, res)
		return nil
	})
	require.NoError(t, err)
}
