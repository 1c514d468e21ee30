package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
)

func seedShipment(t *testing.T, s *MemStore, id string) {
	t.Helper()
	s.SeedShipment(&gizmos.Shipment{
		ShipID:    id,
		ShipPoint: "WH1",
		Route:     "R1",
		CarType:   "10T",
		ApmDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DocStat:   gizmos.DocWaitingVendor,
	})
}

func TestMemStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewMemStore()
	seedShipment(t, s, "SH1")

	err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, "SH1")
		require.NoError(t, err)
		sh.DocStat = gizmos.DocCanceled
		require.NoError(t, tx.SaveShipment(ctx, sh))
		return dispatcherr.InvalidInput("force rollback")
	})
	require.Error(t, err)

	err = s.View(context.Background(), func(ctx context.Context, tx Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocWaitingVendor, sh.DocStat)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_CommitPersistsWrites(t *testing.T) {
	s := NewMemStore()
	seedShipment(t, s, "SH1")

	err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		sh, err := tx.GetShipmentForUpdate(ctx, "SH1")
		require.NoError(t, err)
		sh.DocStat = gizmos.DocCanceled
		return tx.SaveShipment(ctx, sh)
	})
	require.NoError(t, err)

	err = s.View(context.Background(), func(ctx context.Context, tx Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocCanceled, sh.DocStat)
		return nil
	})
	require.NoError(t, err)
}

// TestMemStore_ConcurrentForUpdateSerializes pins the property spec §8 calls
// out: two concurrent transactions racing GetShipmentForUpdate on the same
// shipment must serialize, and the loser must observe the winner's committed
// state rather than a stale read.
func TestMemStore_ConcurrentForUpdateSerializes(t *testing.T) {
	s := NewMemStore()
	seedShipment(t, s, "SH1")

	var wg sync.WaitGroup
	release := make(chan struct{})
	firstInTx := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
			sh, err := tx.GetShipmentForUpdate(ctx, "SH1")
			require.NoError(t, err)
			close(firstInTx)
			<-release
			sh.DocStat = gizmos.DocBroadcast
			return tx.SaveShipment(ctx, sh)
		})
	}()

	<-firstInTx
	secondSawValue := make(chan gizmos.DocStat, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
			sh, err := tx.GetShipmentForUpdate(ctx, "SH1")
			require.NoError(t, err)
			secondSawValue <- sh.DocStat
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond) // give the second goroutine a chance to (wrongly) barge in
	close(release)
	wg.Wait()

	got := <-secondSawValue
	require.Equal(t, gizmos.DocBroadcast, got, "second transaction must observe the first's committed write, not the stale pre-commit value")
}

func TestMemStore_GetRoundForUpdate_LocksRoundThenShipmentsInOrder(t *testing.T) {
	s := NewMemStore()
	seedShipment(t, s, "SH2")
	seedShipment(t, s, "SH1")

	err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		round := &gizmos.BookingRound{RoundDate: time.Now(), RoundTime: "08:00", WarehouseCode: "WH1"}
		require.NoError(t, tx.SaveRound(ctx, round))
		for _, id := range []string{"SH1", "SH2"} {
			sh, err := tx.GetShipmentForUpdate(ctx, id)
			require.NoError(t, err)
			sh.BookingRoundID = &round.ID
			require.NoError(t, tx.SaveShipment(ctx, sh))
		}
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		round, err := tx.GetRoundForUpdate(ctx, 1)
		require.NoError(t, err)
		require.Len(t, round.Shipments, 2)
		require.Equal(t, "SH1", round.Shipments[0].ShipID)
		require.Equal(t, "SH2", round.Shipments[1].ShipID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemStore_NotFound(t *testing.T) {
	s := NewMemStore()
	err := s.View(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := tx.GetShipment(ctx, "NOPE")
		return err
	})
	require.Error(t, err)
	require.True(t, dispatcherr.Is(err, dispatcherr.KindNotFound))
}
