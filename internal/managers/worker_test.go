package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

func TestTimeoutWorker_Tick_ExpiresWaitingVendorAtExactBoundary(t *testing.T) {
	s := store.NewMemStore()
	tResp := 30 * time.Minute
	assignedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ga := gizmos.GradeA
	s.SeedShipment(&gizmos.Shipment{
		ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocWaitingVendor,
		CurrentGradeToAssign: &ga, AssignedAt: &assignedAt,
	})
	s.SeedVendor(&gizmos.Vendor{VenCode: "V1", Grade: gizmos.GradeA, Active: true})

	w := NewTimeoutWorker(s, NoopNotifier{}, tResp, time.Minute)
	now := assignedAt.Add(tResp) // exactly T_resp: spec boundary says expired
	require.NoError(t, w.Tick(context.Background(), now))

	err := s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocBroadcast, sh.DocStat)
		require.True(t, sh.RejectedByVenCodes.Contains("V1")) // any vendor of grade A; set membership is the contract
		return nil
	})
	require.NoError(t, err)
}

func TestTimeoutWorker_Tick_DoesNotExpireBeforeBoundary(t *testing.T) {
	s := store.NewMemStore()
	tResp := 30 * time.Minute
	assignedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ga := gizmos.GradeA
	s.SeedShipment(&gizmos.Shipment{
		ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocWaitingVendor,
		CurrentGradeToAssign: &ga, AssignedAt: &assignedAt,
	})

	w := NewTimeoutWorker(s, NoopNotifier{}, tResp, time.Minute)
	now := assignedAt.Add(tResp).Add(-time.Second)
	require.NoError(t, w.Tick(context.Background(), now))

	err := s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocWaitingVendor, sh.DocStat)
		return nil
	})
	require.NoError(t, err)
}

func TestTimeoutWorker_Tick_ExpiresBroadcastIntoHold(t *testing.T) {
	s := store.NewMemStore()
	tResp := 30 * time.Minute
	assignedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s.SeedShipment(&gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocBroadcast, AssignedAt: &assignedAt})
	s.SeedUser(&gizmos.User{Username: "d1", Role: gizmos.RoleDispatcher, Active: true, PushToken: strPtr("tok")})

	w := NewTimeoutWorker(s, NoopNotifier{}, tResp, time.Minute)
	now := assignedAt.Add(tResp)
	require.NoError(t, w.Tick(context.Background(), now))

	err := s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocHold, sh.DocStat)
		require.Nil(t, sh.AssignedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestTimeoutWorker_Tick_IdempotentOnAlreadyTransitionedShipments(t *testing.T) {
	s := store.NewMemStore()
	tResp := 30 * time.Minute
	assignedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	s.SeedShipment(&gizmos.Shipment{ShipID: "SH1", ShipPoint: "WH1", DocStat: gizmos.DocHold, AssignedAt: &assignedAt})

	w := NewTimeoutWorker(s, NoopNotifier{}, tResp, time.Minute)
	now := assignedAt.Add(tResp)
	// shipment is already HD, not BC or 02: a missed/duplicate tick must be a no-op.
	require.NoError(t, w.Tick(context.Background(), now))
	require.NoError(t, w.Tick(context.Background(), now.Add(time.Hour)))

	err := s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		sh, err := tx.GetShipment(ctx, "SH1")
		require.NoError(t, err)
		require.Equal(t, gizmos.DocHold, sh.DocStat)
		return nil
	})
	require.NoError(t, err)
}
