package gizmos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoute_AvailableDateFrom(t *testing.T) {
	r := &Route{RouteCode: "R1", LeadTimeDays: 3}
	apm := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)
	got := r.AvailableDateFrom(apm)
	require.Equal(t, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC), got)
}

func TestRoute_AvailableDateFrom_OneDayLeadTimeIsSameDay(t *testing.T) {
	r := &Route{RouteCode: "R1", LeadTimeDays: 1}
	apm := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, apm, r.AvailableDateFrom(apm))
}

func TestCar_UsableOn(t *testing.T) {
	c := &Car{CarLicense: "C1", Status: CarActive}
	require.True(t, c.UsableOn(time.Now()))

	future := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	c.WillBeAvailableAt = &future

	require.False(t, c.UsableOn(future.Add(-24*time.Hour)))
	require.True(t, c.UsableOn(future))
	require.True(t, c.UsableOn(future.Add(24*time.Hour)))

	c.Status = CarInactive
	require.False(t, c.UsableOn(future))
}

func TestVenCodeSet_AddIsIdempotent(t *testing.T) {
	var s VenCodeSet
	s = s.Add("V1")
	s = s.Add("V1")
	require.Len(t, s, 1)
	require.True(t, s.Contains("V1"))
	require.False(t, s.Contains("V2"))
}
