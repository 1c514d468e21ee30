// Mnemonic:	allocator
// Abstract:	Allocator — quota-and-ranking vendor assignment for a booking
//		round (spec §4.5). Grounded on gizmos/pledge.go's notion of a pure
//		candidate-scoring pass, generalized from bandwidth path scoring to
//		vendor ranking; the quota/ranking rules themselves come from
//		spec §4.5 verbatim (no example repo has an equivalent concept).
package managers

import (
	"context"
	"sort"
	"time"

	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/metrics"
	"github.com/freightrelay/dispatchd/internal/store"
)

// Allocator assigns docstat=01 shipments in a round to graded vendors.
type Allocator struct {
	notifier Notifier
}

func NewAllocator(n Notifier) *Allocator { return &Allocator{notifier: n} }

// AllocationSummary reports what AllocateRound did, for logging/metrics.
type AllocationSummary struct {
	RoundID  int64
	Assigned int
	Held     int
	PerGrade map[gizmos.Grade]int
}

// AllocateRound runs the full pass over round's waiting-round shipments:
// quota computation, per-shipment ranked selection, and the HD fallback for
// shipments no eligible vendor (or no remaining quota) could take. The caller
// must run this inside a transaction; on any returned error the caller must
// roll back so the allocation is all-or-nothing (spec §4.5 last line).
func (a *Allocator) AllocateRound(ctx context.Context, tx store.Tx, roundID int64, now time.Time) (*AllocationSummary, error) {
	round, err := tx.GetRoundForUpdate(ctx, roundID)
	if err != nil {
		return nil, err
	}

	var pending []*gizmos.Shipment
	for _, sh := range round.Shipments {
		if sh.DocStat == gizmos.DocWaitingRound {
			pending = append(pending, sh)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ShipID < pending[j].ShipID })

	n := len(pending)
	quota := map[gizmos.Grade]int{
		gizmos.GradeA: int(0.40 * float64(n)),
		gizmos.GradeB: int(0.30 * float64(n)),
		gizmos.GradeC: int(0.20 * float64(n)),
	}
	quota[gizmos.GradeD] = n - quota[gizmos.GradeA] - quota[gizmos.GradeB] - quota[gizmos.GradeC]

	allocated := map[gizmos.Grade]int{}
	summary := &AllocationSummary{RoundID: roundID, PerGrade: map[gizmos.Grade]int{}}

	activeVendors, err := tx.ListActiveVendors(ctx)
	if err != nil {
		return nil, err
	}
	vendorByCode := map[string]*gizmos.Vendor{}
	for _, v := range activeVendors {
		vendorByCode[v.VenCode] = v
	}

	ownersByCarType := map[string]map[string]bool{}
	ownersOfType := func(cartype string) (map[string]bool, error) {
		if m, ok := ownersByCarType[cartype]; ok {
			return m, nil
		}
		cars, err := tx.ListActiveCarsByType(ctx, cartype)
		if err != nil {
			return nil, err
		}
		m := map[string]bool{}
		for _, c := range cars {
			m[c.OwnerVenCode] = true
		}
		ownersByCarType[cartype] = m
		return m, nil
	}

	for _, sh := range pending {
		owners, err := ownersOfType(sh.CarType)
		if err != nil {
			return nil, err
		}

		var candidates []*gizmos.Vendor
		for code := range owners {
			if v, ok := vendorByCode[code]; ok && v.Eligible() {
				candidates = append(candidates, v)
			}
		}
		rankVendors(candidates)

		var picked *gizmos.Vendor
		for _, v := range candidates {
			if allocated[v.Grade] < quota[v.Grade] {
				picked = v
				break
			}
		}

		if picked == nil {
			sh.DocStat = gizmos.DocHold
			if err := tx.SaveShipment(ctx, sh); err != nil {
				return nil, err
			}
			summary.Held++
			metrics.AllocationsTotal.WithLabelValues("held").Inc()
			continue
		}

		sh.DocStat = gizmos.DocWaitingVendor
		vc := picked.VenCode
		sh.VenCode = &vc
		g := picked.Grade
		sh.CurrentGradeToAssign = &g
		sh.AssignedAt = &now
		if err := tx.SaveShipment(ctx, sh); err != nil {
			return nil, err
		}

		allocated[picked.Grade]++
		summary.PerGrade[picked.Grade]++
		summary.Assigned++
		metrics.AllocationsTotal.WithLabelValues(string(picked.Grade)).Inc()

		lockedVendor, err := tx.GetVendorForUpdate(ctx, picked.VenCode)
		if err != nil {
			return nil, err
		}
		lockedVendor.LastAssignedAt = &now
		if err := tx.SaveVendor(ctx, lockedVendor); err != nil {
			return nil, err
		}
		vendorByCode[picked.VenCode] = lockedVendor

		if a.notifier != nil {
			if user, err := tx.GetUserByVenCode(ctx, picked.VenCode); err == nil && user.PushToken != nil {
				a.notifier.Push(ctx, *user.PushToken, "New shipment offer",
					"Shipment "+sh.ShipID+" has been assigned to you", map[string]string{"shipid": sh.ShipID})
			}
		}
	}

	for _, g := range gizmos.Grades {
		if quota[g] > 0 {
			metrics.QuotaSaturation.WithLabelValues(string(g)).Set(float64(allocated[g]) / float64(quota[g]))
		} else {
			metrics.QuotaSaturation.WithLabelValues(string(g)).Set(0)
		}
	}

	round.Status = gizmos.RoundAwaitingConfirmation
	if err := tx.SaveRound(ctx, round); err != nil {
		return nil, err
	}

	return summary, nil
}

// rankVendors sorts in place by grade asc, last_assigned_at asc (nil treated
// as -infinity), vencode asc (spec §4.5 ranking rules 1-3).
func rankVendors(vendors []*gizmos.Vendor) {
	sort.Slice(vendors, func(i, j int) bool {
		vi, vj := vendors[i], vendors[j]
		if vi.Grade.Rank() != vj.Grade.Rank() {
			return vi.Grade.Rank() < vj.Grade.Rank()
		}
		li, lj := lastAssignedOrZero(vi), lastAssignedOrZero(vj)
		if !li.Equal(lj) {
			return li.Before(lj)
		}
		return vi.VenCode < vj.VenCode
	})
}

func lastAssignedOrZero(v *gizmos.Vendor) time.Time {
	if v.LastAssignedAt == nil {
		return time.Time{}
	}
	return *v.LastAssignedAt
}
