// Mnemonic:	worker
// Abstract:	TimeoutWorker — periodic T_resp expiry sweep (spec §4.7).
//		Grounded on tegu's gizmos/tools.go tickler (a self-scheduling
//		goroutine driven by time.Ticker) generalized from network pledges
//		to shipment timeouts; each tick is its own transaction exactly as
//		tegu's res_mgr checkpoint pass runs standalone between requests.
package managers

import (
	"context"
	"time"

	"github.com/freightrelay/dispatchd/internal/dlog"
	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/metrics"
	"github.com/freightrelay/dispatchd/internal/store"
)

// TimeoutWorker scans for docstat=02/BC shipments that have sat past T_resp
// and advances them via ShipmentFSM, on a fixed tick interval.
type TimeoutWorker struct {
	st       store.Store
	notify   Notifier
	tResp    time.Duration
	interval time.Duration
}

func NewTimeoutWorker(st store.Store, n Notifier, tResp, interval time.Duration) *TimeoutWorker {
	return &TimeoutWorker{st: st, notify: n, tResp: tResp, interval: interval}
}

// Run blocks, ticking until ctx is canceled. Each tick's failure is logged
// and retried on the next tick; missed ticks are harmless because the scan
// re-checks docstat before acting (spec §4.7).
func (w *TimeoutWorker) Run(ctx context.Context) {
	log := dlog.For("timeoutworker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infow("stopping")
			return
		case <-ticker.C:
			if err := w.Tick(ctx, time.Now()); err != nil {
				log.Errorw("tick failed, will retry next interval", "err", err)
			}
		}
	}
}

// Tick runs exactly one sweep. Exported so tests and a manual "run once"
// admin action can drive it without waiting on the ticker.
func (w *TimeoutWorker) Tick(ctx context.Context, now time.Time) error {
	log := dlog.For("timeoutworker")
	cutoff := now.Add(-w.tResp)
	start := time.Now()

	err := w.st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		expired02, err := tx.ListExpiredWaitingVendor(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, sh := range expired02 {
			grade := gizmos.GradeA
			if sh.CurrentGradeToAssign != nil {
				grade = *sh.CurrentGradeToAssign
			}
			blamed, err := tx.FirstByGrade(ctx, grade)
			if err != nil {
				log.Warnw("timeout02: no vendor on file for grade, proceeding without blame", "shipid", sh.ShipID, "grade", grade)
				blamed = nil
			}
			next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvTimeout02, Now: now, Vendor: blamed})
			if err != nil {
				return err
			}
			if err := tx.SaveShipment(ctx, next); err != nil {
				return err
			}
			metrics.TimeoutExpiredTotal.WithLabelValues("Timeout02").Inc()
			w.notifyVendorsNotOfGrade(ctx, tx, grade, next)
		}

		expiredBC, err := tx.ListExpiredBroadcast(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, sh := range expiredBC {
			next, err := gizmos.Next(sh, gizmos.TransitionInput{Event: gizmos.EvTimeoutBC, Now: now})
			if err != nil {
				return err
			}
			if err := tx.SaveShipment(ctx, next); err != nil {
				return err
			}
			metrics.TimeoutExpiredTotal.WithLabelValues("TimeoutBC").Inc()
			w.notifyDispatchers(ctx, tx, next)
		}
		return nil
	})

	metrics.TimeoutTickDuration.Observe(time.Since(start).Seconds())
	return err
}

func (w *TimeoutWorker) notifyVendorsNotOfGrade(ctx context.Context, tx store.Tx, excludedGrade gizmos.Grade, sh *gizmos.Shipment) {
	if w.notify == nil {
		return
	}
	users, err := tx.ListUsersByRole(ctx, gizmos.RoleVendor)
	if err != nil {
		return
	}
	for _, u := range users {
		if u.VenCode == nil || u.PushToken == nil {
			continue
		}
		v, err := tx.GetVendor(ctx, *u.VenCode)
		if err != nil || v.Grade == excludedGrade {
			continue
		}
		w.notify.Push(ctx, *u.PushToken, "Shipment open for bid",
			"Shipment "+sh.ShipID+" is now open", map[string]string{"shipid": sh.ShipID})
	}
}

func (w *TimeoutWorker) notifyDispatchers(ctx context.Context, tx store.Tx, sh *gizmos.Shipment) {
	if w.notify == nil {
		return
	}
	users, err := tx.ListUsersByRole(ctx, gizmos.RoleDispatcher)
	if err != nil {
		return
	}
	for _, u := range users {
		if u.PushToken != nil {
			w.notify.Push(ctx, *u.PushToken, "Shipment needs attention",
				"Shipment "+sh.ShipID+" received no vendor responses and is on hold", map[string]string{"shipid": sh.ShipID})
		}
	}
}
