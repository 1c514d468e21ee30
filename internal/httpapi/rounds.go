// Mnemonic:	rounds
// Abstract:	Booking-round HTTP handlers (spec §6.1).
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/managers"
	"github.com/freightrelay/dispatchd/internal/store"
)

func parseRoundID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "roundID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dispatcherr.InvalidInput("invalid round id %q", raw)
	}
	return id, nil
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, dispatcherr.InvalidInput("invalid date: %v", err))
		return
	}
	warehouse := r.URL.Query().Get("shippoint")
	rounds, err := s.Rounds.GetRounds(r.Context(), s.Store, date, warehouse)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	id, err := parseRoundID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var out *gizmos.BookingRound
	err = s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		round, err := tx.GetRound(ctx, id)
		if err != nil {
			return err
		}
		round.Shipments, err = tx.ListByShipmentRound(ctx, id)
		out = round
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type createRoundBody struct {
	Date        string   `json:"date"`
	RoundTime   string   `json:"round_time"`
	Warehouse   string   `json:"shippoint"`
	ShipmentIDs []string `json:"shipment_ids"`
	VolumeCBM   *float64 `json:"volume_cbm,omitempty"`
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var body createRoundBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	date, err := time.Parse(dateLayout, body.Date)
	if err != nil {
		writeError(w, dispatcherr.InvalidInput("invalid date: %v", err))
		return
	}
	p, _ := principalFrom(r.Context())
	round, err := s.Rounds.CreateRound(r.Context(), s.Store, date, body.RoundTime, body.Warehouse, body.ShipmentIDs, body.VolumeCBM, p.Username, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

type syncDayBody struct {
	Date       string   `json:"date"`
	Warehouse  string   `json:"shippoint"`
	RoundTimes []string `json:"round_times,omitempty"`
}

func (s *Server) handleSyncDay(w http.ResponseWriter, r *http.Request) {
	var body syncDayBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	date, err := time.Parse(dateLayout, body.Date)
	if err != nil {
		writeError(w, dispatcherr.InvalidInput("invalid date: %v", err))
		return
	}
	p, _ := principalFrom(r.Context())
	rounds, err := s.Rounds.SyncDay(r.Context(), s.Store, date, body.Warehouse, body.RoundTimes, p.Username, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleAssignAll(w http.ResponseWriter, r *http.Request) {
	id, err := parseRoundID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	crdate, err := parseDateParam(r, "crdate")
	if err != nil {
		writeError(w, dispatcherr.InvalidInput("invalid crdate: %v", err))
		return
	}
	shippoint := r.URL.Query().Get("shippoint")
	moved, err := s.Rounds.AssignAllReady(r.Context(), s.Store, id, crdate, shippoint)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"moved": moved})
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	id, err := parseRoundID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var summary *managers.AllocationSummary
	err = s.Store.WithTx(r.Context(), func(ctx context.Context, tx store.Tx) error {
		res, err := s.Allocator.AllocateRound(ctx, tx, id, time.Now())
		summary = res
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePendingConfirmation(w http.ResponseWriter, r *http.Request) {
	var out []*gizmos.BookingRound
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListRoundsPendingConfirmation(ctx)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConfirmAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseRoundID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	round, err := s.Rounds.ConfirmRound(r.Context(), s.Store, id, p.Username, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}
