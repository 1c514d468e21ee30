// Mnemonic:	shipments
// Abstract:	Shipment-facing HTTP handlers (spec §6.1).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
	"github.com/freightrelay/dispatchd/internal/store"
)

const dateLayout = "2006-01-02"

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, v)
}

func (s *Server) handleListUnassigned(w http.ResponseWriter, r *http.Request) {
	apmDate, err := parseDateParam(r, "apmdate")
	if err != nil {
		writeError(w, dispatcherr.InvalidInput("invalid apmdate: %v", err))
		return
	}
	shippoint := r.URL.Query().Get("shippoint")

	var out []*gizmos.Shipment
	err = s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListUnassigned(ctx, apmDate, shippoint)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListHeld(w http.ResponseWriter, r *http.Request) {
	shippoint := r.URL.Query().Get("shippoint")
	var out []*gizmos.Shipment
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListHeld(ctx, shippoint)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListShipments is role-aware: a dispatcher principal gets the
// filtered dispatcher view, a vendor principal gets list_for_vendor (spec
// §6.1 "GET /shipments"). The dispatcher view covers only unassigned
// (docstat 01, not on hold) and on-hold shipments; shipments in any other
// state are not listed, whatever the filters.
func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var out []*gizmos.Shipment
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		if p.Role == gizmos.RoleVendor {
			user, err := tx.GetUser(ctx, p.Username)
			if err != nil {
				return err
			}
			if !user.IsVendor() {
				return dispatcherr.Forbidden("user %s is not a vendor account", p.Username)
			}
			vendor, err := tx.GetVendor(ctx, *user.VenCode)
			if err != nil {
				return err
			}
			var grade gizmos.Grade
			if vendor != nil {
				grade = vendor.Grade
			}
			out, err = tx.ListForVendor(ctx, grade, *user.VenCode)
			return err
		}

		docstat := gizmos.DocStat(r.URL.Query().Get("docstat"))
		venCode := r.URL.Query().Get("vencode")
		holdParam := r.URL.Query().Get("is_on_hold")
		apmFrom, err := parseDateParam(r, "apmdate_from")
		if err != nil {
			return dispatcherr.InvalidInput("invalid apmdate_from: %v", err)
		}
		apmTo, err := parseDateParam(r, "apmdate_to")
		if err != nil {
			return dispatcherr.InvalidInput("invalid apmdate_to: %v", err)
		}

		all, err := tx.ListUnassigned(ctx, time.Time{}, "")
		if err != nil {
			return err
		}
		held, err := tx.ListHeldAllWarehouses(ctx)
		if err != nil {
			return err
		}
		all = append(all, held...)

		for _, sh := range all {
			if docstat != "" && sh.DocStat != docstat {
				continue
			}
			if venCode != "" && (sh.VenCode == nil || *sh.VenCode != venCode) {
				continue
			}
			if holdParam != "" && (holdParam == "true") != sh.IsOnHold {
				continue
			}
			if !apmFrom.IsZero() && sh.ApmDate.Before(apmFrom) {
				continue
			}
			if !apmTo.IsZero() && sh.ApmDate.After(apmTo) {
				continue
			}
			out = append(out, sh)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var out []*gizmos.Shipment
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListUnassigned(ctx, time.Time{}, "")
		if err != nil {
			return err
		}
		for _, sh := range all {
			if sh.VenCode != nil && *sh.VenCode == p.VenCode && !sh.DocStat.Terminal() {
				out = append(out, sh)
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var out []*gizmos.Shipment
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListUnassigned(ctx, time.Time{}, "")
		if err != nil {
			return err
		}
		for _, sh := range all {
			if sh.VenCode != nil && *sh.VenCode == p.VenCode && sh.DocStat.Terminal() {
				out = append(out, sh)
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	shipID := chi.URLParam(r, "shipID")
	var out *gizmos.Shipment
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.GetShipment(ctx, shipID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type shipIDBody struct {
	ShipID string `json:"shipid"`
}

func (s *Server) handleRequestBooking(w http.ResponseWriter, r *http.Request) {
	var body shipIDBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	sh, err := s.Actions.RequestBooking(r.Context(), s.Store, body.ShipID, p.Username, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

type confirmBody struct {
	ShipID     string `json:"shipid"`
	CarLicense string `json:"carlicense"`
	CarNote    string `json:"carnote,omitempty"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body confirmBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	vendor, err := s.loadActingVendor(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	sh, err := s.Actions.VendorConfirm(r.Context(), s.Store, body.ShipID, vendor, body.CarLicense, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

type rejectBody struct {
	ShipID          string `json:"shipid"`
	RejectionReason string `json:"rejection_reason"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var body rejectBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	vendor, err := s.loadActingVendor(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	sh, err := s.Actions.VendorReject(r.Context(), s.Store, body.ShipID, vendor, body.RejectionReason, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

type manualAssignBody struct {
	ShipID  string `json:"shipid"`
	VenCode string `json:"vencode"`
}

func (s *Server) handleManualAssign(w http.ResponseWriter, r *http.Request) {
	var body manualAssignBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	var vendor *gizmos.Vendor
	err := s.Store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		vendor, err = tx.GetVendor(ctx, body.VenCode)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	sh, err := s.Actions.ManualAssign(r.Context(), s.Store, body.ShipID, vendor, p.Username, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

type holdBody struct {
	Hold bool `json:"hold"`
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	shipID := chi.URLParam(r, "shipID")
	var body holdBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	p, _ := principalFrom(r.Context())
	var (
		sh  *gizmos.Shipment
		err error
	)
	if body.Hold {
		sh, err = s.Actions.Hold(r.Context(), s.Store, shipID, p.Username, time.Now())
	} else {
		sh, err = s.Actions.Unhold(r.Context(), s.Store, shipID, p.Username, time.Now())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) loadActingVendor(ctx context.Context, p Principal) (*gizmos.Vendor, error) {
	if p.VenCode == "" {
		return nil, dispatcherr.Forbidden("request has no vendor identity")
	}
	var v *gizmos.Vendor
	err := s.Store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		v, err = tx.GetVendor(ctx, p.VenCode)
		return err
	})
	return v, err
}
