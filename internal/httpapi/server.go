// Mnemonic:	server
// Abstract:	HTTP router wiring (spec §6.1). Generalizes tegu's
//		managers/http_api.go single mux-dispatch loop into a chi router
//		with one handler per route, using go-chi/cors for browser clients
//		the way the dispatcher and vendor web apps described in
//		original_source/ would need.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/freightrelay/dispatchd/internal/managers"
	"github.com/freightrelay/dispatchd/internal/store"
)

// Server bundles everything a handler needs: the store for reads and the
// manager façades for mutations.
type Server struct {
	Store     store.Store
	Actions   *managers.DispatchActions
	Rounds    *managers.RoundService
	Allocator *managers.Allocator
}

// NewRouter builds the full route tree described in spec §6.1.
func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User", "X-Role", "X-Vencode"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(principalMiddleware)

	r.Route("/shipments", func(r chi.Router) {
		r.Get("/unassigned", s.handleListUnassigned)
		r.Get("/held", s.handleListHeld)
		r.Get("/", s.handleListShipments)
		r.Get("/my-orders", s.handleMyOrders)
		r.Get("/my-history", s.handleMyHistory)
		r.Get("/{shipID}", s.handleGetShipment)
		r.Post("/request-booking", s.handleRequestBooking)
		r.Post("/confirm", s.handleConfirm)
		r.Post("/reject", s.handleReject)
		r.Post("/manual-assign", s.handleManualAssign)
		r.Post("/{shipID}/hold", s.handleHold)
	})

	r.Route("/booking-rounds", func(r chi.Router) {
		r.Get("/", s.handleListRounds)
		r.Post("/", s.handleCreateRound)
		r.Get("/pending-confirmation", s.handlePendingConfirmation)
		r.Get("/{roundID}", s.handleGetRound)
		r.Post("/save-for-day", s.handleSyncDay)
		r.Post("/{roundID}/assign-all", s.handleAssignAll)
		r.Post("/{roundID}/allocate", s.handleAllocate)
		r.Post("/{roundID}/confirm-assignment", s.handleConfirmAssignment)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
