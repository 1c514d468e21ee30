// Mnemonic:	memstore
// Abstract:	In-memory reference implementation of Store/Tx. Plays the role
//		tegu's managers/res_mgr.go Inventory (cache map[string]*gizmos.Pledge)
//		played there, but upgraded to honor real row-lock/commit/rollback
//		semantics so the concurrency properties in spec §8 are actually
//		observable in tests without a live database. Used by every manager's
//		test suite and as a zero-dependency runtime backend for local dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
)

// MemStore is a process-local Store. Safe for concurrent use.
type MemStore struct {
	mu sync.Mutex // guards the maps below and the lock-table bookkeeping only

	shipments     map[string]*gizmos.Shipment
	shipmentLocks map[string]*sync.Mutex

	cars     map[string]*gizmos.Car
	carLocks map[string]*sync.Mutex

	vendors     map[string]*gizmos.Vendor
	vendorLocks map[string]*sync.Mutex

	rounds      map[int64]*gizmos.BookingRound
	roundLocks  map[int64]*sync.Mutex
	nextRoundID int64

	routes          map[string]*gizmos.Route
	warehouses      map[string]*gizmos.Warehouse
	shiptypes       map[string]*gizmos.ShipType
	users           map[string]*gizmos.User // by username
	usersByVenCode  map[string]*gizmos.User
	masterRounds    []*gizmos.MasterBookingRound
	shipmentDetails map[string][]*gizmos.ShipmentDetail
}

// NewMemStore builds an empty store. Seed* helpers below populate reference
// data for tests and local runs.
func NewMemStore() *MemStore {
	return &MemStore{
		shipments:       map[string]*gizmos.Shipment{},
		shipmentLocks:   map[string]*sync.Mutex{},
		cars:            map[string]*gizmos.Car{},
		carLocks:        map[string]*sync.Mutex{},
		vendors:         map[string]*gizmos.Vendor{},
		vendorLocks:     map[string]*sync.Mutex{},
		rounds:          map[int64]*gizmos.BookingRound{},
		roundLocks:      map[int64]*sync.Mutex{},
		routes:          map[string]*gizmos.Route{},
		warehouses:      map[string]*gizmos.Warehouse{},
		shiptypes:       map[string]*gizmos.ShipType{},
		users:           map[string]*gizmos.User{},
		usersByVenCode:  map[string]*gizmos.User{},
		shipmentDetails: map[string][]*gizmos.ShipmentDetail{},
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) SeedVendor(v *gizmos.Vendor) { s.mu.Lock(); defer s.mu.Unlock(); s.vendors[v.VenCode] = v }
func (s *MemStore) SeedCar(c *gizmos.Car)        { s.mu.Lock(); defer s.mu.Unlock(); s.cars[c.CarLicense] = c }
func (s *MemStore) SeedRoute(r *gizmos.Route)    { s.mu.Lock(); defer s.mu.Unlock(); s.routes[r.RouteCode] = r }
func (s *MemStore) SeedWarehouse(w *gizmos.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[w.Code] = w
}
func (s *MemStore) SeedShipType(t *gizmos.ShipType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shiptypes[t.CarType] = t
}
func (s *MemStore) SeedUser(u *gizmos.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
	if u.VenCode != nil {
		s.usersByVenCode[*u.VenCode] = u
	}
}
func (s *MemStore) SeedMasterRound(m *gizmos.MasterBookingRound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterRounds = append(s.masterRounds, m)
}
func (s *MemStore) SeedShipment(sh *gizmos.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments[sh.ShipID] = sh
}

func (s *MemStore) lockFor(table string, key interface{}) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch table {
	case "shipment":
		k := key.(string)
		l, ok := s.shipmentLocks[k]
		if !ok {
			l = &sync.Mutex{}
			s.shipmentLocks[k] = l
		}
		return l
	case "car":
		k := key.(string)
		l, ok := s.carLocks[k]
		if !ok {
			l = &sync.Mutex{}
			s.carLocks[k] = l
		}
		return l
	case "vendor":
		k := key.(string)
		l, ok := s.vendorLocks[k]
		if !ok {
			l = &sync.Mutex{}
			s.vendorLocks[k] = l
		}
		return l
	case "round":
		k := key.(int64)
		l, ok := s.roundLocks[k]
		if !ok {
			l = &sync.Mutex{}
			s.roundLocks[k] = l
		}
		return l
	default:
		panic("memstore: unknown lock table " + table)
	}
}

// WithTx and View both build a memTx; the only difference is that View never
// acquires write locks and discards any staged writes at the end (a caller
// that calls a mutator inside View gets its change silently dropped, which
// would only happen from a programming error on this repo's own side).
func (s *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := newMemTx(s, false)
	err := fn(ctx, tx)
	if err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (s *MemStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := newMemTx(s, true)
	err := fn(ctx, tx)
	tx.rollback()
	return err
}

type memTx struct {
	s        *MemStore
	readOnly bool

	held []*sync.Mutex

	heldShipment map[string]bool
	heldCar      map[string]bool
	heldVendor   map[string]bool
	heldRound    map[int64]bool

	dirtyShipment map[string]*gizmos.Shipment
	dirtyCar      map[string]*gizmos.Car
	dirtyVendor   map[string]*gizmos.Vendor
	dirtyRound    map[int64]*gizmos.BookingRound
	deletedRounds map[int64]bool
}

func newMemTx(s *MemStore, readOnly bool) *memTx {
	return &memTx{
		s:             s,
		readOnly:      readOnly,
		heldShipment:  map[string]bool{},
		heldCar:       map[string]bool{},
		heldVendor:    map[string]bool{},
		heldRound:     map[int64]bool{},
		dirtyShipment: map[string]*gizmos.Shipment{},
		dirtyCar:      map[string]*gizmos.Car{},
		dirtyVendor:   map[string]*gizmos.Vendor{},
		dirtyRound:    map[int64]*gizmos.BookingRound{},
		deletedRounds: map[int64]bool{},
	}
}

func (tx *memTx) lockShipment(id string) {
	if tx.heldShipment[id] {
		return
	}
	l := tx.s.lockFor("shipment", id)
	l.Lock()
	tx.held = append(tx.held, l)
	tx.heldShipment[id] = true
}

func (tx *memTx) lockCar(id string) {
	if tx.heldCar[id] {
		return
	}
	l := tx.s.lockFor("car", id)
	l.Lock()
	tx.held = append(tx.held, l)
	tx.heldCar[id] = true
}

func (tx *memTx) lockVendor(id string) {
	if tx.heldVendor[id] {
		return
	}
	l := tx.s.lockFor("vendor", id)
	l.Lock()
	tx.held = append(tx.held, l)
	tx.heldVendor[id] = true
}

func (tx *memTx) lockRound(id int64) {
	if tx.heldRound[id] {
		return
	}
	l := tx.s.lockFor("round", id)
	l.Lock()
	tx.held = append(tx.held, l)
	tx.heldRound[id] = true
}

func (tx *memTx) commit() {
	tx.s.mu.Lock()
	for id, sh := range tx.dirtyShipment {
		tx.s.shipments[id] = sh
	}
	for id, c := range tx.dirtyCar {
		tx.s.cars[id] = c
	}
	for id, v := range tx.dirtyVendor {
		tx.s.vendors[id] = v
	}
	for id, r := range tx.dirtyRound {
		tx.s.rounds[id] = r
	}
	for id := range tx.deletedRounds {
		delete(tx.s.rounds, id)
	}
	tx.s.mu.Unlock()
	tx.rollback() // release held locks; name kept distinct from "rollback" semantics on purpose: unlocking is unconditional
}

func (tx *memTx) rollback() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

// --- shipments ---------------------------------------------------------

func (tx *memTx) GetShipment(ctx context.Context, shipID string) (*gizmos.Shipment, error) {
	if d, ok := tx.dirtyShipment[shipID]; ok {
		return d.Clone(), nil
	}
	tx.s.mu.Lock()
	sh, ok := tx.s.shipments[shipID]
	tx.s.mu.Unlock()
	if !ok {
		return nil, dispatcherr.NotFound("shipment %s not found", shipID)
	}
	return sh.Clone(), nil
}

func (tx *memTx) GetShipmentForUpdate(ctx context.Context, shipID string) (*gizmos.Shipment, error) {
	tx.lockShipment(shipID)
	return tx.GetShipment(ctx, shipID)
}

func (tx *memTx) SaveShipment(ctx context.Context, s *gizmos.Shipment) error {
	tx.lockShipment(s.ShipID)
	tx.dirtyShipment[s.ShipID] = s.Clone()
	return nil
}

func (tx *memTx) allShipments() []*gizmos.Shipment {
	tx.s.mu.Lock()
	out := make([]*gizmos.Shipment, 0, len(tx.s.shipments))
	for id, sh := range tx.s.shipments {
		if d, ok := tx.dirtyShipment[id]; ok {
			out = append(out, d.Clone())
		} else {
			out = append(out, sh.Clone())
		}
	}
	tx.s.mu.Unlock()
	for id, d := range tx.dirtyShipment {
		found := false
		for _, sh := range out {
			if sh.ShipID == id {
				found = true
				break
			}
		}
		if !found {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShipID < out[j].ShipID })
	return out
}

func (tx *memTx) ListUnassigned(ctx context.Context, apmDate time.Time, warehouse string) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.DocStat != gizmos.DocWaitingRound || sh.IsOnHold {
			continue
		}
		if warehouse != "" && sh.ShipPoint != warehouse {
			continue
		}
		if !apmDate.IsZero() && !sameDate(sh.ApmDate, apmDate) {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

func (tx *memTx) ListForVendor(ctx context.Context, grade gizmos.Grade, venCode string) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.DocStat == gizmos.DocWaitingVendor && sh.CurrentGradeToAssign != nil && *sh.CurrentGradeToAssign == grade {
			out = append(out, sh)
			continue
		}
		if sh.DocStat == gizmos.DocBroadcast && !sh.RejectedByVenCodes.Contains(venCode) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (tx *memTx) ListHeld(ctx context.Context, warehouse string) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.IsOnHold && (warehouse == "" || sh.ShipPoint == warehouse) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (tx *memTx) ListHeldAllWarehouses(ctx context.Context) ([]*gizmos.Shipment, error) {
	return tx.ListHeld(ctx, "")
}

func (tx *memTx) ListByShipmentRound(ctx context.Context, roundID int64) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.BookingRoundID != nil && *sh.BookingRoundID == roundID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (tx *memTx) ListExpiredWaitingVendor(ctx context.Context, cutoff time.Time) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.DocStat == gizmos.DocWaitingVendor && sh.AssignedAt != nil && !sh.AssignedAt.After(cutoff) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (tx *memTx) ListExpiredBroadcast(ctx context.Context, cutoff time.Time) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.DocStat == gizmos.DocBroadcast && sh.AssignedAt != nil && !sh.AssignedAt.After(cutoff) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (tx *memTx) ListReadyForRound(ctx context.Context, shipPoint string, createdOn time.Time) ([]*gizmos.Shipment, error) {
	var out []*gizmos.Shipment
	for _, sh := range tx.allShipments() {
		if sh.BookingRoundID != nil || sh.IsOnHold {
			continue
		}
		if sh.ShipPoint != shipPoint {
			continue
		}
		if !sameDate(sh.CrDate, createdOn) {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

func (tx *memTx) ListShipmentDetails(ctx context.Context, shipID string) ([]*gizmos.ShipmentDetail, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	return append([]*gizmos.ShipmentDetail(nil), tx.s.shipmentDetails[shipID]...), nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// --- booking rounds ------------------------------------------------------

func (tx *memTx) GetRound(ctx context.Context, id int64) (*gizmos.BookingRound, error) {
	if d, ok := tx.dirtyRound[id]; ok {
		return cloneRound(d), nil
	}
	tx.s.mu.Lock()
	r, ok := tx.s.rounds[id]
	tx.s.mu.Unlock()
	if !ok {
		return nil, dispatcherr.NotFound("round %d not found", id)
	}
	return cloneRound(r), nil
}

func (tx *memTx) GetRoundForUpdate(ctx context.Context, id int64) (*gizmos.BookingRound, error) {
	tx.lockRound(id)
	r, err := tx.GetRound(ctx, id)
	if err != nil {
		return nil, err
	}
	shipments, _ := tx.ListByShipmentRound(ctx, id)
	sort.Slice(shipments, func(i, j int) bool { return shipments[i].ShipID < shipments[j].ShipID })
	for _, sh := range shipments {
		tx.lockShipment(sh.ShipID)
	}
	r.Shipments = shipments
	return r, nil
}

func (tx *memTx) ListRounds(ctx context.Context, date time.Time, warehouse string) ([]*gizmos.BookingRound, error) {
	tx.s.mu.Lock()
	var out []*gizmos.BookingRound
	for id, r := range tx.s.rounds {
		if tx.deletedRounds[id] {
			continue
		}
		rr := r
		if d, ok := tx.dirtyRound[id]; ok {
			rr = d
		}
		if rr.WarehouseCode != warehouse {
			continue
		}
		if !date.IsZero() && !sameDate(rr.RoundDate, date) {
			continue
		}
		out = append(out, cloneRound(rr))
	}
	tx.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RoundTime < out[j].RoundTime })
	for _, r := range out {
		shipments, _ := tx.ListByShipmentRound(ctx, r.ID)
		sort.Slice(shipments, func(i, j int) bool { return shipments[i].ShipID < shipments[j].ShipID })
		r.Shipments = shipments
	}
	return out, nil
}

func (tx *memTx) ListRoundsPendingConfirmation(ctx context.Context) ([]*gizmos.BookingRound, error) {
	tx.s.mu.Lock()
	var ids []int64
	for id, r := range tx.s.rounds {
		if tx.deletedRounds[id] {
			continue
		}
		rr := r
		if d, ok := tx.dirtyRound[id]; ok {
			rr = d
		}
		if rr.Status == gizmos.RoundAwaitingConfirmation {
			ids = append(ids, id)
		}
	}
	tx.s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*gizmos.BookingRound
	for _, id := range ids {
		r, err := tx.GetRound(ctx, id)
		if err != nil {
			continue
		}
		shipments, _ := tx.ListByShipmentRound(ctx, id)
		r.Shipments = shipments
		out = append(out, r)
	}
	return out, nil
}

func (tx *memTx) SaveRound(ctx context.Context, r *gizmos.BookingRound) error {
	if r.ID == 0 {
		tx.s.mu.Lock()
		tx.s.nextRoundID++
		r.ID = tx.s.nextRoundID
		tx.s.mu.Unlock()
	}
	tx.lockRound(r.ID)
	tx.dirtyRound[r.ID] = cloneRound(r)
	return nil
}

func (tx *memTx) DeleteRoundsForDay(ctx context.Context, date time.Time, warehouse string) ([]int64, error) {
	existing, _ := tx.ListRounds(ctx, date, warehouse)
	var ids []int64
	for _, r := range existing {
		tx.lockRound(r.ID)
		ids = append(ids, r.ID)
		tx.deletedRounds[r.ID] = true
		delete(tx.dirtyRound, r.ID)
	}
	return ids, nil
}

func (tx *memTx) DetachShipmentsFromRounds(ctx context.Context, roundIDs []int64) error {
	for _, rid := range roundIDs {
		shipments, _ := tx.ListByShipmentRound(ctx, rid)
		for _, sh := range shipments {
			tx.lockShipment(sh.ShipID)
			sh.BookingRoundID = nil
			if err := tx.SaveShipment(ctx, sh); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tx *memTx) ListMasterRounds(ctx context.Context) ([]*gizmos.MasterBookingRound, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	var out []*gizmos.MasterBookingRound
	for _, m := range tx.s.masterRounds {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundTime < out[j].RoundTime })
	return out, nil
}

func cloneRound(r *gizmos.BookingRound) *gizmos.BookingRound {
	cp := *r
	cp.Shipments = nil
	return &cp
}

// --- cars ------------------------------------------------------------

func (tx *memTx) GetCar(ctx context.Context, carLicense string) (*gizmos.Car, error) {
	if d, ok := tx.dirtyCar[carLicense]; ok {
		cp := *d
		return &cp, nil
	}
	tx.s.mu.Lock()
	c, ok := tx.s.cars[carLicense]
	tx.s.mu.Unlock()
	if !ok {
		return nil, dispatcherr.NotFound("car %s not found", carLicense)
	}
	cp := *c
	return &cp, nil
}

func (tx *memTx) GetCarForUpdate(ctx context.Context, carLicense string) (*gizmos.Car, error) {
	tx.lockCar(carLicense)
	return tx.GetCar(ctx, carLicense)
}

func (tx *memTx) SaveCar(ctx context.Context, c *gizmos.Car) error {
	tx.lockCar(c.CarLicense)
	cp := *c
	tx.dirtyCar[c.CarLicense] = &cp
	return nil
}

func (tx *memTx) ListActiveCarsByType(ctx context.Context, cartype string) ([]*gizmos.Car, error) {
	tx.s.mu.Lock()
	var out []*gizmos.Car
	for lic, c := range tx.s.cars {
		cc := c
		if d, ok := tx.dirtyCar[lic]; ok {
			cc = d
		}
		if cc.Status == gizmos.CarActive && cc.CarType == cartype {
			cp := *cc
			out = append(out, &cp)
		}
	}
	tx.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CarLicense < out[j].CarLicense })
	return out, nil
}

func (tx *memTx) ListCarsByVendor(ctx context.Context, venCode string) ([]*gizmos.Car, error) {
	tx.s.mu.Lock()
	var out []*gizmos.Car
	for lic, c := range tx.s.cars {
		cc := c
		if d, ok := tx.dirtyCar[lic]; ok {
			cc = d
		}
		if cc.OwnerVenCode == venCode {
			cp := *cc
			out = append(out, &cp)
		}
	}
	tx.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CarLicense < out[j].CarLicense })
	return out, nil
}

// --- vendors -----------------------------------------------------------

func (tx *memTx) GetVendor(ctx context.Context, venCode string) (*gizmos.Vendor, error) {
	if d, ok := tx.dirtyVendor[venCode]; ok {
		cp := *d
		return &cp, nil
	}
	tx.s.mu.Lock()
	v, ok := tx.s.vendors[venCode]
	tx.s.mu.Unlock()
	if !ok {
		return nil, dispatcherr.NotFound("vendor %s not found", venCode)
	}
	cp := *v
	return &cp, nil
}

func (tx *memTx) GetVendorForUpdate(ctx context.Context, venCode string) (*gizmos.Vendor, error) {
	tx.lockVendor(venCode)
	return tx.GetVendor(ctx, venCode)
}

func (tx *memTx) SaveVendor(ctx context.Context, v *gizmos.Vendor) error {
	tx.lockVendor(v.VenCode)
	cp := *v
	tx.dirtyVendor[v.VenCode] = &cp
	return nil
}

func (tx *memTx) ListActiveVendors(ctx context.Context) ([]*gizmos.Vendor, error) {
	tx.s.mu.Lock()
	var out []*gizmos.Vendor
	for code, v := range tx.s.vendors {
		vv := v
		if d, ok := tx.dirtyVendor[code]; ok {
			vv = d
		}
		if vv.Active {
			cp := *vv
			out = append(out, &cp)
		}
	}
	tx.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].VenCode < out[j].VenCode })
	return out, nil
}

// FirstByGrade implements the "deterministic query" spec §4.3 requires for
// Timeout02 attribution: the lowest vencode, active, of the given grade.
func (tx *memTx) FirstByGrade(ctx context.Context, grade gizmos.Grade) (*gizmos.Vendor, error) {
	vendors, _ := tx.ListActiveVendors(ctx)
	for _, v := range vendors {
		if v.Grade == grade {
			return v, nil
		}
	}
	return nil, dispatcherr.NotFound("no active vendor of grade %s", grade)
}

// --- reference data ------------------------------------------------------

func (tx *memTx) GetRoute(ctx context.Context, code string) (*gizmos.Route, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	r, ok := tx.s.routes[code]
	if !ok {
		return nil, dispatcherr.NotFound("route %s not found", code)
	}
	cp := *r
	return &cp, nil
}

func (tx *memTx) GetWarehouse(ctx context.Context, code string) (*gizmos.Warehouse, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	w, ok := tx.s.warehouses[code]
	if !ok {
		return nil, dispatcherr.NotFound("warehouse %s not found", code)
	}
	cp := *w
	return &cp, nil
}

func (tx *memTx) GetShipType(ctx context.Context, cartype string) (*gizmos.ShipType, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	t, ok := tx.s.shiptypes[cartype]
	if !ok {
		return nil, dispatcherr.NotFound("ship type %s not found", cartype)
	}
	cp := *t
	return &cp, nil
}

// --- users ---------------------------------------------------------------

func (tx *memTx) GetUser(ctx context.Context, username string) (*gizmos.User, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	u, ok := tx.s.users[username]
	if !ok {
		return nil, dispatcherr.NotFound("user %s not found", username)
	}
	cp := *u
	return &cp, nil
}

func (tx *memTx) GetUserByVenCode(ctx context.Context, venCode string) (*gizmos.User, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	u, ok := tx.s.usersByVenCode[venCode]
	if !ok {
		return nil, dispatcherr.NotFound("user for vendor %s not found", venCode)
	}
	cp := *u
	return &cp, nil
}

func (tx *memTx) ListUsersByRole(ctx context.Context, role gizmos.Role) ([]*gizmos.User, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	var out []*gizmos.User
	for _, u := range tx.s.users {
		if u.Role == role {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (tx *memTx) ListActiveVendorUsersByGrade(ctx context.Context, grade gizmos.Grade) ([]*gizmos.User, error) {
	tx.s.mu.Lock()
	vendors := map[string]*gizmos.Vendor{}
	for k, v := range tx.s.vendors {
		vendors[k] = v
	}
	users := map[string]*gizmos.User{}
	for k, u := range tx.s.usersByVenCode {
		users[k] = u
	}
	tx.s.mu.Unlock()

	var out []*gizmos.User
	for code, v := range vendors {
		if !v.Active || v.Grade != grade {
			continue
		}
		if u, ok := users[code]; ok && u.Active {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
