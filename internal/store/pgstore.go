// Mnemonic:	pgstore
// Abstract:	jackc/pgx/v5-backed Store. This is the runtime backend: every
//		SELECT that feeds a guarded mutation uses FOR UPDATE, and the lock
//		order round -> shipments (shipid asc) -> cars (carlicense asc) from
//		spec §5 starts with GetRoundForUpdate, which locks the round and
//		then its shipments by shipid; cars are locked afterwards by the
//		callers through GetCarForUpdate.
//		No pack example wires a relational driver (the closest, tegu's
//		chkpt, is a flat JSON file); pgx is adopted fresh here and
//		justified in DESIGN.md since spec §4.1/§5 cannot be honestly
//		implemented over an in-process map or a file.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/gizmos"
)

// PGStore wraps a pgxpool.Pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and verifies connectivity with a ping.
func Open(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, dispatcherr.Internal(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dispatcherr.Internal(err, "ping postgres")
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return dispatcherr.Internal(err, "begin tx")
	}
	ptx := &pgTxWrapper{tx: pgTx}
	if err := fn(ctx, ptx); err != nil {
		_ = pgTx.Rollback(ctx)
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return dispatcherr.Internal(err, "commit tx")
	}
	return nil
}

func (s *PGStore) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly})
	if err != nil {
		return dispatcherr.Internal(err, "begin read-only tx")
	}
	defer func() { _ = pgTx.Rollback(ctx) }()
	ptx := &pgTxWrapper{tx: pgTx}
	return fn(ctx, ptx)
}

type pgTxWrapper struct {
	tx pgx.Tx
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return dispatcherr.NotFound(format, args...)
	}
	return dispatcherr.Internal(err, format, args...)
}

// --- shipments -----------------------------------------------------------

const shipmentCols = `shipid, shippoint, route, cartype, apmdate, crdate, booking_round_id,
	docstat, is_on_hold, docstat_before_hold, vencode, carlicense,
	current_grade_to_assign, confirmed_by_grade, assigned_at, rejected_by_vencodes,
	ch_user, ch_date`

func scanShipment(row pgx.Row) (*gizmos.Shipment, error) {
	var s gizmos.Shipment
	var rejected []string
	err := row.Scan(&s.ShipID, &s.ShipPoint, &s.Route, &s.CarType, &s.ApmDate, &s.CrDate,
		&s.BookingRoundID, &s.DocStat, &s.IsOnHold, &s.DocStatBeforeHold, &s.VenCode, &s.CarLicense,
		&s.CurrentGradeToAssign, &s.ConfirmedByGrade, &s.AssignedAt, &rejected, &s.ChUser, &s.ChDate)
	if err != nil {
		return nil, err
	}
	s.RejectedByVenCodes = gizmos.VenCodeSet(rejected)
	return &s, nil
}

func (t *pgTxWrapper) GetShipment(ctx context.Context, shipID string) (*gizmos.Shipment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+shipmentCols+` FROM shipments WHERE shipid = $1`, shipID)
	s, err := scanShipment(row)
	if err != nil {
		return nil, notFoundOr(err, "shipment %s not found", shipID)
	}
	return s, nil
}

func (t *pgTxWrapper) GetShipmentForUpdate(ctx context.Context, shipID string) (*gizmos.Shipment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+shipmentCols+` FROM shipments WHERE shipid = $1 FOR UPDATE`, shipID)
	s, err := scanShipment(row)
	if err != nil {
		return nil, notFoundOr(err, "shipment %s not found", shipID)
	}
	return s, nil
}

func (t *pgTxWrapper) SaveShipment(ctx context.Context, s *gizmos.Shipment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shipments (shipid, shippoint, route, cartype, apmdate, crdate, booking_round_id,
			docstat, is_on_hold, docstat_before_hold, vencode, carlicense,
			current_grade_to_assign, confirmed_by_grade, assigned_at, rejected_by_vencodes, ch_user, ch_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (shipid) DO UPDATE SET
			booking_round_id = EXCLUDED.booking_round_id,
			docstat = EXCLUDED.docstat,
			is_on_hold = EXCLUDED.is_on_hold,
			docstat_before_hold = EXCLUDED.docstat_before_hold,
			vencode = EXCLUDED.vencode,
			carlicense = EXCLUDED.carlicense,
			current_grade_to_assign = EXCLUDED.current_grade_to_assign,
			confirmed_by_grade = EXCLUDED.confirmed_by_grade,
			assigned_at = EXCLUDED.assigned_at,
			rejected_by_vencodes = EXCLUDED.rejected_by_vencodes,
			ch_user = EXCLUDED.ch_user,
			ch_date = EXCLUDED.ch_date`,
		s.ShipID, s.ShipPoint, s.Route, s.CarType, s.ApmDate, s.CrDate, s.BookingRoundID,
		s.DocStat, s.IsOnHold, s.DocStatBeforeHold, s.VenCode, s.CarLicense,
		s.CurrentGradeToAssign, s.ConfirmedByGrade, s.AssignedAt, []string(s.RejectedByVenCodes), s.ChUser, s.ChDate)
	if err != nil {
		return dispatcherr.Internal(err, "save shipment %s", s.ShipID)
	}
	return nil
}

func (t *pgTxWrapper) queryShipments(ctx context.Context, query string, args ...interface{}) ([]*gizmos.Shipment, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query shipments")
	}
	defer rows.Close()
	var out []*gizmos.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan shipment")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *pgTxWrapper) ListUnassigned(ctx context.Context, apmDate time.Time, warehouse string) ([]*gizmos.Shipment, error) {
	if apmDate.IsZero() {
		return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
			WHERE docstat = '01' AND is_on_hold = false AND ($1 = '' OR shippoint = $1)
			ORDER BY shipid`, warehouse)
	}
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE docstat = '01' AND is_on_hold = false AND apmdate::date = $1::date AND ($2 = '' OR shippoint = $2)
		ORDER BY shipid`, apmDate, warehouse)
}

func (t *pgTxWrapper) ListForVendor(ctx context.Context, grade gizmos.Grade, venCode string) ([]*gizmos.Shipment, error) {
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE (docstat = '02' AND current_grade_to_assign = $1)
		   OR (docstat = 'BC' AND NOT ($2 = ANY(rejected_by_vencodes)))
		ORDER BY shipid`, string(grade), venCode)
}

func (t *pgTxWrapper) ListHeld(ctx context.Context, warehouse string) ([]*gizmos.Shipment, error) {
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE is_on_hold = true AND ($1 = '' OR shippoint = $1) ORDER BY shipid`, warehouse)
}

func (t *pgTxWrapper) ListHeldAllWarehouses(ctx context.Context) ([]*gizmos.Shipment, error) {
	return t.ListHeld(ctx, "")
}

func (t *pgTxWrapper) ListByShipmentRound(ctx context.Context, roundID int64) ([]*gizmos.Shipment, error) {
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE booking_round_id = $1 ORDER BY shipid`, roundID)
}

func (t *pgTxWrapper) ListExpiredWaitingVendor(ctx context.Context, cutoff time.Time) ([]*gizmos.Shipment, error) {
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE docstat = '02' AND assigned_at IS NOT NULL AND assigned_at <= $1 ORDER BY shipid`, cutoff)
}

func (t *pgTxWrapper) ListExpiredBroadcast(ctx context.Context, cutoff time.Time) ([]*gizmos.Shipment, error) {
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE docstat = 'BC' AND assigned_at IS NOT NULL AND assigned_at <= $1 ORDER BY shipid`, cutoff)
}

func (t *pgTxWrapper) ListReadyForRound(ctx context.Context, shipPoint string, createdOn time.Time) ([]*gizmos.Shipment, error) {
	return t.queryShipments(ctx, `SELECT `+shipmentCols+` FROM shipments
		WHERE booking_round_id IS NULL AND is_on_hold = false AND shippoint = $1 AND crdate::date = $2::date
		ORDER BY shipid`, shipPoint, createdOn)
}

func (t *pgTxWrapper) ListShipmentDetails(ctx context.Context, shipID string) ([]*gizmos.ShipmentDetail, error) {
	rows, err := t.tx.Query(ctx, `SELECT doid, shipid, delivery_date, customer_id, customer_name, route, province, volume_cbm
		FROM shipment_details WHERE shipid = $1 ORDER BY doid`, shipID)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query shipment details")
	}
	defer rows.Close()
	var out []*gizmos.ShipmentDetail
	for rows.Next() {
		var d gizmos.ShipmentDetail
		if err := rows.Scan(&d.DOID, &d.ShipID, &d.DeliveryDate, &d.CustomerID, &d.CustomerName, &d.Route, &d.Province, &d.VolumeCBM); err != nil {
			return nil, dispatcherr.Internal(err, "scan shipment detail")
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// --- booking rounds --------------------------------------------------------

const roundCols = `id, round_date, round_time, warehouse_code, status, created_by, created_at, total_volume_cbm`

func scanRound(row pgx.Row) (*gizmos.BookingRound, error) {
	var r gizmos.BookingRound
	err := row.Scan(&r.ID, &r.RoundDate, &r.RoundTime, &r.WarehouseCode, &r.Status, &r.CreatedBy, &r.CreatedAt, &r.TotalVolumeCBM)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTxWrapper) GetRound(ctx context.Context, id int64) (*gizmos.BookingRound, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roundCols+` FROM booking_rounds WHERE id = $1`, id)
	r, err := scanRound(row)
	if err != nil {
		return nil, notFoundOr(err, "round %d not found", id)
	}
	return r, nil
}

// GetRoundForUpdate locks the round row, then the round's shipments in
// shipid order, honoring the lock order spec §5 mandates.
func (t *pgTxWrapper) GetRoundForUpdate(ctx context.Context, id int64) (*gizmos.BookingRound, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+roundCols+` FROM booking_rounds WHERE id = $1 FOR UPDATE`, id)
	r, err := scanRound(row)
	if err != nil {
		return nil, notFoundOr(err, "round %d not found", id)
	}
	rows, err := t.tx.Query(ctx, `SELECT `+shipmentCols+` FROM shipments WHERE booking_round_id = $1 ORDER BY shipid FOR UPDATE`, id)
	if err != nil {
		return nil, dispatcherr.Internal(err, "lock round %d shipments", id)
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan locked shipment")
		}
		r.Shipments = append(r.Shipments, s)
	}
	return r, rows.Err()
}

func (t *pgTxWrapper) ListRounds(ctx context.Context, date time.Time, warehouse string) ([]*gizmos.BookingRound, error) {
	var rows pgx.Rows
	var err error
	if date.IsZero() {
		rows, err = t.tx.Query(ctx, `SELECT `+roundCols+` FROM booking_rounds WHERE warehouse_code = $1 ORDER BY round_time`, warehouse)
	} else {
		rows, err = t.tx.Query(ctx, `SELECT `+roundCols+` FROM booking_rounds WHERE warehouse_code = $1 AND round_date::date = $2::date ORDER BY round_time`, warehouse, date)
	}
	if err != nil {
		return nil, dispatcherr.Internal(err, "query rounds")
	}
	defer rows.Close()
	var out []*gizmos.BookingRound
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan round")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dispatcherr.Internal(err, "iterate rounds")
	}
	for _, r := range out {
		shipments, err := t.ListByShipmentRound(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.Shipments = shipments
	}
	return out, nil
}

func (t *pgTxWrapper) ListRoundsPendingConfirmation(ctx context.Context) ([]*gizmos.BookingRound, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+roundCols+` FROM booking_rounds WHERE status = $1 ORDER BY id`, gizmos.RoundAwaitingConfirmation)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query pending rounds")
	}
	defer rows.Close()
	var out []*gizmos.BookingRound
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan round")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dispatcherr.Internal(err, "iterate rounds")
	}
	for _, r := range out {
		shipments, err := t.ListByShipmentRound(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.Shipments = shipments
	}
	return out, nil
}

func (t *pgTxWrapper) SaveRound(ctx context.Context, r *gizmos.BookingRound) error {
	if r.ID == 0 {
		err := t.tx.QueryRow(ctx, `INSERT INTO booking_rounds
			(round_date, round_time, warehouse_code, status, created_by, created_at, total_volume_cbm)
			VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			r.RoundDate, r.RoundTime, r.WarehouseCode, r.Status, r.CreatedBy, r.CreatedAt, r.TotalVolumeCBM).Scan(&r.ID)
		if err != nil {
			return dispatcherr.Internal(err, "insert round")
		}
		return nil
	}
	_, err := t.tx.Exec(ctx, `UPDATE booking_rounds SET
		round_date=$2, round_time=$3, warehouse_code=$4, status=$5, created_by=$6, created_at=$7, total_volume_cbm=$8
		WHERE id=$1`,
		r.ID, r.RoundDate, r.RoundTime, r.WarehouseCode, r.Status, r.CreatedBy, r.CreatedAt, r.TotalVolumeCBM)
	if err != nil {
		return dispatcherr.Internal(err, "update round %d", r.ID)
	}
	return nil
}

func (t *pgTxWrapper) DeleteRoundsForDay(ctx context.Context, date time.Time, warehouse string) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `DELETE FROM booking_rounds
		WHERE warehouse_code = $1 AND round_date::date = $2::date RETURNING id`, warehouse, date)
	if err != nil {
		return nil, dispatcherr.Internal(err, "delete rounds for day")
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dispatcherr.Internal(err, "scan deleted round id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *pgTxWrapper) DetachShipmentsFromRounds(ctx context.Context, roundIDs []int64) error {
	if len(roundIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `UPDATE shipments SET booking_round_id = NULL WHERE booking_round_id = ANY($1)`, roundIDs)
	if err != nil {
		return dispatcherr.Internal(err, "detach shipments from rounds")
	}
	return nil
}

func (t *pgTxWrapper) ListMasterRounds(ctx context.Context) ([]*gizmos.MasterBookingRound, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, round_time, round_name, active FROM master_booking_rounds WHERE active = true ORDER BY round_time`)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query master rounds")
	}
	defer rows.Close()
	var out []*gizmos.MasterBookingRound
	for rows.Next() {
		var m gizmos.MasterBookingRound
		if err := rows.Scan(&m.ID, &m.RoundTime, &m.RoundName, &m.Active); err != nil {
			return nil, dispatcherr.Internal(err, "scan master round")
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- cars ------------------------------------------------------------------

func scanCar(row pgx.Row) (*gizmos.Car, error) {
	var c gizmos.Car
	if err := row.Scan(&c.CarLicense, &c.OwnerVenCode, &c.CarType, &c.Status, &c.WillBeAvailableAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const carCols = `carlicense, owner_vencode, cartype, status, will_be_available_at`

func (t *pgTxWrapper) GetCar(ctx context.Context, carLicense string) (*gizmos.Car, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+carCols+` FROM cars WHERE carlicense = $1`, carLicense)
	c, err := scanCar(row)
	if err != nil {
		return nil, notFoundOr(err, "car %s not found", carLicense)
	}
	return c, nil
}

func (t *pgTxWrapper) GetCarForUpdate(ctx context.Context, carLicense string) (*gizmos.Car, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+carCols+` FROM cars WHERE carlicense = $1 FOR UPDATE`, carLicense)
	c, err := scanCar(row)
	if err != nil {
		return nil, notFoundOr(err, "car %s not found", carLicense)
	}
	return c, nil
}

func (t *pgTxWrapper) SaveCar(ctx context.Context, c *gizmos.Car) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO cars (carlicense, owner_vencode, cartype, status, will_be_available_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (carlicense) DO UPDATE SET
			owner_vencode = EXCLUDED.owner_vencode,
			cartype = EXCLUDED.cartype,
			status = EXCLUDED.status,
			will_be_available_at = EXCLUDED.will_be_available_at`,
		c.CarLicense, c.OwnerVenCode, c.CarType, c.Status, c.WillBeAvailableAt)
	if err != nil {
		return dispatcherr.Internal(err, "save car %s", c.CarLicense)
	}
	return nil
}

func (t *pgTxWrapper) ListActiveCarsByType(ctx context.Context, cartype string) ([]*gizmos.Car, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+carCols+` FROM cars WHERE status = $1 AND cartype = $2 ORDER BY carlicense`, gizmos.CarActive, cartype)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query active cars")
	}
	defer rows.Close()
	var out []*gizmos.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan car")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *pgTxWrapper) ListCarsByVendor(ctx context.Context, venCode string) ([]*gizmos.Car, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+carCols+` FROM cars WHERE owner_vencode = $1 ORDER BY carlicense`, venCode)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query vendor cars")
	}
	defer rows.Close()
	var out []*gizmos.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan car")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- vendors -----------------------------------------------------------

const vendorCols = `vencode, name, grade, last_assigned_at, active`

func scanVendor(row pgx.Row) (*gizmos.Vendor, error) {
	var v gizmos.Vendor
	if err := row.Scan(&v.VenCode, &v.Name, &v.Grade, &v.LastAssignedAt, &v.Active); err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *pgTxWrapper) GetVendor(ctx context.Context, venCode string) (*gizmos.Vendor, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+vendorCols+` FROM vendors WHERE vencode = $1`, venCode)
	v, err := scanVendor(row)
	if err != nil {
		return nil, notFoundOr(err, "vendor %s not found", venCode)
	}
	return v, nil
}

func (t *pgTxWrapper) GetVendorForUpdate(ctx context.Context, venCode string) (*gizmos.Vendor, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+vendorCols+` FROM vendors WHERE vencode = $1 FOR UPDATE`, venCode)
	v, err := scanVendor(row)
	if err != nil {
		return nil, notFoundOr(err, "vendor %s not found", venCode)
	}
	return v, nil
}

func (t *pgTxWrapper) SaveVendor(ctx context.Context, v *gizmos.Vendor) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO vendors (vencode, name, grade, last_assigned_at, active)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (vencode) DO UPDATE SET
			name = EXCLUDED.name, grade = EXCLUDED.grade,
			last_assigned_at = EXCLUDED.last_assigned_at, active = EXCLUDED.active`,
		v.VenCode, v.Name, v.Grade, v.LastAssignedAt, v.Active)
	if err != nil {
		return dispatcherr.Internal(err, "save vendor %s", v.VenCode)
	}
	return nil
}

func (t *pgTxWrapper) ListActiveVendors(ctx context.Context) ([]*gizmos.Vendor, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+vendorCols+` FROM vendors WHERE active = true ORDER BY vencode`)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query active vendors")
	}
	defer rows.Close()
	var out []*gizmos.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan vendor")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *pgTxWrapper) FirstByGrade(ctx context.Context, grade gizmos.Grade) (*gizmos.Vendor, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+vendorCols+` FROM vendors WHERE active = true AND grade = $1 ORDER BY vencode LIMIT 1`, grade)
	v, err := scanVendor(row)
	if err != nil {
		return nil, notFoundOr(err, "no active vendor of grade %s", grade)
	}
	return v, nil
}

// --- reference data ------------------------------------------------------

func (t *pgTxWrapper) GetRoute(ctx context.Context, code string) (*gizmos.Route, error) {
	var r gizmos.Route
	err := t.tx.QueryRow(ctx, `SELECT route_code, lead_time_days FROM routes WHERE route_code = $1`, code).Scan(&r.RouteCode, &r.LeadTimeDays)
	if err != nil {
		return nil, notFoundOr(err, "route %s not found", code)
	}
	return &r, nil
}

func (t *pgTxWrapper) GetWarehouse(ctx context.Context, code string) (*gizmos.Warehouse, error) {
	var w gizmos.Warehouse
	err := t.tx.QueryRow(ctx, `SELECT code, name, active FROM warehouses WHERE code = $1`, code).Scan(&w.Code, &w.Name, &w.Active)
	if err != nil {
		return nil, notFoundOr(err, "warehouse %s not found", code)
	}
	return &w, nil
}

func (t *pgTxWrapper) GetShipType(ctx context.Context, cartype string) (*gizmos.ShipType, error) {
	var st gizmos.ShipType
	err := t.tx.QueryRow(ctx, `SELECT cartype, description, active FROM ship_types WHERE cartype = $1`, cartype).Scan(&st.CarType, &st.Description, &st.Active)
	if err != nil {
		return nil, notFoundOr(err, "ship type %s not found", cartype)
	}
	return &st, nil
}

// --- users -----------------------------------------------------------------

const userCols = `id, username, role, display_name, active, vencode, push_token`

func scanUser(row pgx.Row) (*gizmos.User, error) {
	var u gizmos.User
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &u.DisplayName, &u.Active, &u.VenCode, &u.PushToken); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgTxWrapper) GetUser(ctx context.Context, username string) (*gizmos.User, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr(err, "user %s not found", username)
	}
	return u, nil
}

func (t *pgTxWrapper) GetUserByVenCode(ctx context.Context, venCode string) (*gizmos.User, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE vencode = $1`, venCode)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr(err, "user for vendor %s not found", venCode)
	}
	return u, nil
}

func (t *pgTxWrapper) ListUsersByRole(ctx context.Context, role gizmos.Role) ([]*gizmos.User, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+userCols+` FROM users WHERE role = $1 ORDER BY username`, role)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query users by role")
	}
	defer rows.Close()
	var out []*gizmos.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan user")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (t *pgTxWrapper) ListActiveVendorUsersByGrade(ctx context.Context, grade gizmos.Grade) ([]*gizmos.User, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+userCols+` FROM users u
		JOIN vendors v ON v.vencode = u.vencode
		WHERE u.role = 'vendor' AND u.active = true AND v.active = true AND v.grade = $1
		ORDER BY u.username`, grade)
	if err != nil {
		return nil, dispatcherr.Internal(err, "query active vendor users by grade")
	}
	defer rows.Close()
	var out []*gizmos.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dispatcherr.Internal(err, "scan user")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
