// Mnemonic:	shipment
// Abstract:	The Shipment domain object and its pure FSM (ShipmentFSM,
//		spec §4.3). Mirrors the "mutable domain struct + Mk_X constructor"
//		idiom of gizmos/pledge.go, generalized from a bandwidth pledge to a
//		freight shipment.
package gizmos

import "time"

// Shipment is identified by ShipID and carries the full lifecycle state
// described in spec §3.1.
type Shipment struct {
	ShipID    string
	ShipPoint string // warehouse code
	Route     string
	CarType   string
	ApmDate   time.Time
	CrDate    time.Time

	BookingRoundID *int64
	DocStat        DocStat
	IsOnHold       bool

	DocStatBeforeHold *DocStat

	VenCode              *string
	CarLicense           *string
	CurrentGradeToAssign *Grade
	ConfirmedByGrade     *Grade
	AssignedAt           *time.Time

	RejectedByVenCodes VenCodeSet

	ChUser string
	ChDate *time.Time
}

// Mk_shipment constructs a freshly created shipment in WaitingRound, the
// only state a shipment is ever created into (spec §3.4).
func Mk_shipment(shipID, shipPoint, route, cartype string, apmDate time.Time, crUser string) *Shipment {
	return &Shipment{
		ShipID:    shipID,
		ShipPoint: shipPoint,
		Route:     route,
		CarType:   cartype,
		ApmDate:   apmDate,
		CrDate:    time.Now(),
		DocStat:   DocWaitingRound,
		ChUser:    crUser,
	}
}

// Clone returns a deep-enough copy for ShipmentFSM.Next to mutate without
// aliasing the caller's pointers; Store implementations should always load a
// fresh copy per transaction, but Next defends against callers who don't.
func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	cp := *s
	if s.BookingRoundID != nil {
		v := *s.BookingRoundID
		cp.BookingRoundID = &v
	}
	if s.DocStatBeforeHold != nil {
		v := *s.DocStatBeforeHold
		cp.DocStatBeforeHold = &v
	}
	if s.VenCode != nil {
		v := *s.VenCode
		cp.VenCode = &v
	}
	if s.CarLicense != nil {
		v := *s.CarLicense
		cp.CarLicense = &v
	}
	if s.CurrentGradeToAssign != nil {
		v := *s.CurrentGradeToAssign
		cp.CurrentGradeToAssign = &v
	}
	if s.ConfirmedByGrade != nil {
		v := *s.ConfirmedByGrade
		cp.ConfirmedByGrade = &v
	}
	if s.AssignedAt != nil {
		v := *s.AssignedAt
		cp.AssignedAt = &v
	}
	if s.ChDate != nil {
		v := *s.ChDate
		cp.ChDate = &v
	}
	cp.RejectedByVenCodes = append(VenCodeSet(nil), s.RejectedByVenCodes...)
	return &cp
}

// IsExpiredWaitingVendor reports whether a docstat=02 shipment has sat past
// T_resp without the chosen grade confirming (spec §4.3 Timeout02, §8
// boundary property: now-assigned_at == T_resp is expired).
func (s *Shipment) IsExpiredWaitingVendor(now time.Time, tResp time.Duration) bool {
	return s.DocStat == DocWaitingVendor && s.AssignedAt != nil && !s.AssignedAt.Add(tResp).After(now)
}

// IsExpiredBroadcast reports whether a docstat=BC shipment has sat past
// T_resp without any vendor claiming it (spec §4.3 TimeoutBC).
func (s *Shipment) IsExpiredBroadcast(now time.Time, tResp time.Duration) bool {
	return s.DocStat == DocBroadcast && s.AssignedAt != nil && !s.AssignedAt.Add(tResp).After(now)
}
