package gizmos

// ShipType is reference master data behind Car.CarType / Shipment.CarType,
// recovered from the original source's MShipType table (SPEC_FULL.md
// supplemented feature 4). Not part of spec.md's core contract; Car/Shipment
// still carry CarType as a plain string, this is only a validation lookup.
type ShipType struct {
	CarType     string
	Description string
	Active      bool
}
