package gizmos

import "time"

// ShipmentDetail is a delivery-line detail row attached to a Shipment,
// recovered from the original source's DOH table (SPEC_FULL.md supplemented
// feature 3). Summed volume feeds BookingRound.TotalVolumeCBM.
type ShipmentDetail struct {
	DOID         string
	ShipID       string
	DeliveryDate time.Time
	CustomerID   string
	CustomerName string
	Route        string
	Province     string
	VolumeCBM    float64
}

// SumVolume totals the volume of a set of details.
func SumVolume(details []*ShipmentDetail) float64 {
	var total float64
	for _, d := range details {
		total += d.VolumeCBM
	}
	return total
}
