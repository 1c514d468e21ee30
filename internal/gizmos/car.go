package gizmos

import "time"

type CarStatus string

const (
	CarActive   CarStatus = "active"
	CarInactive CarStatus = "inactive"
)

// Car is a specific truck owned by a Vendor (spec §3.1).
type Car struct {
	CarLicense        string
	OwnerVenCode      string
	CarType           string
	Status            CarStatus
	WillBeAvailableAt *time.Time // date only; nil means available now
}

// UsableOn reports whether the car can be used for a shipment that requires
// it by requiredDate: active, and either never booked or free by that date
// (spec §3.1/§4.2).
func (c *Car) UsableOn(requiredDate time.Time) bool {
	if c == nil || c.Status != CarActive {
		return false
	}
	if c.WillBeAvailableAt == nil {
		return true
	}
	return !c.WillBeAvailableAt.After(requiredDate)
}
