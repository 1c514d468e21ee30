package gizmos

import "time"

// Vendor is a graded carrier in the dispatch pool (spec §3.1).
type Vendor struct {
	VenCode        string
	Name           string
	Grade          Grade
	LastAssignedAt *time.Time // nil treated as -infinity for ranking tie-breaks
	Active         bool
}

// Mk_vendor constructs a Vendor, mirroring tegu's Mk_pledge-style constructor
// naming (gizmos/pledge.go).
func Mk_vendor(venCode, name string, grade Grade, active bool) *Vendor {
	return &Vendor{VenCode: venCode, Name: name, Grade: grade, Active: active}
}

// Eligible reports whether the vendor is in service at all; car/cartype
// eligibility is layered on top by the Allocator (spec §4.5).
func (v *Vendor) Eligible() bool {
	return v != nil && v.Active
}
