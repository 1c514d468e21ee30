package gizmos

import "time"

// Route carries the lead time a shipment's truck is blocked for after the
// appointment (spec §3.1, Glossary "Lead time").
type Route struct {
	RouteCode    string
	LeadTimeDays int
}

// AvailableDateFrom computes the date a car committed against this route
// becomes free again: apmDate's date plus (leadtime_days - 1), per
// CarBook.commit_assignment (spec §4.2).
func (r *Route) AvailableDateFrom(apmDate time.Time) time.Time {
	d := apmDate.Truncate(24 * time.Hour)
	return d.AddDate(0, 0, r.LeadTimeDays-1)
}
