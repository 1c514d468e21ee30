package gizmos

// DocStat is a shipment's lifecycle state (spec §3.2). Kept as the original
// system's 2-character code rather than a pure Go iota so the Store's JSON/
// SQL representation matches the schema verbatim.
type DocStat string

const (
	DocWaitingRound       DocStat = "01"
	DocWaitingVendor      DocStat = "02"
	DocVendorConfirmed    DocStat = "03"
	DocDispatcherAssigned DocStat = "04"
	DocCanceled           DocStat = "06"
	DocBroadcast          DocStat = "BC"
	DocRejectedAll        DocStat = "RJ"
	DocHold               DocStat = "HD"
)

// Terminal reports whether d ends a booking cycle (04, 06 or RJ). A 06 or RJ
// shipment can still be restarted by RequestBooking, and an RJ shipment by
// ManualAssign; 04 accepts no further event.
func (d DocStat) Terminal() bool {
	switch d {
	case DocDispatcherAssigned, DocCanceled, DocRejectedAll:
		return true
	default:
		return false
	}
}

func (d DocStat) String() string { return string(d) }
