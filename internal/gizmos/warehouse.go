package gizmos

// Warehouse is a shipment's departure point (spec §3.1, Glossary "Shippoint").
type Warehouse struct {
	Code   string
	Name   string
	Active bool
}
