// Mnemonic:	dispatcherr
// Abstract:	Typed error kinds surfaced at the dispatch-system boundary
//		(spec §7). Generalizes tegu's "(state error)" named-return
//		convention (managers/res_mgr.go: Add_res, Del_res, Get_res) into
//		wrapped sentinel errors usable with errors.Is/errors.As.
package dispatcherr

import (
	"errors"
	"fmt"
)

// Kind is one of the six error kinds the spec defines at the component
// boundary. internal/httpapi maps a Kind to an HTTP status and the
// TimeoutWorker logs a failed tick; components never swallow an error silently.
type Kind int

const (
	// KindNotFound: shipment, round, vendor, or car id does not exist.
	KindNotFound Kind = iota
	// KindForbidden: role does not permit the action.
	KindForbidden
	// KindStateConflict: FSM precondition fails.
	KindStateConflict
	// KindConflict: car is not available, or shipment already in a round.
	KindConflict
	// KindInvalidInput: missing required fields, malformed time, invalid hold request.
	KindInvalidInput
	// KindInternal: DB/notifier anomaly; caller should retry.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindStateConflict:
		return "StateConflict"
	case KindConflict:
		return "Conflict"
	case KindInvalidInput:
		return "InvalidInput"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every component returns at its boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func new_(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error       { return new_(KindNotFound, format, args...) }
func Forbidden(format string, args ...interface{}) *Error      { return new_(KindForbidden, format, args...) }
func StateConflict(format string, args ...interface{}) *Error  { return new_(KindStateConflict, format, args...) }
func Conflict(format string, args ...interface{}) *Error       { return new_(KindConflict, format, args...) }
func InvalidInput(format string, args ...interface{}) *Error   { return new_(KindInvalidInput, format, args...) }

// Internal wraps cause as a KindInternal error; callers SHOULD retry per spec §7.
func Internal(cause error, format string, args ...interface{}) *Error {
	e := new_(KindInternal, format, args...)
	e.Err = cause
	return e
}

// Is reports whether err is a dispatcherr.Error of kind k.
func Is(err error, k Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == k
	}
	return false
}
