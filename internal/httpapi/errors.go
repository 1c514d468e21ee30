// Mnemonic:	errors
// Abstract:	Maps internal/dispatcherr Kinds onto HTTP status codes and a
//		uniform JSON error body (spec §7), generalizing tegu's
//		http_api.go Jreason/Jerror helper style.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/freightrelay/dispatchd/internal/dispatcherr"
	"github.com/freightrelay/dispatchd/internal/dlog"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := dispatcherr.KindInternal
	var de *dispatcherr.Error
	if e, ok := err.(*dispatcherr.Error); ok {
		de = e
	}
	if de != nil {
		kind = de.Kind
		switch kind {
		case dispatcherr.KindNotFound:
			status = http.StatusNotFound
		case dispatcherr.KindForbidden:
			status = http.StatusForbidden
		case dispatcherr.KindStateConflict, dispatcherr.KindConflict:
			status = http.StatusConflict
		case dispatcherr.KindInvalidInput:
			status = http.StatusBadRequest
		case dispatcherr.KindInternal:
			status = http.StatusInternalServerError
		}
	}
	if status == http.StatusInternalServerError {
		dlog.For("httpapi").Errorw("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return dispatcherr.InvalidInput("malformed request body: %v", err)
	}
	return nil
}
