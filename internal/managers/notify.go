// Mnemonic:	notify
// Abstract:	Notifier — best-effort push fan-out (spec §6.3). Shaped after
//		original_source/app/core/firebase_service.py's
//		send_fcm_notification(token, title, body, data), but this repo has
//		no Firebase SDK in its dependency pack, so the transport is a
//		pluggable HTTP sender retried with cenkalti/backoff/v4, matching
//		the "fire and forget, logged not bubbled" rule of spec §5/§7.
package managers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/freightrelay/dispatchd/internal/dlog"
)

// Notifier pushes a best-effort message to a single recipient. Implementations
// must never block the caller's transaction and must never return an error
// that the caller is expected to act on — failures are logged internally.
type Notifier interface {
	Push(ctx context.Context, recipientToken, title, body string, data map[string]string)
}

// NoopNotifier discards every push; used in tests and when no push
// credentials are configured.
type NoopNotifier struct{}

func (NoopNotifier) Push(ctx context.Context, recipientToken, title, body string, data map[string]string) {
}

// HTTPNotifier posts to a single webhook endpoint shaped like a generic FCM
// send call. Each Push is dispatched on its own goroutine so the caller never
// waits on network I/O (spec §5 "Notifier calls are fire-and-forget").
type HTTPNotifier struct {
	Endpoint   string
	AuthHeader string
	Client     *http.Client
}

func NewHTTPNotifier(endpoint, authHeader string) *HTTPNotifier {
	return &HTTPNotifier{
		Endpoint:   endpoint,
		AuthHeader: authHeader,
		Client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type pushPayload struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (n *HTTPNotifier) Push(ctx context.Context, recipientToken, title, body string, data map[string]string) {
	if recipientToken == "" {
		return
	}
	log := dlog.For("notify")
	go func() {
		payload, err := json.Marshal(pushPayload{Token: recipientToken, Title: title, Body: body, Data: data})
		if err != nil {
			log.Errorw("marshal push payload", "err", err)
			return
		}

		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		op := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(payload))
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")
			if n.AuthHeader != "" {
				req.Header.Set("Authorization", n.AuthHeader)
			}
			resp, err := n.Client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return dispatcherrTransient(resp.StatusCode)
			}
			return nil
		}
		if err := backoff.Retry(op, bo); err != nil {
			log.Warnw("push delivery failed, dropping", "recipient", recipientToken, "err", err)
		}
	}()
}

type transientStatus struct{ code int }

func (e *transientStatus) Error() string { return "transient http status" }

func dispatcherrTransient(code int) error { return &transientStatus{code: code} }

// FanOut pushes the same message to every token in tokens, skipping empty
// ones. The managers in this package do not call it; they push to each
// user's token in their own loops.
func FanOut(ctx context.Context, n Notifier, tokens []string, title, body string, data map[string]string) {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		n.Push(ctx, tok, title, body, data)
	}
}
