// Mnemonic:	context
// Abstract:	Principal extraction. Authentication itself is out of scope
//		(spec §1 "Non-goals"): this package trusts an upstream proxy/gateway
//		to have already authenticated the caller and to forward identity in
//		plain headers, the same trust boundary tegu's http_api.go assumes
//		for its "must be issued from localhost" admin commands.
package httpapi

import (
	"context"
	"net/http"

	"github.com/freightrelay/dispatchd/internal/gizmos"
)

type principalKey struct{}

// Principal is the authenticated caller attached to the request context by
// principalMiddleware.
type Principal struct {
	Username string
	Role     gizmos.Role
	VenCode  string // set when Role == RoleVendor
}

func principalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Principal{
			Username: r.Header.Get("X-User"),
			Role:     gizmos.Role(r.Header.Get("X-Role")),
			VenCode:  r.Header.Get("X-Vencode"),
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
