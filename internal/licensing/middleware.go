package licensing

import (
	"net/http"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// gateSkipPaths are reachable without a valid license so tenants can sign in
// and activate one.
var gateSkipPaths = map[string]struct{}{
	"/healthz":          {},
	"/metrics":          {},
	"/auth/login":       {},
	"/license/activate": {},
	"/license/status":   {},
}

// Gate rejects requests from organizations without a valid license.
func Gate(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := gateSkipPaths[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := service.Validate(r.Context(), actor.OrganizationID); err != nil {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "license inactive or expired")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
