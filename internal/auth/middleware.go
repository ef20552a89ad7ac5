package auth

import (
	"net/http"
	"strings"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Middleware parses the Bearer token and stores the actor in the request
// context. Requests without a valid token are rejected.
func Middleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			actor, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireRoles gates a route to the listed roles.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
