package httpapi

import (
	"net/http"
	"strings"

	"findsub/marketplace-service/internal/identity"
)

const bearerPrefix = "Bearer "

// authenticate resolves the caller and stores it in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			actor identity.Actor
			err   error
		)
		if h.verifier != nil {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			actor, err = h.verifier.Verify(strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix)))
		} else {
			actor, err = identity.FromHeaders(r.Header.Get(identity.HeaderUserID), r.Header.Get(identity.HeaderUserRole))
		}
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
	})
}

// actorFrom returns the caller placed by authenticate.
func actorFrom(r *http.Request) identity.Actor {
	a, _ := identity.FromContext(r.Context())
	return a
}
