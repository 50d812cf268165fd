package middleware

import (
	"net/http"

	"github.com/barangku/service/internal/auth"
	"github.com/barangku/service/internal/response"
)

// Identify returns middleware that resolves the Authorization header through
// authn and injects the identity into the request context. A missing header
// passes through anonymously; a header that fails authentication is a 401.
func Identify(authn auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := authn.Authenticate(r.Context(), header)
			if err != nil {
				response.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireIdentity rejects requests that reached it without an identity.
// It must run after Identify.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			response.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
