package middleware

import (
	"net/http"

	"github.com/go-chi/render"
)

// AuthHeader carries the shared PIN, compared as plain string equality.
const AuthHeader = "X-Auth-Token"

// Auth rejects requests whose PIN header does not match the configured
// secret, before any provider call can happen. Webhook routes are
// mounted outside this middleware; they authenticate with their own
// query secret.
func Auth(pin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(AuthHeader) != pin {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
