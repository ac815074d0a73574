package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware rejects requests without a valid bearer token and stores the
// verified Principal in the request context.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, http.StatusUnauthorized, "invalid_request", "missing bearer token")
				return
			}
			p, err := v.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid_token", "invalid jwt")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAnyRole must run after Middleware.
func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "invalid_request", "missing principal")
				return
			}
			if !p.HasAnyRole(roles...) {
				deny(w, http.StatusForbidden, "insufficient_scope", "missing required role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": desc})
}
