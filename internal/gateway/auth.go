package gateway

import (
	"crypto/subtle"
	"net/http"
)

// requireAuth gates every non-/health, non-/webhook endpoint behind HTTP
// Basic auth (§4.1). When no username is configured, auth is disabled,
// the explicit insecure bootstrap mode of §9, surfaced via /health's
// auth_enabled flag rather than hidden.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.AuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !constantTimeEqual(user, s.cfg.WebUsername) || !constantTimeEqual(pass, s.cfg.WebPassword) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gateway"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
