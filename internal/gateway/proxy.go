package gateway

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// proxyFor builds a reverse proxy to the worker that owns a UI path prefix
// (§4.1 "Proxied UI paths"), using stdlib httputil.ReverseProxy: no
// third-party reverse-proxy library appears anywhere in the pack, so this
// is the one ambient piece the gateway builds on the standard library
// rather than a dependency (see DESIGN.md, internal/gateway).
func (s *Server) proxyFor(prefix string) http.Handler {
	target := s.targetForPrefix(prefix)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target == "" {
			http.Error(w, "no worker configured for this path", http.StatusBadGateway)
			return
		}

		base, err := url.Parse(target)
		if err != nil {
			http.Error(w, "misconfigured worker URL", http.StatusBadGateway)
			return
		}

		proxy := httputil.NewSingleHostReverseProxy(base)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("[Gateway] proxy to %s failed: %v", target, err)
			http.Error(w, "worker unreachable", http.StatusBadGateway)
		}
		proxy.ServeHTTP(w, r)
	})
}

func (s *Server) targetForPrefix(prefix string) string {
	switch prefix {
	case "/pr-tasks":
		return s.cfg.PRReviewerURL
	case "/issue-copies":
		return s.cfg.IssueCopierURL
	case "/issue-scores", "/feedback-analytics":
		return s.cfg.IssueScorerURL
	default:
		return ""
	}
}
