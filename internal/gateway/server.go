// Package gateway implements the single public ingress of §4.1: webhook
// verification and routing, dashboard aggregation, and Basic-auth-gated
// proxying to the three worker services. Wires a gorilla/mux router the
// same way each worker does, generalized from a single in-process
// executor to HTTP fan-out across worker base URLs.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
)

// Config is everything the gateway needs to route and authenticate.
type Config struct {
	Port int

	WebhookSecret string
	WebUsername   string
	WebPassword   string

	PRReviewerURL  string
	IssueCopierURL string
	IssueScorerURL string

	// Document carries the operational routing rules (source_repo,
	// target_repos) the gateway needs to decide which workers a webhook
	// is forwarded to (§4.1 routing table).
	Document *config.Document
}

// AuthEnabled mirrors config.Config.AuthEnabled for the gateway's own
// Basic-auth decision (§4.1/§9 "insecure bootstrap mode").
func (c Config) AuthEnabled() bool {
	return c.WebUsername != ""
}

// Server wires the gateway's HTTP surface: POST /webhook, GET /health,
// GET / (HTML dashboard), GET /api/dashboard, and reverse-proxied UI
// paths, all behind Basic auth except /health and /webhook.
type Server struct {
	cfg        Config
	httpClient *http.Client
	router     *mux.Router
}

func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	s.router = mux.NewRouter()
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/", s.requireAuth(http.HandlerFunc(s.handleRoot))).Methods("GET")
	s.router.Handle("/api/dashboard", s.requireAuth(http.HandlerFunc(s.handleDashboard))).Methods("GET")

	for _, prefix := range []string{"/pr-tasks", "/issue-copies", "/issue-scores", "/feedback-analytics"} {
		s.router.PathPrefix(prefix).Handler(s.requireAuth(s.proxyFor(prefix)))
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"auth_enabled": s.cfg.AuthEnabled(),
	})
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// performs a graceful shutdown. Takes a context instead of wiring its own
// signal.Notify; cmd/gateway/main.go owns that.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Gateway] listening on :%d", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Gateway] encoding response: %v", err)
	}
}
