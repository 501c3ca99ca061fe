// Package copier replicates labeled issues across repos and mirrors their
// comments, driven by the generic internal/dispatcher worker pool (§4.3
// "Issue-Copier Worker"). Wires a gorilla/mux
// wiring and internal/dispatcher/dispatcher.go pool, same shape as
// internal/prworker.
package copier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	"github.com/Intrising/intrising-workspace-monitor/internal/dispatcher"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

// Config is everything the issue-copier worker needs to run standalone.
type Config struct {
	Port          int
	WebhookSecret string
	Document      *config.Document
	Auth          github.AuthProvider
	Workers       int
	QueueSize     int
}

type Server struct {
	cfg          Config
	store        *taskstore.Store
	disp         *dispatcher.Dispatcher[Job]
	router       *mux.Router
	commentDedup *ghwebhook.CommentDeduper
}

func NewServer(cfg Config, store *taskstore.Store) *Server {
	exec := &executor{store: store, auth: cfg.Auth, doc: cfg.Document}
	disp := dispatcher.New[Job](exec, dispatcher.Config{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	}, alwaysTerminal)

	s := &Server{cfg: cfg, store: store, disp: disp, commentDedup: ghwebhook.NewCommentDeduper(0)}
	s.router = mux.NewRouter()
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/issue-copies", s.handleListCopies).Methods("GET")
	s.router.HandleFunc("/api/issue-copies/stats", s.handleCopyStats).Methods("GET")
	s.router.HandleFunc("/api/stats", s.handleCopyStats).Methods("GET")
	s.router.HandleFunc("/api/comment-syncs", s.handleListCommentSyncs).Methods("GET")
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleCopyStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CopyRecordStats()
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"success": counts[taskstore.CopyStatusSuccess],
		"partial": counts[taskstore.CopyStatusPartial],
		"failed":  counts[taskstore.CopyStatusFailed],
		"total":   total,
	})
}

func (s *Server) handleListCopies(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.store.ListCopyRecords(limit, offset)
	if err != nil {
		http.Error(w, "unable to list copy records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListCommentSyncs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.store.ListCommentSyncs(limit, offset)
	if err != nil {
		http.Error(w, "unable to list comment syncs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

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
		log.Printf("[Issue Copier] listening on :%d", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.disp.Shutdown(ctx)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Issue Copier] encoding response: %v", err)
	}
}
