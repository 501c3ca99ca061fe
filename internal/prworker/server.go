// Package prworker turns pull_request webhooks into queued AI code reviews,
// driven by the generic internal/dispatcher worker pool and posted back via
// internal/githubapi (§4.2 "PR-Review Worker"). Wires a gorilla/mux router
// backed by the internal/dispatcher worker pool.
package prworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Intrising/intrising-workspace-monitor/internal/aicli"
	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	"github.com/Intrising/intrising-workspace-monitor/internal/dispatcher"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

// Config is everything the PR-review worker needs to run standalone.
type Config struct {
	Port          int
	WebhookSecret string
	Document      *config.Document
	Auth          github.AuthProvider
	AICLI         aicli.Config
	Workers       int
	QueueSize     int
}

type Server struct {
	cfg    Config
	store  *taskstore.Store
	disp   *dispatcher.Dispatcher[Job]
	router *mux.Router
}

func NewServer(cfg Config, store *taskstore.Store) *Server {
	if cfg.AICLI.Timeout <= 0 && cfg.Document != nil {
		cfg.AICLI.Timeout = time.Duration(cfg.Document.Review.ModelTimeoutS) * time.Second
	}

	exec := &executor{store: store, auth: cfg.Auth, doc: cfg.Document, aiCfg: cfg.AICLI}
	disp := dispatcher.New[Job](exec, dispatcher.Config{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	}, alwaysTerminal)

	s := &Server{cfg: cfg, store: store, disp: disp}
	s.router = mux.NewRouter()
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/api/tasks", s.handleListTasks).Methods("GET")
	s.router.HandleFunc("/api/tasks/{id}", s.handleGetTask).Methods("GET")
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.ReviewTaskStats()
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"queued":     counts[taskstore.ReviewStatusQueued],
		"processing": counts[taskstore.ReviewStatusProcessing],
		"completed":  counts[taskstore.ReviewStatusCompleted],
		"failed":     counts[taskstore.ReviewStatusFailed],
		"total":      total,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := taskstore.ReviewStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	tasks, err := s.store.ListReviewTasks(status, limit, offset)
	if err != nil {
		http.Error(w, "unable to list tasks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, err := s.store.GetReviewTask(id)
	if err == taskstore.ErrNotFound {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "unable to fetch task", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, task)
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
		log.Printf("[PR Reviewer] listening on :%d", s.cfg.Port)
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
		log.Printf("[PR Reviewer] encoding response: %v", err)
	}
}
