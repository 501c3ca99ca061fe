// Package scorer scores issues and comments along four dimensions, posts
// score comments, and mines user feedback into calibration patterns that
// condition future prompts (§4.4 "Issue-Scorer Worker"). Same
// gorilla/mux + internal/dispatcher shape as internal/prworker and
// internal/copier.
package scorer

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
	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

// Config is everything the issue-scorer worker needs to run standalone.
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
	cfg          Config
	store        *taskstore.Store
	disp         *dispatcher.Dispatcher[Job]
	router       *mux.Router
	commentDedup *ghwebhook.CommentDeduper
}

func NewServer(cfg Config, store *taskstore.Store) *Server {
	exec := &executor{store: store, auth: cfg.Auth, doc: cfg.Document, aiCfg: cfg.AICLI}
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
	s.router.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/api/scores", s.handleListScores).Methods("GET")
	s.router.HandleFunc("/api/scores/{id}", s.handleGetScore).Methods("GET")
	s.router.HandleFunc("/api/scores/{id}/feedback", s.handleFeedback).Methods("POST")
	s.router.HandleFunc("/api/feedback/snapshot", s.handleSnapshot).Methods("POST")
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.ScoreRecordStats()
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"queued":     counts[taskstore.ScoreStatusQueued],
		"processing": counts[taskstore.ScoreStatusProcessing],
		"completed":  counts[taskstore.ScoreStatusCompleted],
		"failed":     counts[taskstore.ScoreStatusFailed],
		"total":      total,
	})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.store.ListScoreRecords(limit, offset)
	if err != nil {
		http.Error(w, "unable to list scores", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := s.store.GetScoreRecord(id)
	if err == taskstore.ErrNotFound {
		http.Error(w, "score not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "unable to fetch score", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleFeedback implements §4.4 "Ingestion": append feedback synchronously,
// then analyze it on a detached goroutine so the HTTP response never blocks
// on the AI call.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Feedback == "" {
		http.Error(w, "feedback required", http.StatusBadRequest)
		return
	}

	if _, err := s.store.GetScoreRecord(id); err == taskstore.ErrNotFound {
		http.Error(w, "score not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "unable to fetch score", http.StatusInternalServerError)
		return
	}

	if err := s.store.AppendUserFeedback(id, body.Feedback); err != nil {
		http.Error(w, "unable to record feedback", http.StatusInternalServerError)
		return
	}

	go s.analyzeFeedbackAsync(id, body.Feedback)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) analyzeFeedbackAsync(scoreID, feedback string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	analysis := analyzeFeedback(ctx, s.cfg.AICLI, feedback)

	if _, err := s.store.UpsertFeedbackPattern(
		patternTypeOf(analysis.FeedbackType),
		dimensionOf(analysis.Dimension),
		float64(analysis.ScoreDeviation),
		feedback,
		analysis.IdentifiedIssue,
		analysis.SuggestedAdjustment,
	); err != nil {
		log.Printf("[Issue Scorer] updating feedback pattern for %s: %v", scoreID, err)
	}
}

// handleSnapshot implements §4.4 "Snapshots": a periodic aggregate, not
// required for correctness of scoring itself.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	window := time.Duration(s.cfg.Document.IssueScoring.FeedbackWindowDays) * 24 * time.Hour
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}

	patterns, err := s.store.ListFeedbackPatternsSince(time.Now().Add(-window), s.cfg.Document.IssueScoring.FeedbackMinOccurrences)
	if err != nil {
		http.Error(w, "unable to list feedback patterns", http.StatusInternalServerError)
		return
	}

	scores, err := s.store.ListScoreRecords(500, 0)
	if err != nil {
		http.Error(w, "unable to list scores", http.StatusInternalServerError)
		return
	}

	snap := computeSnapshot(patterns, scores, time.Now())
	if err := s.store.CreateFeedbackSnapshot(snap); err != nil {
		http.Error(w, "unable to store snapshot", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
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
		log.Printf("[Issue Scorer] listening on :%d", s.cfg.Port)
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

func patternTypeOf(s string) taskstore.PatternType {
	switch s {
	case string(taskstore.PatternTooHarsh), string(taskstore.PatternTooLenient), string(taskstore.PatternMissedIssue),
		string(taskstore.PatternGoodFeedback), string(taskstore.PatternUnclear):
		return taskstore.PatternType(s)
	default:
		return taskstore.PatternOther
	}
}

func dimensionOf(s string) taskstore.Dimension {
	switch s {
	case string(taskstore.DimensionFormat), string(taskstore.DimensionContent),
		string(taskstore.DimensionClarity), string(taskstore.DimensionActionability):
		return taskstore.Dimension(s)
	default:
		return taskstore.DimensionOverall
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
		log.Printf("[Issue Scorer] encoding response: %v", err)
	}
}
