package gateway

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

//go:embed templates/*
var dashboardTemplatesFS embed.FS

var dashboardTemplates = template.Must(
	template.New("dashboard.html").Funcs(template.FuncMap{
		"statusIcon":        statusIcon,
		"reviewStatusColor": reviewStatusColor,
		"copyStatusColor":   copyStatusColor,
		"scoreStatusColor":  scoreStatusColor,
	}).ParseFS(dashboardTemplatesFS, "templates/*.html"),
)

// dashboardPage is what "dashboard.html" renders, one section per worker
// (§6 "GET / → HTML dashboard"). Each section is fetched live from its
// owning worker's read-only /api/* surface rather than a local store,
// since the gateway has no direct database access to any worker.
type dashboardPage struct {
	ReviewTasks          []*taskstore.ReviewTask
	ReviewTasksReachable bool

	CopyRecords          []*taskstore.CopyRecord
	CopyRecordsReachable bool

	ScoreRecords          []*taskstore.ScoreRecord
	ScoreRecordsReachable bool
}

func statusIcon(status any) string {
	switch status {
	case taskstore.ReviewStatusQueued, taskstore.CopyStatusPartial, taskstore.ScoreStatusQueued:
		return "○"
	case taskstore.ReviewStatusProcessing, taskstore.ScoreStatusProcessing:
		return "⟳"
	case taskstore.ReviewStatusCompleted, taskstore.CopyStatusSuccess, taskstore.ScoreStatusCompleted:
		return "✓"
	case taskstore.ReviewStatusFailed, taskstore.CopyStatusFailed, taskstore.ScoreStatusFailed:
		return "✗"
	default:
		return "○"
	}
}

func reviewStatusColor(status taskstore.ReviewStatus) string {
	switch status {
	case taskstore.ReviewStatusQueued:
		return "#6c757d"
	case taskstore.ReviewStatusProcessing:
		return "#0d6efd"
	case taskstore.ReviewStatusCompleted:
		return "#198754"
	case taskstore.ReviewStatusFailed:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

func copyStatusColor(status taskstore.CopyStatus) string {
	switch status {
	case taskstore.CopyStatusSuccess:
		return "#198754"
	case taskstore.CopyStatusPartial:
		return "#fd7e14"
	case taskstore.CopyStatusFailed:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

func scoreStatusColor(status taskstore.ScoreStatus) string {
	switch status {
	case taskstore.ScoreStatusQueued:
		return "#6c757d"
	case taskstore.ScoreStatusProcessing:
		return "#0d6efd"
	case taskstore.ScoreStatusCompleted:
		return "#198754"
	case taskstore.ScoreStatusFailed:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

// handleRoot renders the HTML dashboard (§6 "GET / → HTML dashboard"),
// fetching each worker's list endpoint the same way handleDashboard fetches
// their stats. Unreachable workers get their own section flagged rather
// than failing the whole page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	page := dashboardPage{}

	if err := s.fetchJSON(r.Context(), s.cfg.PRReviewerURL+"/api/tasks", &page.ReviewTasks); err == nil {
		page.ReviewTasksReachable = true
	}
	if err := s.fetchJSON(r.Context(), s.cfg.IssueCopierURL+"/api/issue-copies", &page.CopyRecords); err == nil {
		page.CopyRecordsReachable = true
	}
	if err := s.fetchJSON(r.Context(), s.cfg.IssueScorerURL+"/api/scores", &page.ScoreRecords); err == nil {
		page.ScoreRecordsReachable = true
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplates.ExecuteTemplate(w, "dashboard.html", page); err != nil {
		log.Printf("[Gateway] rendering dashboard: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) fetchJSON(parent context.Context, url string, out any) error {
	if url == "" {
		return errors.New("no worker configured")
	}

	ctx, cancel := context.WithTimeout(parent, dashboardFanoutTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
