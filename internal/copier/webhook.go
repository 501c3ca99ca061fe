package copier

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Intrising/intrising-workspace-monitor/internal/dispatcher"
	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

// handleWebhook implements §4.3's public contract: accepts issues and
// issue_comment events from the configured source repo, gates on trigger
// action, and enqueues a replication or mirror Job. Responds 202 with an
// accepted status on enqueue, 200 {status: ignored} when a gate drops the
// event, 503 when the pool queue is full so GitHub retries delivery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("X-Hub-Signature-256")
	if err := ghwebhook.ValidateSignatureHeader(sig); err != nil || !ghwebhook.VerifySignature(body, sig, s.cfg.WebhookSecret) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "signature"})
		return
	}

	switch r.Header.Get("X-GitHub-Event") {
	case "issues":
		s.handleIssuesEvent(w, body)
	case "issue_comment":
		s.handleIssueCommentEvent(w, body)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (s *Server) handleIssuesEvent(w http.ResponseWriter, body []byte) {
	var event ghwebhook.IssuesEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	repo := event.Repository.FullName
	if repo != s.cfg.Document.IssueCopy.SourceRepo || event.Issue.IsPullRequest() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !containsString(s.cfg.Document.IssueCopy.Triggers, event.Action) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	job := Job{Kind: JobKindIssue, SourceRepo: repo, Issue: event.Issue}
	s.enqueueOrRespond(w, job)
}

func (s *Server) handleIssueCommentEvent(w http.ResponseWriter, body []byte) {
	var event ghwebhook.IssueCommentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	repo := event.Repository.FullName
	if repo != s.cfg.Document.IssueCopy.SourceRepo || event.Issue.IsPullRequest() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if event.Action != "created" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !s.commentDedup.MarkIfNew(event.Comment.ID) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	job := Job{Kind: JobKindComment, SourceRepo: repo, Issue: event.Issue, Comment: event.Comment}
	s.enqueueOrRespond(w, job)
}

func (s *Server) enqueueOrRespond(w http.ResponseWriter, job Job) {
	if err := s.disp.Enqueue(job); err != nil {
		if err == dispatcher.ErrQueueFull {
			http.Error(w, "queue full", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "worker shutting down", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
