package scorer

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Intrising/intrising-workspace-monitor/internal/dispatcher"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

// handleWebhook implements §4.4's public contract: accepts issues and
// issue_comment events on configured target repos, gates on trigger
// action, classifies content type, and enqueues a score Job.
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

func (s *Server) targetsRepo(repo string) bool {
	for _, r := range s.cfg.Document.IssueScoring.TargetRepos {
		if r == repo {
			return true
		}
	}
	return false
}

func (s *Server) handleIssuesEvent(w http.ResponseWriter, body []byte) {
	var event ghwebhook.IssuesEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	repo := event.Repository.FullName
	if !s.targetsRepo(repo) || event.Issue.IsPullRequest() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !containsString(s.cfg.Document.IssueScoring.Triggers, event.Action) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	labels := event.Issue.LabelNames()
	job := Job{
		Repo:        repo,
		IssueNumber: event.Issue.Number,
		ContentType: ClassifyIssue(labels, event.Issue.Body),
		Title:       event.Issue.Title,
		Body:        event.Issue.Body,
		Author:      event.Issue.User.Login,
		Labels:      labels,
		IssueURL:    event.Issue.HTMLURL,
	}
	s.enqueueOrRespond(w, job)
}

func (s *Server) handleIssueCommentEvent(w http.ResponseWriter, body []byte) {
	var event ghwebhook.IssueCommentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	repo := event.Repository.FullName
	if !s.targetsRepo(repo) || event.Issue.IsPullRequest() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !containsString(s.cfg.Document.IssueScoring.CommentTriggers, event.Action) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !s.commentDedup.MarkIfNew(event.Comment.ID) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	job := Job{
		Repo:        repo,
		IssueNumber: event.Issue.Number,
		CommentID:   event.Comment.ID,
		ContentType: taskstore.ContentTypeComment,
		Title:       event.Issue.Title,
		Body:        event.Comment.Body,
		Author:      event.Comment.User.Login,
		IssueURL:    event.Issue.HTMLURL,
	}
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
