package prworker

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Intrising/intrising-workspace-monitor/internal/dispatcher"
	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

// handleWebhook implements §4.2's public contract: accepts pull_request
// events, applies the trigger/draft/already-labeled gates, upserts a
// ReviewTask and enqueues it. Responds 202 with task_id on accept, 200
// {status: ignored} when a gate drops the event, 503 when the pool queue
// is full so GitHub retries delivery.
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

	if r.Header.Get("X-GitHub-Event") != "pull_request" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var event ghwebhook.PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if !s.gateAccepts(event) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	repo := event.Repository.FullName
	task, shouldEnqueue, err := s.store.UpsertReviewTask(repo, event.Number, event.PullRequest.Title, event.PullRequest.User.Login, event.PullRequest.HTMLURL)
	if err != nil {
		http.Error(w, "unable to record task", http.StatusInternalServerError)
		return
	}

	if !shouldEnqueue {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_queued", "task_id": task.TaskID})
		return
	}

	job := Job{Repo: repo, PRNumber: event.Number, Title: task.PRTitle, Author: task.PRAuthor, URL: task.PRURL}
	if err := s.disp.Enqueue(job); err != nil {
		if err == dispatcher.ErrQueueFull {
			http.Error(w, "queue full", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "worker shutting down", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "task_id": task.TaskID})
}

// gateAccepts implements §4.2's three accept gates: action must be a
// configured trigger, draft PRs are skipped when skip_draft is set, and a
// PR already carrying the auto-review label is skipped unless the action
// is synchronize (a new push warrants a fresh review).
func (s *Server) gateAccepts(event ghwebhook.PullRequestEvent) bool {
	triggers := s.cfg.Document.Review.Triggers
	if !containsString(triggers, event.Action) {
		return false
	}

	if s.cfg.Document.Review.SkipDraft && event.PullRequest.Draft {
		return false
	}

	if event.Action != "synchronize" && hasLabel(event.PullRequest.Labels, s.cfg.Document.Review.AutoReviewLabel) {
		return false
	}

	return true
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func hasLabel(labels []ghwebhook.Label, name string) bool {
	for _, l := range labels {
		if l.Name == name {
			return true
		}
	}
	return false
}
