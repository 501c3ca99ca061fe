package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"

	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

// repositoryEnvelope extracts just the repository field out of any of the
// event payload shapes; every shape the gateway routes on carries one at
// the same JSON path (§4.1 "Forwarding preserves body and relevant
// headers").
type repositoryEnvelope struct {
	Repository ghwebhook.Repository `json:"repository"`
}

// handleWebhook verifies the signature, classifies the event, and forwards
// the raw body to every worker the routing table targets (§4.1). It
// responds 200 only after every targeted worker has acknowledged receipt;
// an unreachable worker makes the whole response 5xx so GitHub retries.
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

	eventHeader := r.Header.Get("X-GitHub-Event")
	kind := ghwebhook.ClassifyEvent(eventHeader)

	if kind == ghwebhook.EventPing {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "event": "ping"})
		return
	}
	if kind == ghwebhook.EventUnsupported {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var env repositoryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	repo := env.Repository.FullName

	targets := s.routingTargets(kind, repo)
	if len(targets) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	for _, target := range targets {
		if err := s.forward(r, body, target); err != nil {
			log.Printf("[Gateway] forwarding %s to %s failed: %v", eventHeader, target, err)
			http.Error(w, "downstream worker unreachable", http.StatusBadGateway)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "event": eventHeader})
}

// routingTargets implements §4.1's routing table: pull_request goes to the
// PR-review worker and, if the repo is in the scoring set, also to the
// issue-scorer; issues/issue_comment go to the issue-copier when the repo
// matches the configured source and to the issue-scorer when in the
// scoring set.
func (s *Server) routingTargets(kind ghwebhook.EventKind, repo string) []string {
	var targets []string

	switch kind {
	case ghwebhook.EventPullRequest:
		if s.cfg.PRReviewerURL != "" {
			targets = append(targets, s.cfg.PRReviewerURL)
		}
		if s.repoIsScored(repo) {
			targets = append(targets, s.cfg.IssueScorerURL)
		}
	case ghwebhook.EventIssues, ghwebhook.EventIssueComment:
		if s.repoIsCopySource(repo) {
			targets = append(targets, s.cfg.IssueCopierURL)
		}
		if s.repoIsScored(repo) {
			targets = append(targets, s.cfg.IssueScorerURL)
		}
	}

	return targets
}

func (s *Server) repoIsCopySource(repo string) bool {
	doc := s.cfg.Document
	return doc != nil && doc.IssueCopy.Enabled && doc.IssueCopy.SourceRepo != "" && doc.IssueCopy.SourceRepo == repo
}

func (s *Server) repoIsScored(repo string) bool {
	doc := s.cfg.Document
	if doc == nil || !doc.IssueScoring.Enabled {
		return false
	}
	for _, r := range doc.IssueScoring.TargetRepos {
		if r == repo {
			return true
		}
	}
	return false
}

func (s *Server) forward(orig *http.Request, body []byte, targetBaseURL string) error {
	req, err := http.NewRequestWithContext(orig.Context(), http.MethodPost, targetBaseURL+"/webhook", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", orig.Header.Get("X-GitHub-Event"))
	req.Header.Set("X-GitHub-Delivery", orig.Header.Get("X-GitHub-Delivery"))
	req.Header.Set("X-Hub-Signature-256", orig.Header.Get("X-Hub-Signature-256"))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusServiceUnavailable {
		return errForwardRejected(resp.StatusCode)
	}
	return nil
}
