package copier

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

type fakeAuth struct{}

func (fakeAuth) GetInstallationToken(repo string) (*github.InstallationToken, error) {
	return &github.InstallationToken{Token: "test-token"}, nil
}

func newTestStore(t *testing.T) *taskstore.Store {
	t.Helper()
	store, err := taskstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestSrv(t *testing.T, doc *config.Document) *Server {
	t.Helper()
	store := newTestStore(t)
	cfg := Config{
		WebhookSecret: "testsecret",
		Document:      doc,
		Auth:          fakeAuth{},
		Workers:       1,
		QueueSize:     4,
	}
	return NewServer(cfg, store)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func defaultDoc() *config.Document {
	return &config.Document{
		IssueCopy: config.IssueCopySection{
			SourceRepo: "Acme/source",
			Triggers:   []string{"opened", "labeled"},
			LabelToRepo: map[string]string{
				"bug": "Acme/bugs",
			},
		},
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())
	body := []byte(`{"action":"opened","issue":{"number":1},"repository":{"full_name":"Acme/source"}}`)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-Hub-Signature-256", "sha256=bad")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWebhookIgnoresOtherRepo(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())
	body := []byte(`{"action":"opened","issue":{"number":1,"labels":[{"name":"bug"}]},"repository":{"full_name":"Acme/other"}}`)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
}

func TestWebhookIgnoresNonTriggerAction(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())
	body := []byte(`{"action":"closed","issue":{"number":1,"labels":[{"name":"bug"}]},"repository":{"full_name":"Acme/source"}}`)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
}

func TestWebhookIgnoresPullRequestIssue(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())
	body := []byte(`{"action":"opened","issue":{"number":1,"labels":[{"name":"bug"}],"pull_request":{"url":"https://api.github.com/x"}},"repository":{"full_name":"Acme/source"}}`)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
}

func TestWebhookAcceptsOpenedIssueAndEnqueues(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())

	body := []byte(`{"action":"opened","issue":{"number":9,"title":"Crash on save","labels":[{"name":"bug"}]},"repository":{"full_name":"Acme/source"}}`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issues")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", w.Code, w.Body.String())
	}
}

func TestWebhookAcceptsNewCommentAndEnqueues(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())

	body := []byte(`{"action":"created","issue":{"number":9,"title":"Crash on save"},"comment":{"id":55,"body":"me too"},"repository":{"full_name":"Acme/source"}}`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issue_comment")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", w.Code, w.Body.String())
	}
}

func TestWebhookDropsRedeliveredComment(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())

	body := []byte(`{"action":"created","issue":{"number":9,"title":"Crash on save"},"comment":{"id":55,"body":"me too"},"repository":{"full_name":"Acme/source"}}`)

	for i, want := range []string{"accepted", "duplicate"} {
		req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
		req.Header.Set("X-GitHub-Event", "issue_comment")
		req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
		w := httptest.NewRecorder()

		srv.Handler().ServeHTTP(w, req)

		var resp map[string]string
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["status"] != want {
			t.Errorf("delivery %d: status = %q, want %q", i, resp["status"], want)
		}
	}
}

func TestWebhookIgnoresEditedComment(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())

	body := []byte(`{"action":"edited","issue":{"number":9},"comment":{"id":55,"body":"me too"},"repository":{"full_name":"Acme/source"}}`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "issue_comment")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
}

func TestWebhookUnsupportedEventIgnored(t *testing.T) {
	srv := newTestSrv(t, defaultDoc())

	body := []byte(`{"zen":"hi"}`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "ping")
	req.Header.Set("X-Hub-Signature-256", sign("testsecret", body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", resp["status"])
	}
}
