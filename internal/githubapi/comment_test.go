package github

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestCreateCommentReturnsID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 999, "body": "looks good"})
	})

	client, _ := newTestClient(t, mux, "o/r")
	id, err := client.CreateComment(context.Background(), 5, "looks good")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if id != 999 {
		t.Fatalf("id = %d, want 999", id)
	}
}

func TestUpdateCommentSendsNewBody(t *testing.T) {
	mux := http.NewServeMux()
	var gotBody string
	mux.HandleFunc("/repos/o/r/issues/comments/42", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Body string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotBody = body.Body
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42, "body": body.Body})
	})

	client, _ := newTestClient(t, mux, "o/r")
	if err := client.UpdateComment(context.Background(), 42, "edited"); err != nil {
		t.Fatalf("UpdateComment() error = %v", err)
	}
	if gotBody != "edited" {
		t.Fatalf("gotBody = %q, want edited", gotBody)
	}
}

func TestCreateIssueWithLabels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title  string
			Labels []string
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number": 7,
			"title":  body.Title,
			"labels": []map[string]any{{"name": "bug"}},
		})
	})

	client, _ := newTestClient(t, mux, "o/r")
	issue, err := client.CreateIssue(context.Background(), "crash on boot", "repro steps", []string{"bug"})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if issue.GetNumber() != 7 {
		t.Fatalf("Number = %d, want 7", issue.GetNumber())
	}
}
