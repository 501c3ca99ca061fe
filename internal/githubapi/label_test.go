package github

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestAddLabelCreatesMissingLabelThenApplies(t *testing.T) {
	mux := http.NewServeMux()
	created := false
	applied := false

	mux.HandleFunc("/repos/o/r/labels/needs-triage", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/repos/o/r/labels", func(w http.ResponseWriter, r *http.Request) {
		created = true
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "needs-triage"})
	})
	mux.HandleFunc("/repos/o/r/issues/3/labels", func(w http.ResponseWriter, r *http.Request) {
		applied = true
		_ = json.NewEncoder(w).Encode([]map[string]any{{"name": "needs-triage"}})
	})

	client, _ := newTestClient(t, mux, "o/r")
	if err := client.AddLabel(context.Background(), 3, "needs-triage"); err != nil {
		t.Fatalf("AddLabel() error = %v", err)
	}
	if !created {
		t.Error("expected label to be created when missing")
	}
	if !applied {
		t.Error("expected label to be applied to the issue")
	}
}

func TestAddLabelSkipsCreateWhenLabelExists(t *testing.T) {
	mux := http.NewServeMux()
	createCalled := false

	mux.HandleFunc("/repos/o/r/labels/bug", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "bug"})
	})
	mux.HandleFunc("/repos/o/r/labels", func(w http.ResponseWriter, r *http.Request) {
		createCalled = true
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "bug"})
	})
	mux.HandleFunc("/repos/o/r/issues/3/labels", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"name": "bug"}})
	})

	client, _ := newTestClient(t, mux, "o/r")
	if err := client.AddLabel(context.Background(), 3, "bug"); err != nil {
		t.Fatalf("AddLabel() error = %v", err)
	}
	if createCalled {
		t.Error("expected label creation to be skipped when the label already exists")
	}
}
