package image

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownloaderDownloadsIntoMemory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
	}))
	defer srv.Close()

	d := NewDownloader()
	got, err := d.Download(context.Background(), srv.URL+"/x.png")
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if len(got.Content) != 4 {
		t.Fatalf("Content length = %d, want 4", len(got.Content))
	}
	if got.Filename == "" {
		t.Fatal("expected a non-empty generated filename")
	}
}

func TestDownloadImagesSkipsFailuresAndReportsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.jpg", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("jpg")) })
	mux.HandleFunc("/b.png", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("png")) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDownloader()
	urls := []string{srv.URL + "/a.jpg", srv.URL + "/b.png", srv.URL + "/404.gif"}
	results, errs := d.DownloadImages(context.Background(), urls)

	if len(results) != 2 {
		t.Fatalf("expected 2 successes, got %d: %v", len(results), results)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for the 404, got %d: %v", len(errs), errs)
	}
}
