// Package image extracts and re-hosts images embedded in issue/PR bodies
// and comments (spec.md §4.3 "Image re-hosting"): URLs are found with
// ExtractImageURLs, fetched with Downloader, and handed to the copier
// worker's upload step as raw bytes rather than a local cache path, since
// every image is uploaded to the target repo's assets branch exactly once
// and never read back off disk.
package image

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Downloader fetches image URLs found in issue/PR content into memory so
// they can be uploaded via the GitHub Contents API.
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates an image downloader with a bounded per-request
// timeout; there is no cache directory to create since fetched images are
// held only long enough to be re-uploaded.
func NewDownloader() *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Downloaded is one fetched image, named deterministically so repeated
// re-hosting of the same source URL produces the same target path.
type Downloaded struct {
	Filename string
	Content  []byte
}

// DownloadImages fetches every URL, skipping individual failures (returned
// in the error slice) rather than failing the whole batch; the copier worker treats
// a partially re-hosted issue as CopyStatus=partial, not a hard failure
// (§7 "Image re-host failure").
func (d *Downloader) DownloadImages(ctx context.Context, urls []string) (map[string]Downloaded, []error) {
	result := make(map[string]Downloaded)
	var errs []error

	for _, url := range urls {
		dl, err := d.Download(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("download %s: %w", url, err))
			continue
		}
		result[url] = dl
	}

	return result, errs
}

// Download fetches a single image URL into memory.
func (d *Downloader) Download(ctx context.Context, url string) (Downloaded, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Downloaded{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Downloaded{}, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Downloaded{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Downloaded{}, fmt.Errorf("failed to read body: %w", err)
	}

	return Downloaded{Filename: d.generateFilename(url), Content: content}, nil
}

// generateFilename names a re-hosted image by the SHA256 of its source
// URL plus its extension, so the same source image always lands at the
// same path on the assets branch.
func (d *Downloader) generateFilename(url string) string {
	hash := sha256.Sum256([]byte(url))
	hashStr := fmt.Sprintf("%x", hash[:8])
	return hashStr + extractExtension(url)
}

func extractExtension(url string) string {
	if idx := strings.Index(url, "?"); idx != -1 {
		url = url[:idx]
	}
	ext := filepath.Ext(url)
	if ext == "" {
		ext = ".png"
	}
	return ext
}
