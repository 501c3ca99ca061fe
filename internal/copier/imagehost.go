package copier

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Intrising/intrising-workspace-monitor/internal/githubapi/branch"
	"github.com/Intrising/intrising-workspace-monitor/internal/githubapi/image"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"

	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
)

var downloader = image.NewDownloader()

// rehostResult carries the transformed body plus bookkeeping for the
// CopyRecord (§4.3 "Image re-hosting").
type rehostResult struct {
	Body       string
	Reuploaded []taskstore.ReuploadedImage
	Partial    bool
}

// rehostImages scans body for Markdown and HTML image references, downloads
// every URL not already hosted on github.com/githubusercontent.com, and
// uploads each to the target repo's assets branch. A per-image failure is
// logged and that one URL is left untouched; the whole operation degrades
// to partial rather than failing (§7 "Image re-host failure").
func rehostImages(ctx context.Context, targetClient *github.Client, body string) (rehostResult, error) {
	urls := image.ExtractImageURLs(body)

	var toFetch []string
	for _, u := range urls {
		if isAlreadyHosted(u) {
			continue
		}
		toFetch = append(toFetch, u)
	}

	if len(toFetch) == 0 {
		return rehostResult{Body: body}, nil
	}

	owner, err := targetClient.Owner()
	if err != nil {
		return rehostResult{}, err
	}
	repoName, err := targetClient.Name()
	if err != nil {
		return rehostResult{}, err
	}

	mgr := branch.NewManager(targetClient.Raw(), owner, repoName)
	if _, err := mgr.EnsureAssetsBranch(ctx); err != nil {
		return rehostResult{}, fmt.Errorf("ensure assets branch: %w", err)
	}

	downloaded, downloadErrs := downloader.DownloadImages(ctx, toFetch)
	for _, derr := range downloadErrs {
		log.Printf("[Issue Copier] image download failed: %v", derr)
	}

	result := rehostResult{Body: body, Partial: len(downloadErrs) > 0}

	for originalURL, dl := range downloaded {
		path := "images/" + dl.Filename
		if _, err := targetClient.PutFile(ctx, path, branch.AssetsBranchName, "re-host image "+dl.Filename, dl.Content); err != nil {
			log.Printf("[Issue Copier] upload %s failed: %v", originalURL, err)
			result.Partial = true
			continue
		}

		newURL := fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s?raw=true", owner, repoName, branch.AssetsBranchName, path)
		result.Body = strings.ReplaceAll(result.Body, originalURL, newURL)
		result.Reuploaded = append(result.Reuploaded, taskstore.ReuploadedImage{OriginalURL: originalURL, NewURL: newURL})
	}

	return result, nil
}

func isAlreadyHosted(url string) bool {
	return strings.Contains(url, "github.com") || strings.Contains(url, "githubusercontent.com")
}
