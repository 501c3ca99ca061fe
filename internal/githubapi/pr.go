package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// PRContext is everything the review worker's prompt builder needs (§4.2
// step 1): metadata plus a file-scoped, possibly truncated diff.
type PRContext struct {
	Number    int
	Title     string
	Body      string
	Author    string
	HeadSHA   string
	BaseRef   string
	Files     []FileDiff
	Truncated bool
}

// FileDiff is one changed file's unified patch, as returned by the PR
// files endpoint.
type FileDiff struct {
	Path      string
	Status    string
	Patch     string
	Additions int
	Deletions int
}

const truncationMarker = "\n\n[... diff truncated, character budget exceeded ...]\n"

// FetchPRContext retrieves PR metadata and its changed files, truncating
// the accumulated diff once it exceeds charBudget (§4.2 step 1: "Truncate
// when total diff exceeds a configured character budget; on truncation
// append a marker indicating elision").
func (c *Client) FetchPRContext(ctx context.Context, number int, charBudget int) (*PRContext, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return nil, err
	}

	var pr *gh.PullRequest
	err = withRetry(func() error {
		var rerr error
		pr, _, rerr = c.raw.PullRequests.Get(ctx, owner, name, number)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("get PR %s#%d: %w", c.repo, number, err)
	}

	result := &PRContext{
		Number:  number,
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		Author:  pr.GetUser().GetLogin(),
		HeadSHA: pr.GetHead().GetSHA(),
		BaseRef: pr.GetBase().GetRef(),
	}

	opt := &gh.ListOptions{PerPage: 100}
	used := 0
	for {
		var files []*gh.CommitFile
		var resp *gh.Response
		err = withRetry(func() error {
			var rerr error
			files, resp, rerr = c.raw.PullRequests.ListFiles(ctx, owner, name, number, opt)
			return rerr
		})
		if err != nil {
			return nil, fmt.Errorf("list files on %s#%d: %w", c.repo, number, err)
		}

		for _, f := range files {
			patch := f.GetPatch()
			if charBudget > 0 && used+len(patch) > charBudget {
				remaining := charBudget - used
				if remaining < 0 {
					remaining = 0
				}
				patch = patch[:remaining] + truncationMarker
				result.Truncated = true
				result.Files = append(result.Files, FileDiff{
					Path:      f.GetFilename(),
					Status:    f.GetStatus(),
					Patch:     patch,
					Additions: f.GetAdditions(),
					Deletions: f.GetDeletions(),
				})
				return result, nil
			}
			used += len(patch)
			result.Files = append(result.Files, FileDiff{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Patch:     patch,
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return result, nil
}

// RenderDiff joins the fetched file diffs into the plain-text block the
// review prompt embeds (§4.2 step 2: "file-scoped diff").
func (p *PRContext) RenderDiff() string {
	var b strings.Builder
	for _, f := range p.Files {
		fmt.Fprintf(&b, "--- %s (%s, +%d/-%d) ---\n%s\n\n", f.Path, f.Status, f.Additions, f.Deletions, f.Patch)
	}
	if p.Truncated {
		b.WriteString(truncationMarker)
	}
	return b.String()
}
