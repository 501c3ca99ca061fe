package github

import (
	"context"
	"errors"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

// GetFileSHA returns the blob SHA of an existing file on a branch, or
// "" if the file does not exist yet; callers need this to update (rather
// than create) a file via the Contents API.
func (c *Client) GetFileSHA(ctx context.Context, path, branch string) (string, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return "", err
	}

	var fc *gh.RepositoryContent
	err = withRetry(func() error {
		var rerr error
		fc, _, _, rerr = c.raw.Repositories.GetContents(ctx, owner, name, path, &gh.RepositoryContentGetOptions{Ref: branch})
		return rerr
	})
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == 404 {
			return "", nil
		}
		return "", fmt.Errorf("get file %s on %s@%s: %w", path, c.repo, branch, err)
	}
	return fc.GetSHA(), nil
}

// PutFile creates or updates a file on branch with raw content, the single
// building block the image-hosting flow uses to upload one re-hosted image
// per commit (§4.3 "Image re-hosting": one file per call rather than a
// batched tree/commit/ref sequence, since images are uploaded
// independently rather than batched).
func (c *Client) PutFile(ctx context.Context, path, branch, message string, content []byte) (string, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return "", err
	}

	existingSHA, err := c.GetFileSHA(ctx, path, branch)
	if err != nil {
		return "", err
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: content,
		Branch:  gh.String(branch),
	}
	if existingSHA != "" {
		opts.SHA = gh.String(existingSHA)
	}

	var result *gh.RepositoryContentResponse
	err = withRetry(func() error {
		var rerr error
		result, _, rerr = c.raw.Repositories.CreateFile(ctx, owner, name, path, opts)
		return rerr
	})
	if err != nil {
		return "", fmt.Errorf("put file %s on %s@%s: %w", path, c.repo, branch, err)
	}
	return result.GetContent().GetHTMLURL(), nil
}
