package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

// CreateComment posts a new comment on an issue or pull request (GitHub
// models both under the issues comment endpoint) and returns its ID.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (int64, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return 0, err
	}

	var created *gh.IssueComment
	err = withRetry(func() error {
		var rerr error
		created, _, rerr = c.raw.Issues.CreateComment(ctx, owner, name, number, &gh.IssueComment{Body: gh.String(body)})
		return rerr
	})
	if err != nil {
		return 0, fmt.Errorf("create comment on %s#%d: %w", c.repo, number, err)
	}
	return created.GetID(), nil
}

// UpdateComment edits an existing comment's body in place.
func (c *Client) UpdateComment(ctx context.Context, commentID int64, body string) error {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return err
	}

	err = withRetry(func() error {
		_, _, rerr := c.raw.Issues.EditComment(ctx, owner, name, commentID, &gh.IssueComment{Body: gh.String(body)})
		return rerr
	})
	if err != nil {
		return fmt.Errorf("update comment %d on %s: %w", commentID, c.repo, err)
	}
	return nil
}

// GetComment retrieves a comment's current body.
func (c *Client) GetComment(ctx context.Context, commentID int64) (*gh.IssueComment, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return nil, err
	}

	var comment *gh.IssueComment
	err = withRetry(func() error {
		var rerr error
		comment, _, rerr = c.raw.Issues.GetComment(ctx, owner, name, commentID)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("get comment %d on %s: %w", commentID, c.repo, err)
	}
	return comment, nil
}

// CreateIssue opens a new issue, used by the issue-copier worker to mirror
// a source issue into its target repo (§4.3 "Copy algorithm").
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*gh.Issue, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return nil, err
	}

	req := &gh.IssueRequest{Title: gh.String(title), Body: gh.String(body)}
	if len(labels) > 0 {
		req.Labels = &labels
	}

	var issue *gh.Issue
	err = withRetry(func() error {
		var rerr error
		issue, _, rerr = c.raw.Issues.Create(ctx, owner, name, req)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("create issue in %s: %w", c.repo, err)
	}
	return issue, nil
}

// GetIssue fetches a single issue's current state.
func (c *Client) GetIssue(ctx context.Context, number int) (*gh.Issue, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return nil, err
	}

	var issue *gh.Issue
	err = withRetry(func() error {
		var rerr error
		issue, _, rerr = c.raw.Issues.Get(ctx, owner, name, number)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("get issue %s#%d: %w", c.repo, number, err)
	}
	return issue, nil
}
