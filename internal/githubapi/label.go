package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

// ListLabels lists every label defined on the repo, used by the
// issue-copier worker's filterExistingLabels (§4.3) to keep only the
// source labels that already exist on a target repo.
func (c *Client) ListLabels(ctx context.Context) ([]*gh.Label, error) {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return nil, err
	}

	var labels []*gh.Label
	opt := &gh.ListOptions{PerPage: 100}
	for {
		var page []*gh.Label
		var resp *gh.Response
		err = withRetry(func() error {
			var rerr error
			page, resp, rerr = c.raw.Issues.ListLabels(ctx, owner, name, opt)
			return rerr
		})
		if err != nil {
			return nil, fmt.Errorf("list labels on %s: %w", c.repo, err)
		}
		labels = append(labels, page...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return labels, nil
}

// AddLabel attaches a label to an issue or pull request, creating the
// label on the repo first if it does not exist yet.
func (c *Client) AddLabel(ctx context.Context, number int, label string) error {
	owner, name, err := c.ownerRepo()
	if err != nil {
		return err
	}

	if err := c.ensureLabelExists(ctx, owner, name, label); err != nil {
		return err
	}

	return withRetry(func() error {
		_, _, rerr := c.raw.Issues.AddLabelsToIssue(ctx, owner, name, number, []string{label})
		return rerr
	})
}

func (c *Client) ensureLabelExists(ctx context.Context, owner, name, label string) error {
	err := withRetry(func() error {
		_, _, rerr := c.raw.Issues.GetLabel(ctx, owner, name, label)
		return rerr
	})
	if err == nil {
		return nil
	}

	return withRetry(func() error {
		_, _, rerr := c.raw.Issues.CreateLabel(ctx, owner, name, &gh.Label{
			Name:        gh.String(label),
			Color:       gh.String("0366d6"),
			Description: gh.String("managed by the issue pipeline"),
		})
		return rerr
	})
}
