package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// Client wraps google/go-github with the repo lookup, PR/issue, comment,
// label, and contents operations this system needs. It fetches its
// installation token from an AuthProvider once, when the Client is built,
// and does not refresh it afterwards; callers build a new Client per job.
type Client struct {
	auth AuthProvider
	raw  *gh.Client
	repo string
}

// NewClient builds a Client authenticated against a single repo
// ("owner/name"), fetching its installation token once.
func NewClient(ctx context.Context, auth AuthProvider, repo string) (*Client, error) {
	c := &Client{auth: auth, repo: repo}
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) refresh() error {
	token, err := c.auth.GetInstallationToken(c.repo)
	if err != nil {
		return fmt.Errorf("refresh installation token: %w", err)
	}
	c.raw = gh.NewClient(nil).WithAuthToken(token.Token)
	return nil
}

func (c *Client) ownerRepo() (string, string, error) {
	parts := strings.SplitN(c.repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %s (expected owner/repo)", c.repo)
	}
	return parts[0], parts[1], nil
}

// Raw exposes the underlying go-github client for callers (branch.Manager,
// the image-hosting Contents API calls) that need direct access.
func (c *Client) Raw() *gh.Client {
	return c.raw
}

func (c *Client) Owner() (string, error) {
	owner, _, err := c.ownerRepo()
	return owner, err
}

func (c *Client) Name() (string, error) {
	_, name, err := c.ownerRepo()
	return name, err
}

// withRetry runs fn under the package's shared backoff schedule, retrying
// only transient GitHub errors (§5/§7).
func withRetry(fn func() error) error {
	return retryWithBackoff(fn)
}
