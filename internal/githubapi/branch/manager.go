// Package branch manages the single conventional branch the issue-copier
// worker re-hosts images on (spec.md §4.3 "Image re-hosting"), adapted from
// a per-issue feature-branch manager.
package branch

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
)

// AssetsBranchName is the conventional branch every repo's re-hosted
// images live on. One branch per repo, never deleted, never merged.
const AssetsBranchName = "assets"

// Manager creates and resolves the assets branch for a single repo.
type Manager struct {
	client *github.Client
	owner  string
	repo   string
}

func NewManager(client *github.Client, owner, repo string) *Manager {
	return &Manager{client: client, owner: owner, repo: repo}
}

// EnsureAssetsBranch returns the assets branch, creating it from the
// repository's default branch if it does not exist yet.
func (m *Manager) EnsureAssetsBranch(ctx context.Context) (string, error) {
	if _, _, err := m.client.Git.GetRef(ctx, m.owner, m.repo, "refs/heads/"+AssetsBranchName); err == nil {
		return AssetsBranchName, nil
	}

	repoInfo, _, err := m.client.Repositories.Get(ctx, m.owner, m.repo)
	if err != nil {
		return "", fmt.Errorf("failed to get repository: %w", err)
	}
	defaultBranch := repoInfo.GetDefaultBranch()

	baseRef, _, err := m.client.Git.GetRef(ctx, m.owner, m.repo, "refs/heads/"+defaultBranch)
	if err != nil {
		return "", fmt.Errorf("failed to get default branch: %w", err)
	}

	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + AssetsBranchName),
		Object: &github.GitObject{SHA: baseRef.Object.SHA},
	}
	if _, _, err := m.client.Git.CreateRef(ctx, m.owner, m.repo, ref); err != nil {
		return "", fmt.Errorf("failed to create assets branch: %w", err)
	}

	return AssetsBranchName, nil
}

// BranchExists checks for an arbitrary branch, used by tests and callers
// that want to avoid EnsureAssetsBranch's create side effect.
func (m *Manager) BranchExists(ctx context.Context, branchName string) (bool, error) {
	if _, _, err := m.client.Git.GetRef(ctx, m.owner, m.repo, "refs/heads/"+branchName); err != nil {
		if _, ok := err.(*github.ErrorResponse); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
