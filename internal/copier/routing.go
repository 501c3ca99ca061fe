package copier

import (
	"context"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
)

// resolveTargets wraps the config's deterministic label-to-repo resolver
// (§4.3 "Label-to-repo routing").
func resolveTargets(cfg *config.IssueCopySection, labels []string) []string {
	return cfg.ResolveTargetRepos(labels)
}

// filterExistingLabels drops any label that does not exist on the target
// repo; the copier never creates labels on a target, it only carries over
// ones already present there (§4.3, missing labels skipped and logged).
func filterExistingLabels(ctx context.Context, client *github.Client, labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	existing, err := client.ListLabels(ctx)
	if err != nil {
		return nil
	}

	known := make(map[string]bool, len(existing))
	for _, l := range existing {
		known[l.GetName()] = true
	}

	var kept []string
	for _, l := range labels {
		if known[l] {
			kept = append(kept, l)
		}
	}
	return kept
}
