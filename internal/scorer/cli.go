package scorer

import (
	"context"

	"github.com/Intrising/intrising-workspace-monitor/internal/aicli"
)

// invokeScorer runs the AI CLI and parses its output as a scoreResponse,
// retrying once with strictReprompt on a parse failure before giving up
// (§4.4 step 3, §7 "Parse failure"). It reuses internal/aicli's subprocess
// wrapper, the same one internal/prworker calls.
func invokeScorer(ctx context.Context, cfg aicli.Config, prompt string) (*scoreResponse, *aicli.Result, error) {
	result, err := aicli.Invoke(ctx, cfg, prompt)
	if err != nil {
		return nil, result, err
	}

	if resp, perr := parseScoreResponse(result.Stdout); perr == nil {
		return resp, result, nil
	}

	retryResult, err := aicli.Invoke(ctx, cfg, prompt+"\n\n"+strictReprompt)
	if err != nil {
		return nil, retryResult, err
	}

	resp, perr := parseScoreResponse(retryResult.Stdout)
	if perr != nil {
		return nil, retryResult, perr
	}
	return resp, retryResult, nil
}
