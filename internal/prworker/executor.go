package prworker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Intrising/intrising-workspace-monitor/internal/aicli"
	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

const reviewAttribution = "\n\n---\n*Automated review posted by the PR-review worker.*"

// executor runs one ReviewTask to completion (§4.2 "Algorithm (per task)").
// GitHub calls already retry internally (internal/githubapi/retry.go); an
// error returned from Execute means that budget is exhausted or the AI CLI
// failed, both of which are terminal per §4.2 "Failure semantics"; a
// subsequent synchronize event re-enqueues naturally, so the dispatcher
// itself never retries a prworker job.
type executor struct {
	store *taskstore.Store
	auth  github.AuthProvider
	doc   *config.Document
	aiCfg aicli.Config
}

func alwaysTerminal(error) bool { return true }

func (e *executor) Execute(ctx context.Context, job Job) error {
	taskID := job.Key()

	if err := e.store.UpdateReviewTaskProgress(taskID, taskstore.ReviewStatusProcessing, 10, "fetching PR context"); err != nil {
		return fmt.Errorf("transition %s to processing: %w", taskID, err)
	}

	client, err := github.NewClient(ctx, e.auth, job.Repo)
	if err != nil {
		return e.fail(taskID, fmt.Errorf("build github client: %w", err))
	}

	prCtx, err := client.FetchPRContext(ctx, job.PRNumber, e.doc.Review.DiffCharBudget)
	if err != nil {
		return e.fail(taskID, fmt.Errorf("fetch PR context: %w", err))
	}

	if err := e.store.UpdateReviewTaskProgress(taskID, taskstore.ReviewStatusProcessing, 50, "invoking AI CLI"); err != nil {
		return fmt.Errorf("progress 50 on %s: %w", taskID, err)
	}

	prompt := buildPrompt(prCtx, e.doc.Review.FocusAreas, e.doc.Review.Language)

	result, invokeErr := aicli.Invoke(ctx, e.aiCfg, prompt)
	if invokeErr != nil {
		detail := invokeErr.Error()
		if result != nil {
			detail = fmt.Sprintf("%s (exit %d, stderr: %s)", invokeErr, result.ExitCode, result.Stderr)
		}
		return e.fail(taskID, errors.New(detail))
	}

	if err := e.store.UpdateReviewTaskProgress(taskID, taskstore.ReviewStatusProcessing, 80, "posting review comment"); err != nil {
		return fmt.Errorf("progress 80 on %s: %w", taskID, err)
	}

	review := strings.TrimSpace(result.Stdout)
	body := review + reviewAttribution

	if _, err := client.CreateComment(ctx, job.PRNumber, body); err != nil {
		return e.fail(taskID, fmt.Errorf("post review comment: %w", err))
	}

	if e.doc.Review.AutoLabel {
		if err := client.AddLabel(ctx, job.PRNumber, e.doc.Review.AutoReviewLabel); err != nil {
			log.Printf("[PR Reviewer] apply label on %s: %v", taskID, err)
		}
	}

	if err := e.store.CompleteReviewTask(taskID, review); err != nil {
		return fmt.Errorf("complete task %s: %w", taskID, err)
	}

	return nil
}

func (e *executor) fail(taskID string, err error) error {
	if ferr := e.store.FailReviewTask(taskID, err.Error()); ferr != nil {
		log.Printf("[PR Reviewer] failing task %s: %v", taskID, ferr)
	}
	return err
}
