package scorer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Intrising/intrising-workspace-monitor/internal/aicli"
	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

type executor struct {
	store *taskstore.Store
	auth  github.AuthProvider
	doc   *config.Document
	aiCfg aicli.Config
}

func alwaysTerminal(error) bool { return true }

// Execute runs the §4.4 scoring algorithm for one issue or comment event.
func (e *executor) Execute(ctx context.Context, job Job) error {
	scoreID := job.scoreID()

	if _, err := e.store.GetScoreRecord(scoreID); err == nil {
		return nil // already scored or in progress; re-delivery, ignore
	} else if err != taskstore.ErrNotFound {
		return fmt.Errorf("checking existing score record: %w", err)
	}

	rec := &taskstore.ScoreRecord{
		ScoreID:     scoreID,
		Repo:        job.Repo,
		IssueNumber: job.IssueNumber,
		CommentID:   job.CommentID,
		ContentType: job.ContentType,
		Title:       job.Title,
		Body:        job.Body,
		Author:      job.Author,
		IssueURL:    job.IssueURL,
	}
	if err := e.store.CreateScoreRecord(rec); err != nil {
		return fmt.Errorf("creating score record: %w", err)
	}

	window := time.Duration(e.doc.IssueScoring.FeedbackWindowDays) * 24 * time.Hour
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	patterns, err := e.store.ListFeedbackPatternsSince(time.Now().Add(-window), e.doc.IssueScoring.FeedbackMinOccurrences)
	if err != nil {
		log.Printf("[Issue Scorer] listing feedback patterns for %s: %v", scoreID, err)
	}
	insightBlock := buildInsightBlock(patterns)

	prompt := buildScorePrompt(job, insightBlock, e.doc.IssueScoring.Language)

	resp, result, err := invokeScorer(ctx, e.aiCfg, prompt)
	if err != nil {
		detail := err.Error()
		if result != nil {
			detail = fmt.Sprintf("%s (exit %d, stderr: %s)", err, result.ExitCode, result.Stderr)
		}
		return e.fail(scoreID, detail)
	}

	format := taskstore.DimensionScore{Score: clamp(resp.Format.Score), Feedback: resp.Format.Feedback}
	content := taskstore.DimensionScore{Score: clamp(resp.Content.Score), Feedback: resp.Content.Feedback}
	clarity := taskstore.DimensionScore{Score: clamp(resp.Clarity.Score), Feedback: resp.Clarity.Feedback}
	actionability := taskstore.DimensionScore{Score: clamp(resp.Actionability.Score), Feedback: resp.Actionability.Feedback}
	overall := validateOverall(resp.OverallScore, format, content, clarity, actionability)

	if err := e.store.CompleteScoreRecord(scoreID, format, content, clarity, actionability, overall, resp.Suggestions); err != nil {
		return fmt.Errorf("completing score record %s: %w", scoreID, err)
	}

	if e.doc.IssueScoring.AutoComment {
		if err := e.postScoreComment(ctx, job, format, content, clarity, actionability, overall, resp.Suggestions); err != nil {
			log.Printf("[Issue Scorer] posting score comment for %s: %v", scoreID, err)
		}
	}

	return nil
}

func (e *executor) postScoreComment(ctx context.Context, job Job, format, content, clarity, actionability taskstore.DimensionScore, overall int, suggestions string) error {
	client, err := github.NewClient(ctx, e.auth, job.Repo)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	body := fmt.Sprintf(
		"**Quality score: %d/100**\n\n| Dimension | Score | Feedback |\n|---|---|---|\n"+
			"| Format | %d | %s |\n| Content | %d | %s |\n| Clarity | %d | %s |\n| Actionability | %d | %s |\n\n"+
			"**Suggestions:** %s\n\n---\n*Automated score posted by the issue-scorer worker.*",
		overall,
		format.Score, format.Feedback, content.Score, content.Feedback,
		clarity.Score, clarity.Feedback, actionability.Score, actionability.Feedback,
		suggestions,
	)

	_, err = client.CreateComment(ctx, job.IssueNumber, body)
	return err
}

func (e *executor) fail(scoreID, detail string) error {
	if err := e.store.FailScoreRecord(scoreID, detail); err != nil {
		log.Printf("[Issue Scorer] failing score %s: %v", scoreID, err)
	}
	return errors.New(detail)
}
