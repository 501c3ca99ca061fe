package copier

import (
	"context"
	"fmt"
	"log"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/githubapi/image"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

// executor runs the §4.3 replication and comment-mirroring algorithms. It
// implements dispatcher.Executor[Job].
type executor struct {
	store *taskstore.Store
	auth  github.AuthProvider
	doc   *config.Document
}

func alwaysTerminal(error) bool { return true }

func (e *executor) Execute(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobKindIssue:
		return e.copyIssue(ctx, job)
	case JobKindComment:
		return e.mirrorComment(ctx, job)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// copyIssue replicates job.Issue into every label-routed target repo that
// does not already have a successful copy. A failure against one target
// never blocks the others (§7 "Partial replication").
func (e *executor) copyIssue(ctx context.Context, job Job) error {
	targets := resolveTargets(&e.doc.IssueCopy, job.Issue.LabelNames())
	if len(targets) == 0 {
		return nil
	}

	sourceClient, err := github.NewClient(ctx, e.auth, job.SourceRepo)
	if err != nil {
		return fmt.Errorf("build source client: %w", err)
	}

	for _, target := range targets {
		if err := e.copyToTarget(ctx, job, target, sourceClient); err != nil {
			log.Printf("[Issue Copier] copy %s#%d to %s: %v", job.SourceRepo, job.Issue.Number, target, err)
		}
	}
	return nil
}

func (e *executor) copyToTarget(ctx context.Context, job Job, targetRepo string, sourceClient *github.Client) error {
	already, err := e.store.HasSuccessfulCopy(job.SourceRepo, job.Issue.Number, targetRepo)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	targetClient, err := github.NewClient(ctx, e.auth, targetRepo)
	if err != nil {
		return fmt.Errorf("build target client: %w", err)
	}

	body := job.Issue.Body
	partial := false
	var reuploaded []taskstore.ReuploadedImage

	if e.doc.IssueCopy.ReuploadImages {
		result, rerr := rehostImages(ctx, targetClient, body)
		if rerr != nil {
			log.Printf("[Issue Copier] image rehost for %s#%d: %v", job.SourceRepo, job.Issue.Number, rerr)
			partial = true
		} else {
			body = result.Body
			reuploaded = result.Reuploaded
			partial = partial || result.Partial
		}
	}

	body = rewriteIssueRefs(body, job.SourceRepo)

	if e.doc.IssueCopy.AddSourceReference {
		body += fmt.Sprintf("\n\n---\n*Copied from %s#%d*", job.SourceRepo, job.Issue.Number)
	}

	var labels []string
	if e.doc.IssueCopy.CopyLabels {
		sourceLabels := job.Issue.LabelNames()
		labels = filterExistingLabels(ctx, targetClient, sourceLabels)
		if len(labels) < len(sourceLabels) {
			partial = true
		}
	}

	issue, err := targetClient.CreateIssue(ctx, job.Issue.Title, body, labels)
	if err != nil {
		if rerr := e.store.CreateCopyRecord(&taskstore.CopyRecord{
			SourceRepo:        job.SourceRepo,
			SourceIssueNumber: job.Issue.Number,
			TargetRepo:        targetRepo,
			Status:            taskstore.CopyStatusFailed,
			ErrorMessage:      err.Error(),
		}); rerr != nil && rerr != taskstore.ErrDuplicate {
			log.Printf("[Issue Copier] recording failed copy: %v", rerr)
		}
		return fmt.Errorf("create issue in %s: %w", targetRepo, err)
	}

	if e.doc.IssueCopy.AddCopyComment {
		comment := fmt.Sprintf("Copied to %s#%d", targetRepo, issue.GetNumber())
		if _, cerr := sourceClient.CreateComment(ctx, job.Issue.Number, comment); cerr != nil {
			log.Printf("[Issue Copier] posting copied-to comment on source: %v", cerr)
		}
	}

	status := taskstore.CopyStatusSuccess
	if partial {
		status = taskstore.CopyStatusPartial
	}

	rec := &taskstore.CopyRecord{
		SourceRepo:        job.SourceRepo,
		SourceIssueNumber: job.Issue.Number,
		TargetRepo:        targetRepo,
		TargetIssueNumber: issue.GetNumber(),
		LabelsCopied:      labels,
		ImagesReuploaded:  reuploaded,
		Status:            status,
	}
	if err := e.store.CreateCopyRecord(rec); err != nil && err != taskstore.ErrDuplicate {
		return fmt.Errorf("record copy: %w", err)
	}

	return nil
}

// mirrorComment replays job.Comment onto every target issue the source
// issue was successfully or partially copied to.
func (e *executor) mirrorComment(ctx context.Context, job Job) error {
	records, err := e.store.CopyRecordsForSource(job.SourceRepo, job.Issue.Number)
	if err != nil {
		return fmt.Errorf("list copy records: %w", err)
	}

	for _, rec := range records {
		if rec.Status == taskstore.CopyStatusFailed {
			continue
		}
		if err := e.mirrorToTarget(ctx, job, rec); err != nil {
			log.Printf("[Issue Copier] mirror comment %d to %s#%d: %v", job.Comment.ID, rec.TargetRepo, rec.TargetIssueNumber, err)
		}
	}
	return nil
}

func (e *executor) mirrorToTarget(ctx context.Context, job Job, rec *taskstore.CopyRecord) error {
	already, err := e.store.HasCommentSync(job.Comment.ID, rec.TargetRepo, rec.TargetIssueNumber)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	targetClient, err := github.NewClient(ctx, e.auth, rec.TargetRepo)
	if err != nil {
		return fmt.Errorf("build target client: %w", err)
	}

	body := job.Comment.Body
	hasImages := len(image.ExtractImageURLs(body)) > 0

	if e.doc.IssueCopy.ReuploadImages {
		if result, rerr := rehostImages(ctx, targetClient, body); rerr == nil {
			body = result.Body
		}
	}
	body = rewriteIssueRefs(body, job.SourceRepo)

	mirrored := fmt.Sprintf("**%s** commented on %s#%d:\n\n%s\n\n[View original comment](%s)",
		job.Comment.User.Login, job.SourceRepo, job.Issue.Number, body, job.Comment.HTMLURL)
	if hasImages {
		mirrored += "\n\n*The original comment contains images or attachments; see the source comment for its latest version.*"
	}

	targetCommentID, err := targetClient.CreateComment(ctx, rec.TargetIssueNumber, mirrored)
	if err != nil {
		return fmt.Errorf("post mirrored comment: %w", err)
	}

	syncRec := &taskstore.CommentSyncRecord{
		SourceCommentID:   job.Comment.ID,
		SourceRepo:        job.SourceRepo,
		SourceIssueNumber: job.Issue.Number,
		TargetRepo:        rec.TargetRepo,
		TargetIssueNumber: rec.TargetIssueNumber,
		TargetCommentID:   targetCommentID,
		Status:            taskstore.CommentSyncStatusSuccess,
	}
	if err := e.store.CreateCommentSync(syncRec); err != nil && err != taskstore.ErrDuplicate {
		return fmt.Errorf("record comment sync: %w", err)
	}

	return nil
}
