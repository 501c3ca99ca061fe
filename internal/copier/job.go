package copier

import (
	"fmt"

	ghwebhook "github.com/Intrising/intrising-workspace-monitor/internal/webhook"
)

type JobKind string

const (
	JobKindIssue   JobKind = "issue"
	JobKindComment JobKind = "comment"
)

// Job is one issue-copier unit of work, keyed by the source issue so
// replication and comment mirroring for the same issue never race (§4.3,
// §5 "Ordering": "Comment mirrors for the same source_issue are processed
// in arrival order").
type Job struct {
	Kind       JobKind
	SourceRepo string
	Issue      ghwebhook.Issue
	Comment    ghwebhook.Comment
}

func (j Job) Key() string {
	return fmt.Sprintf("%s#%d", j.SourceRepo, j.Issue.Number)
}
