package scorer

import (
	"fmt"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

// Job is one score request, keyed by repo+issue so an issue and its own
// comments never score concurrently against the same feedback state.
type Job struct {
	Repo        string
	IssueNumber int
	CommentID   int64 // 0 when scoring the issue itself
	ContentType taskstore.ContentType
	Title       string
	Body        string
	Author      string
	Labels      []string
	IssueURL    string
}

func (j Job) Key() string {
	return fmt.Sprintf("%s#%d", j.Repo, j.IssueNumber)
}

func (j Job) scoreID() string {
	if j.CommentID != 0 {
		return fmt.Sprintf("%s#%d:%d", j.Repo, j.IssueNumber, j.CommentID)
	}
	return fmt.Sprintf("%s#%d", j.Repo, j.IssueNumber)
}
