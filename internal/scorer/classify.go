package scorer

import (
	"regexp"
	"strings"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

var (
	bugBodyPattern        = regexp.MustCompile(`(?i)steps to reproduce|stack trace|traceback|expected.*actual|error:`)
	featureBodyPattern    = regexp.MustCompile(`(?i)feature request|proposal:|would be nice|as a user,? i`)
	testResultBodyPattern = regexp.MustCompile(`(?i)test (report|results?)|\bPASSED\b|\bFAILED\b|ci run|coverage:`)
)

// ClassifyIssue picks a content type from labels first, falling back to
// body pattern matching, per §4.4 "Content-type classification". An
// unmatched issue defaults to task, the least specific template.
func ClassifyIssue(labels []string, body string) taskstore.ContentType {
	for _, l := range labels {
		switch strings.ToLower(l) {
		case "bug", "defect":
			return taskstore.ContentTypeBug
		case "feature", "enhancement":
			return taskstore.ContentTypeFeature
		case "test", "test-result", "ci":
			return taskstore.ContentTypeTestResult
		case "task", "chore":
			return taskstore.ContentTypeTask
		}
	}

	switch {
	case bugBodyPattern.MatchString(body):
		return taskstore.ContentTypeBug
	case testResultBodyPattern.MatchString(body):
		return taskstore.ContentTypeTestResult
	case featureBodyPattern.MatchString(body):
		return taskstore.ContentTypeFeature
	default:
		return taskstore.ContentTypeTask
	}
}
