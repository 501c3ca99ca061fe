package scorer

import (
	"fmt"
	"strings"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

var rubrics = map[taskstore.ContentType]string{
	taskstore.ContentTypeBug: "A bug report should include reproduction steps, expected vs actual " +
		"behavior, and enough environment detail to act on. Red flags: vague repro steps, no error " +
		"detail, missing severity signal.",
	taskstore.ContentTypeFeature: "A feature request should state the user-facing motivation, the " +
		"proposed behavior, and any alternatives considered. Red flags: no rationale, scope too broad " +
		"to be actionable, duplicate of an existing capability.",
	taskstore.ContentTypeTestResult: "A test result report should state what was run, the pass/fail " +
		"outcome, and any failure detail (assertion, stack trace, flaky vs. deterministic). Red flags: " +
		"no environment/version info, ambiguous pass/fail, no link to the failing run.",
	taskstore.ContentTypeTask: "A task should have a clear, scoped deliverable and enough context to " +
		"start work without follow-up questions. Red flags: no acceptance criteria, scope creep, " +
		"unstated dependencies.",
	taskstore.ContentTypeComment: "A comment should add signal to the discussion: new information, a " +
		"clarifying question, or a concrete next step. Red flags: restates prior comments, no new " +
		"information, purely reactive.",
}

const scoreOutputContract = `Respond with a single fenced JSON code block and nothing else, shaped exactly as:
` + "```json" + `
{
  "format": {"score": <int 0-100>, "feedback": "<string>"},
  "content": {"score": <int 0-100>, "feedback": "<string>"},
  "clarity": {"score": <int 0-100>, "feedback": "<string>"},
  "actionability": {"score": <int 0-100>, "feedback": "<string>"},
  "overall_score": <int 0-100>,
  "suggestions": "<string>"
}
` + "```"

// buildScorePrompt assembles the rubric, payload, feedback insight block,
// and strict-JSON contract for one scoring request (§4.4 step 2).
func buildScorePrompt(job Job, insightBlock string, language string) string {
	if language == "" {
		language = "English"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are scoring a %s for quality along four dimensions: format, content, ", job.ContentType)
	b.WriteString("clarity, and actionability.\n\n")

	b.WriteString("Rubric:\n")
	b.WriteString(rubrics[job.ContentType])
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Repository: %s\nAuthor: %s\n", job.Repo, job.Author)
	if job.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", job.Title)
	}
	if len(job.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(job.Labels, ", "))
	}
	b.WriteString("\nContent:\n")
	b.WriteString(job.Body)
	b.WriteString("\n\n")

	if insightBlock != "" {
		b.WriteString("Calibration guidance from recent user feedback (treat as signal, not ground truth):\n")
		b.WriteString(insightBlock)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Reply in %s. ", language)
	b.WriteString(scoreOutputContract)

	return b.String()
}

const strictReprompt = "Your previous reply could not be parsed as JSON. Reply again with ONLY the fenced JSON code block described below, no prose before or after it.\n\n" + scoreOutputContract
