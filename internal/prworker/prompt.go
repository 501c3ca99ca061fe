package prworker

import (
	"fmt"
	"strings"

	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
)

// buildPrompt assembles the review worker's plain-text contract prompt
// (§4.2 step 2): PR metadata, file-scoped diff, focus-area list, language
// directive. A single string builder is enough for a linear document, in
// a plain string-builder, no template engine.
func buildPrompt(pr *github.PRContext, focusAreas []string, language string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are reviewing pull request #%d: %s\n", pr.Number, pr.Title)
	fmt.Fprintf(&b, "Author: %s\n", pr.Author)
	fmt.Fprintf(&b, "Base: %s  Head: %s\n\n", pr.BaseRef, pr.HeadSHA)

	if strings.TrimSpace(pr.Body) != "" {
		fmt.Fprintf(&b, "Description:\n%s\n\n", pr.Body)
	}

	if len(focusAreas) > 0 {
		fmt.Fprintf(&b, "Focus areas: %s\n\n", strings.Join(focusAreas, ", "))
	}

	lang := language
	if lang == "" {
		lang = "English"
	}
	fmt.Fprintf(&b, "Reply in %s.\n\n", lang)

	b.WriteString("Changed files:\n")
	b.WriteString(pr.RenderDiff())

	b.WriteString("\nProvide a concise code review covering correctness, security, and style. List concrete issues with file:line references where possible.\n")

	return b.String()
}
