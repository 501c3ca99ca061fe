package copier

import (
	"regexp"
	"strings"
)

// bareIssueRef captures a leading boundary character (or start-of-string)
// plus a bare "#<n>" reference. The boundary group lets the replacer tell
// "foo#12" (already qualified, left alone) apart from " #12" (a genuine
// bare reference) without a lookbehind, which Go's regexp does not support.
var bareIssueRef = regexp.MustCompile(`(^|[^\w/#])#(\d+)\b`)

// urlPattern finds whole URLs so rewriteIssueRefs can skip any "#<n>" that
// falls inside one (a URL fragment, not an issue reference).
var urlPattern = regexp.MustCompile(`https?://\S+`)

// rewriteIssueRefs replaces bare "#<n>" tokens with "<sourceRepo>#<n>" so
// links in a copied issue body resolve back to the original repo (§4.3).
// Tokens already qualified with an owner/repo prefix, and "#<n>" sequences
// that fall inside a URL, are left untouched.
func rewriteIssueRefs(body, sourceRepo string) string {
	urlSpans := urlPattern.FindAllStringIndex(body, -1)
	insideURL := func(pos int) bool {
		for _, span := range urlSpans {
			if pos >= span[0] && pos < span[1] {
				return true
			}
		}
		return false
	}

	matches := bareIssueRef.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		fullStart, fullEnd := m[0], m[1]
		boundaryStart, boundaryEnd := m[2], m[3]
		numStart, numEnd := m[4], m[5]

		hashPos := boundaryEnd // '#' sits right after the boundary group
		if insideURL(hashPos) {
			continue
		}

		b.WriteString(body[last:fullStart])
		b.WriteString(body[boundaryStart:boundaryEnd])
		b.WriteString(sourceRepo)
		b.WriteString("#")
		b.WriteString(body[numStart:numEnd])
		last = fullEnd
	}
	b.WriteString(body[last:])

	return b.String()
}
