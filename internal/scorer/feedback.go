package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Intrising/intrising-workspace-monitor/internal/aicli"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

// feedbackAnalysis is the structured output of §4.4 "Analysis", produced
// either by the AI call or, when that is unavailable, the rule-based
// fallback below.
type feedbackAnalysis struct {
	Sentiment           string  `json:"sentiment"`
	FeedbackType        string  `json:"feedback_type"`
	Dimension           string  `json:"dimension"`
	ScoreDeviation      int     `json:"score_deviation"`
	IdentifiedIssue     string  `json:"identified_issue"`
	SuggestedAdjustment string  `json:"suggested_adjustment"`
	confidence          float64 // not serialised or read; 1.0 for a parsed AI analysis, 0.3 for the rule-based fallback
}

const feedbackAnalysisContract = `Respond with a single fenced JSON code block and nothing else, shaped exactly as:
` + "```json" + `
{
  "sentiment": "positive|negative|neutral",
  "feedback_type": "too_harsh|too_lenient|missed_issue|good_feedback|unclear|other",
  "dimension": "format|content|clarity|actionability|overall",
  "score_deviation": <signed int>,
  "identified_issue": "<string>",
  "suggested_adjustment": "<string>"
}
` + "```"

func buildFeedbackAnalysisPrompt(feedback string) string {
	var b strings.Builder
	b.WriteString("A user left this feedback on an automated quality score:\n\n")
	b.WriteString(feedback)
	b.WriteString("\n\nClassify the feedback's sentiment, the type of disagreement (if any), which scoring ")
	b.WriteString("dimension it concerns, and how many points (signed) the user believes the score should move.\n\n")
	b.WriteString(feedbackAnalysisContract)
	return b.String()
}

// analyzeFeedback calls the AI CLI for structured feedback classification,
// falling back to ruleBasedAnalyze when the CLI is unavailable or its
// output cannot be parsed (§4.4 "If the AI is unavailable...").
func analyzeFeedback(ctx context.Context, cfg aicli.Config, feedback string) *feedbackAnalysis {
	result, err := aicli.Invoke(ctx, cfg, buildFeedbackAnalysisPrompt(feedback))
	if err == nil {
		if analysis, perr := parseFeedbackAnalysis(result.Stdout); perr == nil {
			analysis.confidence = 1.0
			return analysis
		}
	}
	return ruleBasedAnalyze(feedback)
}

func parseFeedbackAnalysis(raw string) (*feedbackAnalysis, error) {
	candidate := strings.TrimSpace(raw)
	if m := fencedJSONPattern.FindStringSubmatch(raw); len(m) == 2 {
		candidate = strings.TrimSpace(m[1])
	}
	if candidate == "" {
		return nil, fmt.Errorf("empty response")
	}

	var a feedbackAnalysis
	if err := json.Unmarshal([]byte(candidate), &a); err != nil {
		return nil, fmt.Errorf("decoding feedback analysis JSON: %w", err)
	}
	return &a, nil
}

// bilingual keyword sets for the rule-based fallback.
var (
	harshKeywords    = []string{"too harsh", "too strict", "unfair", "太严", "太苛刻"}
	lenientKeywords  = []string{"too lenient", "too easy", "too generous", "太宽", "太松"}
	missedKeywords   = []string{"missed", "didn't catch", "overlooked", "没注意到", "漏掉"}
	unclearKeywords  = []string{"unclear", "confusing", "doesn't make sense", "看不懂", "不清楚"}
	positiveKeywords = []string{"good", "accurate", "helpful", "准确", "很好"}

	dimensionKeywords = map[taskstore.Dimension][]string{
		taskstore.DimensionFormat:        {"format", "formatting", "格式"},
		taskstore.DimensionContent:       {"content", "substance", "内容"},
		taskstore.DimensionClarity:       {"clarity", "clear", "清晰"},
		taskstore.DimensionActionability: {"actionable", "actionability", "可执行"},
	}
)

// ruleBasedAnalyze scans feedback for keyword sets per feedback_type and
// dimension, bilingual, producing the same structured shape as the AI path
// at lower confidence (§4.4 "rule-based fallback").
func ruleBasedAnalyze(feedback string) *feedbackAnalysis {
	lower := strings.ToLower(feedback)

	a := &feedbackAnalysis{
		FeedbackType:   "other",
		Dimension:      string(taskstore.DimensionOverall),
		Sentiment:      "neutral",
		ScoreDeviation: 0,
		confidence:     0.3,
	}

	switch {
	case containsAny(lower, feedback, harshKeywords):
		a.FeedbackType = "too_harsh"
		a.Sentiment = "negative"
		a.ScoreDeviation = 10
	case containsAny(lower, feedback, lenientKeywords):
		a.FeedbackType = "too_lenient"
		a.Sentiment = "negative"
		a.ScoreDeviation = -10
	case containsAny(lower, feedback, missedKeywords):
		a.FeedbackType = "missed_issue"
		a.Sentiment = "negative"
	case containsAny(lower, feedback, unclearKeywords):
		a.FeedbackType = "unclear"
		a.Sentiment = "negative"
	case containsAny(lower, feedback, positiveKeywords):
		a.FeedbackType = "good_feedback"
		a.Sentiment = "positive"
	}

	for dim, keywords := range dimensionKeywords {
		if containsAny(lower, feedback, keywords) {
			a.Dimension = string(dim)
			break
		}
	}

	a.IdentifiedIssue = "derived from keyword match, not AI analysis"
	return a
}

func containsAny(lower, original string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) || strings.Contains(original, k) {
			return true
		}
	}
	return false
}

// buildInsightBlock formats recent feedback patterns into the textual
// calibration block injected into scoring prompts (§4.4 "Insight
// synthesis"). Returns "" when there is not enough data, per spec.
func buildInsightBlock(patterns []*taskstore.FeedbackPattern) string {
	if len(patterns) == 0 {
		return ""
	}

	var b strings.Builder
	total := 0
	for _, p := range patterns {
		total += p.OccurrenceCount
	}
	fmt.Fprintf(&b, "Total recent feedback items: %d.\n", total)

	top := patterns
	if len(top) > 3 {
		top = top[:3]
	}
	b.WriteString("Top issues: ")
	examples := make([]string, 0, len(top))
	for _, p := range top {
		examples = append(examples, fmt.Sprintf("%s (%s, seen %d times)", p.PatternType, p.Dimension, p.OccurrenceCount))
	}
	b.WriteString(strings.Join(examples, "; "))
	b.WriteString(".\n")

	byDimension := make(map[taskstore.Dimension][]*taskstore.FeedbackPattern)
	for _, p := range patterns {
		byDimension[p.Dimension] = append(byDimension[p.Dimension], p)
	}

	for dim, ps := range byDimension {
		var sum float64
		for _, p := range ps {
			sum += p.AvgScoreDeviation
		}
		avg := sum / float64(len(ps))
		direction := "loosening"
		if avg < 0 {
			direction = "tightening"
		}
		fmt.Fprintf(&b, "%s: consider %s, users think scores are on average %.0f points off.\n", dim, direction, avg)
	}

	return b.String()
}

// computeSnapshot aggregates feedback over the last 24h for §4.4
// "Snapshots". It is intended for periodic invocation, not the scoring
// hot path.
func computeSnapshot(patterns []*taskstore.FeedbackPattern, scores []*taskstore.ScoreRecord, now time.Time) *taskstore.FeedbackSnapshot {
	since := now.Add(-24 * time.Hour)

	totals := taskstore.SnapshotTotals{}
	for _, s := range scores {
		if s.CreatedAt.Before(since) {
			continue
		}
		if s.UserFeedback == "" {
			continue
		}
		totals.Overall++
	}

	var topIssues, adjustments []string
	for i, p := range patterns {
		if i >= 5 {
			break
		}
		topIssues = append(topIssues, fmt.Sprintf("%s:%s (%d occurrences)", p.PatternType, p.Dimension, p.OccurrenceCount))
		if p.SuggestedAdjustment != "" {
			adjustments = append(adjustments, p.SuggestedAdjustment)
		}
	}

	return &taskstore.FeedbackSnapshot{
		SnapshotDate:      now,
		Totals:            totals,
		TopIssues:         topIssues,
		LearningInsights:  topIssues,
		PromptAdjustments: adjustments,
	}
}
