package scorer

import (
	"testing"
	"time"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

func TestRuleBasedAnalyzeDetectsTooHarshEnglish(t *testing.T) {
	a := ruleBasedAnalyze("This score is too harsh, the issue was well written")
	if a.FeedbackType != "too_harsh" || a.Sentiment != "negative" {
		t.Errorf("got %+v", a)
	}
}

func TestRuleBasedAnalyzeDetectsTooLenientChinese(t *testing.T) {
	a := ruleBasedAnalyze("这个分数太宽松了，应该更严格一些")
	if a.FeedbackType != "too_lenient" {
		t.Errorf("got %+v", a)
	}
}

func TestRuleBasedAnalyzeDefaultsToOther(t *testing.T) {
	a := ruleBasedAnalyze("just a note")
	if a.FeedbackType != "other" {
		t.Errorf("got %+v", a)
	}
}

func TestBuildInsightBlockEmptyWhenNoPatterns(t *testing.T) {
	if got := buildInsightBlock(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestBuildInsightBlockIncludesDeviationDirection(t *testing.T) {
	patterns := []*taskstore.FeedbackPattern{
		{PatternKey: "too_harsh:format", PatternType: taskstore.PatternTooHarsh, Dimension: taskstore.DimensionFormat, OccurrenceCount: 5, AvgScoreDeviation: 9},
	}
	block := buildInsightBlock(patterns)
	if block == "" {
		t.Fatal("expected non-empty insight block")
	}
}

func TestComputeSnapshotCountsFeedbackWithin24h(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scores := []*taskstore.ScoreRecord{
		{ScoreID: "a", CreatedAt: now.Add(-time.Hour), UserFeedback: "too harsh"},
		{ScoreID: "b", CreatedAt: now.Add(-48 * time.Hour), UserFeedback: "too harsh"},
		{ScoreID: "c", CreatedAt: now.Add(-time.Hour), UserFeedback: ""},
	}
	snap := computeSnapshot(nil, scores, now)
	if snap.Totals.Overall != 1 {
		t.Errorf("Totals.Overall = %d, want 1", snap.Totals.Overall)
	}
}
