package taskstore

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReviewTaskUpsertCreatesThenCollapses(t *testing.T) {
	store := newTestStore(t)

	task, created, err := store.UpsertReviewTask("Acme/foo", 42, "Add feature", "octocat", "https://github.com/Acme/foo/pull/42")
	if err != nil {
		t.Fatalf("UpsertReviewTask() error = %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first upsert")
	}
	if task.TaskID != "Acme/foo#42" {
		t.Fatalf("TaskID = %s, want Acme/foo#42", task.TaskID)
	}
	if task.Status != ReviewStatusQueued {
		t.Fatalf("Status = %s, want queued", task.Status)
	}

	// Re-enqueueing an already-queued task is dropped, per §4.2 "enqueue is idempotent".
	_, created, err = store.UpsertReviewTask("Acme/foo", 42, "Add feature v2", "octocat", "https://github.com/Acme/foo/pull/42")
	if err != nil {
		t.Fatalf("UpsertReviewTask() second call error = %v", err)
	}
	if created {
		t.Fatal("expected created=false when task is already queued")
	}
}

func TestReviewTaskUpsertResetsTerminalTask(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.UpsertReviewTask("Acme/foo", 1, "t", "a", "u")
	if err != nil {
		t.Fatalf("UpsertReviewTask() error = %v", err)
	}
	if err := store.CompleteReviewTask("Acme/foo#1", "LGTM"); err != nil {
		t.Fatalf("CompleteReviewTask() error = %v", err)
	}

	task, created, err := store.UpsertReviewTask("Acme/foo", 1, "t2", "a", "u")
	if err != nil {
		t.Fatalf("UpsertReviewTask() error = %v", err)
	}
	if !created {
		t.Fatal("expected created=true when resetting a terminal task")
	}
	if task.Status != ReviewStatusQueued || task.Progress != 0 {
		t.Fatalf("task = %+v, want reset to queued/0", task)
	}
}

func TestReviewTaskProgressMonotone(t *testing.T) {
	store := newTestStore(t)
	store.UpsertReviewTask("Acme/foo", 1, "t", "a", "u")

	if err := store.UpdateReviewTaskProgress("Acme/foo#1", ReviewStatusProcessing, 50, "fetching diff"); err != nil {
		t.Fatalf("UpdateReviewTaskProgress() error = %v", err)
	}
	// A lower progress value must not regress the stored value.
	if err := store.UpdateReviewTaskProgress("Acme/foo#1", ReviewStatusProcessing, 10, "stale update"); err != nil {
		t.Fatalf("UpdateReviewTaskProgress() error = %v", err)
	}

	got, err := store.GetReviewTask("Acme/foo#1")
	if err != nil {
		t.Fatalf("GetReviewTask() error = %v", err)
	}
	if got.Progress != 50 {
		t.Fatalf("Progress = %d, want 50 (monotone non-decreasing)", got.Progress)
	}
}

func TestCopyRecordUniqueness(t *testing.T) {
	store := newTestStore(t)

	rec := &CopyRecord{
		SourceRepo:        "Acme/src",
		SourceIssueNumber: 100,
		TargetRepo:        "Acme/OS3OS4",
		Status:            CopyStatusSuccess,
	}
	if err := store.CreateCopyRecord(rec); err != nil {
		t.Fatalf("CreateCopyRecord() error = %v", err)
	}

	dup := &CopyRecord{
		SourceRepo:        "Acme/src",
		SourceIssueNumber: 100,
		TargetRepo:        "Acme/OS3OS4",
		Status:            CopyStatusSuccess,
	}
	if err := store.CreateCopyRecord(dup); err != ErrDuplicate {
		t.Fatalf("CreateCopyRecord() duplicate error = %v, want ErrDuplicate", err)
	}

	ok, err := store.HasSuccessfulCopy("Acme/src", 100, "Acme/OS3OS4")
	if err != nil {
		t.Fatalf("HasSuccessfulCopy() error = %v", err)
	}
	if !ok {
		t.Fatal("expected HasSuccessfulCopy to report true")
	}
}

func TestCommentSyncUniqueness(t *testing.T) {
	store := newTestStore(t)

	rec := &CommentSyncRecord{
		SourceCommentID:   999,
		SourceRepo:        "Acme/src",
		SourceIssueNumber: 100,
		TargetRepo:        "Acme/OS3OS4",
		TargetIssueNumber: 5,
		Status:            CommentSyncStatusSuccess,
	}
	if err := store.CreateCommentSync(rec); err != nil {
		t.Fatalf("CreateCommentSync() error = %v", err)
	}

	dup := &CommentSyncRecord{
		SourceCommentID:   999,
		TargetRepo:        "Acme/OS3OS4",
		TargetIssueNumber: 5,
		Status:            CommentSyncStatusSuccess,
	}
	if err := store.CreateCommentSync(dup); err != ErrDuplicate {
		t.Fatalf("CreateCommentSync() duplicate error = %v, want ErrDuplicate", err)
	}
}

func TestFeedbackPatternRunningMean(t *testing.T) {
	store := newTestStore(t)

	deviations := []float64{10, 5, 12}
	var pattern *FeedbackPattern
	for _, d := range deviations {
		var err error
		pattern, err = store.UpsertFeedbackPattern(PatternTooHarsh, DimensionFormat, d, "feedback text", "scores feel low", "loosen rubric")
		if err != nil {
			t.Fatalf("UpsertFeedbackPattern() error = %v", err)
		}
	}

	if pattern.OccurrenceCount != 3 {
		t.Fatalf("OccurrenceCount = %d, want 3", pattern.OccurrenceCount)
	}
	wantMean := (10.0 + 5.0 + 12.0) / 3.0
	if diff := pattern.AvgScoreDeviation - wantMean; diff > 0.0001 || diff < -0.0001 {
		t.Fatalf("AvgScoreDeviation = %f, want %f", pattern.AvgScoreDeviation, wantMean)
	}
	if len(pattern.ExampleFeedbacks) != 3 {
		t.Fatalf("ExampleFeedbacks length = %d, want 3", len(pattern.ExampleFeedbacks))
	}
}

func TestFeedbackPatternExampleCap(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 7; i++ {
		_, err := store.UpsertFeedbackPattern(PatternUnclear, DimensionClarity, 1, "example", "", "")
		if err != nil {
			t.Fatalf("UpsertFeedbackPattern() error = %v", err)
		}
	}

	pattern, err := store.GetFeedbackPattern(patternKey(PatternUnclear, DimensionClarity))
	if err != nil {
		t.Fatalf("GetFeedbackPattern() error = %v", err)
	}
	if len(pattern.ExampleFeedbacks) != maxExampleFeedbacks {
		t.Fatalf("ExampleFeedbacks length = %d, want %d (capped)", len(pattern.ExampleFeedbacks), maxExampleFeedbacks)
	}
	if pattern.OccurrenceCount != 7 {
		t.Fatalf("OccurrenceCount = %d, want 7 (cap applies to examples, not the count)", pattern.OccurrenceCount)
	}
}

func TestListFeedbackPatternsSinceFiltersByMinOccurrences(t *testing.T) {
	store := newTestStore(t)

	store.UpsertFeedbackPattern(PatternTooHarsh, DimensionFormat, 10, "a", "", "")
	store.UpsertFeedbackPattern(PatternTooLenient, DimensionContent, -3, "b", "", "")
	store.UpsertFeedbackPattern(PatternTooLenient, DimensionContent, -5, "c", "", "")

	patterns, err := store.ListFeedbackPatternsSince(time.Now().Add(-24*time.Hour), 2)
	if err != nil {
		t.Fatalf("ListFeedbackPatternsSince() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("len(patterns) = %d, want 1 (only too_lenient:content has occurrence_count>=2)", len(patterns))
	}
	if patterns[0].PatternType != PatternTooLenient {
		t.Fatalf("pattern type = %s, want too_lenient", patterns[0].PatternType)
	}
}

func TestScoreRecordLifecycle(t *testing.T) {
	store := newTestStore(t)

	rec := &ScoreRecord{
		ScoreID:     "score-1",
		Repo:        "Acme/foo",
		IssueNumber: 10,
		ContentType: ContentTypeBug,
		Title:       "crash on startup",
	}
	if err := store.CreateScoreRecord(rec); err != nil {
		t.Fatalf("CreateScoreRecord() error = %v", err)
	}

	err := store.CompleteScoreRecord("score-1",
		DimensionScore{Score: 80, Feedback: "clear"},
		DimensionScore{Score: 70, Feedback: "ok"},
		DimensionScore{Score: 90, Feedback: "very clear"},
		DimensionScore{Score: 60, Feedback: "needs repro steps"},
		75, "add reproduction steps")
	if err != nil {
		t.Fatalf("CompleteScoreRecord() error = %v", err)
	}

	got, err := store.GetScoreRecord("score-1")
	if err != nil {
		t.Fatalf("GetScoreRecord() error = %v", err)
	}
	if got.Status != ScoreStatusCompleted {
		t.Fatalf("Status = %s, want completed", got.Status)
	}
	if got.OverallScore != 75 {
		t.Fatalf("OverallScore = %d, want 75", got.OverallScore)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
}

func TestAppendUserFeedbackAccumulates(t *testing.T) {
	store := newTestStore(t)
	store.CreateScoreRecord(&ScoreRecord{ScoreID: "score-1", Repo: "Acme/foo", IssueNumber: 1, ContentType: ContentTypeBug})

	store.AppendUserFeedback("score-1", "too strict")
	store.AppendUserFeedback("score-1", "score should be higher")

	got, err := store.GetScoreRecord("score-1")
	if err != nil {
		t.Fatalf("GetScoreRecord() error = %v", err)
	}
	if got.UserFeedback != "too strict\nscore should be higher" {
		t.Fatalf("UserFeedback = %q, want accumulated lines", got.UserFeedback)
	}
}

func TestFeedbackSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)

	snap := &FeedbackSnapshot{
		SnapshotDate:      time.Now(),
		Totals:            SnapshotTotals{Positive: 3, Negative: 1, Neutral: 2, Overall: 6},
		TopIssues:         []string{"too_harsh:format"},
		LearningInsights:  []string{"format scores trend low"},
		PromptAdjustments: []string{"loosen format rubric"},
	}
	if err := store.CreateFeedbackSnapshot(snap); err != nil {
		t.Fatalf("CreateFeedbackSnapshot() error = %v", err)
	}

	snapshots, err := store.ListFeedbackSnapshots(10, 0)
	if err != nil {
		t.Fatalf("ListFeedbackSnapshots() error = %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("len(snapshots) = %d, want 1", len(snapshots))
	}
	if snapshots[0].Totals.Overall != 6 {
		t.Fatalf("Totals.Overall = %d, want 6", snapshots[0].Totals.Overall)
	}
}
