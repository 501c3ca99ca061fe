package taskstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeedbackSnapshot is the periodic aggregate computed by
// POST /api/feedback/snapshot (§4.4 "Snapshots").
type FeedbackSnapshot struct {
	ID                int64
	SnapshotDate      time.Time
	Totals            SnapshotTotals
	TopIssues         []string
	LearningInsights  []string
	PromptAdjustments []string
	CreatedAt         time.Time
}

type SnapshotTotals struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Overall  int `json:"overall"`
}

func (s *Store) CreateFeedbackSnapshot(snap *FeedbackSnapshot) error {
	totalsJSON, err := json.Marshal(snap.Totals)
	if err != nil {
		return fmt.Errorf("marshaling snapshot totals: %w", err)
	}
	topIssuesJSON, err := json.Marshal(snap.TopIssues)
	if err != nil {
		return fmt.Errorf("marshaling snapshot top_issues: %w", err)
	}
	insightsJSON, err := json.Marshal(snap.LearningInsights)
	if err != nil {
		return fmt.Errorf("marshaling snapshot learning_insights: %w", err)
	}
	adjustmentsJSON, err := json.Marshal(snap.PromptAdjustments)
	if err != nil {
		return fmt.Errorf("marshaling snapshot prompt_adjustments: %w", err)
	}

	result, execErr := s.conn.Exec(`
		INSERT INTO feedback_snapshots (snapshot_date, totals, top_issues, learning_insights, prompt_adjustments)
		VALUES (?, ?, ?, ?, ?)`,
		snap.SnapshotDate.UTC().Format(time.RFC3339), string(totalsJSON), string(topIssuesJSON),
		string(insightsJSON), string(adjustmentsJSON))
	if execErr != nil {
		return fmt.Errorf("inserting feedback snapshot: %w", execErr)
	}

	id, _ := result.LastInsertId()
	snap.ID = id
	return nil
}

func (s *Store) ListFeedbackSnapshots(limit, offset int) ([]*FeedbackSnapshot, error) {
	rows, err := s.conn.Query(`
		SELECT id, snapshot_date, totals, top_issues, learning_insights, prompt_adjustments, created_at
		FROM feedback_snapshots ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing feedback snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*FeedbackSnapshot
	for rows.Next() {
		var snap FeedbackSnapshot
		var snapshotDate, totalsJSON, topIssuesJSON, insightsJSON, adjustmentsJSON, createdAt string

		if err := rows.Scan(&snap.ID, &snapshotDate, &totalsJSON, &topIssuesJSON,
			&insightsJSON, &adjustmentsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning feedback snapshot row: %w", err)
		}

		snap.SnapshotDate, _ = time.Parse(time.RFC3339, snapshotDate)
		json.Unmarshal([]byte(totalsJSON), &snap.Totals)
		json.Unmarshal([]byte(topIssuesJSON), &snap.TopIssues)
		json.Unmarshal([]byte(insightsJSON), &snap.LearningInsights)
		json.Unmarshal([]byte(adjustmentsJSON), &snap.PromptAdjustments)
		snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		snapshots = append(snapshots, &snap)
	}
	return snapshots, rows.Err()
}
