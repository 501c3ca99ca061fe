package taskstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type PatternType string

const (
	PatternTooHarsh     PatternType = "too_harsh"
	PatternTooLenient   PatternType = "too_lenient"
	PatternMissedIssue  PatternType = "missed_issue"
	PatternGoodFeedback PatternType = "good_feedback"
	PatternUnclear      PatternType = "unclear"
	PatternOther        PatternType = "other"
)

type Dimension string

const (
	DimensionFormat        Dimension = "format"
	DimensionContent       Dimension = "content"
	DimensionClarity       Dimension = "clarity"
	DimensionActionability Dimension = "actionability"
	DimensionOverall       Dimension = "overall"
)

// FeedbackPattern is keyed by "<pattern_type>:<dimension>" (§3 primary key).
type FeedbackPattern struct {
	PatternKey          string
	PatternType         PatternType
	Dimension           Dimension
	OccurrenceCount     int
	AvgScoreDeviation   float64
	ExampleFeedbacks    []string
	IdentifiedIssue     string
	SuggestedAdjustment string
	LastSeen            time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func patternKey(patternType PatternType, dimension Dimension) string {
	return fmt.Sprintf("%s:%s", patternType, dimension)
}

const maxExampleFeedbacks = 5

// UpsertFeedbackPattern applies the running-mean update of §4.4 "Pattern
// update": on insert the row starts at count=1, mean=deviation; on update,
// new_mean = old_mean + (x - old_mean) / new_count. The whole read-modify-write
// happens inside one transaction so concurrent feedback analyses serialize
// correctly; sqlite's single-writer semantics give the locked
// read-modify-write for free.
func (s *Store) UpsertFeedbackPattern(patternType PatternType, dimension Dimension, deviation float64, example, identifiedIssue, suggestedAdjustment string) (*FeedbackPattern, error) {
	key := patternKey(patternType, dimension)

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning feedback pattern transaction: %w", err)
	}
	defer tx.Rollback()

	var existing FeedbackPattern
	var examplesJSON string
	var lastSeen, createdAt string

	row := tx.QueryRow(`
		SELECT pattern_key, occurrence_count, avg_score_deviation, example_feedbacks,
			identified_issue, suggested_adjustment, last_seen, created_at
		FROM feedback_patterns WHERE pattern_key = ?`, key)

	err = row.Scan(&existing.PatternKey, &existing.OccurrenceCount, &existing.AvgScoreDeviation,
		&examplesJSON, &existing.IdentifiedIssue, &existing.SuggestedAdjustment, &lastSeen, &createdAt)

	switch {
	case err == sql.ErrNoRows:
		examples := []string{example}
		examplesOut, _ := json.Marshal(examples)

		if _, execErr := tx.Exec(`
			INSERT INTO feedback_patterns (pattern_key, pattern_type, dimension,
				occurrence_count, deviation_sum, avg_score_deviation, example_feedbacks,
				identified_issue, suggested_adjustment)
			VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?)`,
			key, string(patternType), string(dimension), deviation, deviation,
			string(examplesOut), identifiedIssue, suggestedAdjustment); execErr != nil {
			return nil, fmt.Errorf("inserting feedback pattern %s: %w", key, execErr)
		}

	case err != nil:
		return nil, fmt.Errorf("reading feedback pattern %s: %w", key, err)

	default:
		var examples []string
		json.Unmarshal([]byte(examplesJSON), &examples)
		examples = append(examples, example)
		if len(examples) > maxExampleFeedbacks {
			examples = examples[len(examples)-maxExampleFeedbacks:]
		}
		examplesOut, _ := json.Marshal(examples)

		newCount := existing.OccurrenceCount + 1
		newMean := existing.AvgScoreDeviation + (deviation-existing.AvgScoreDeviation)/float64(newCount)

		if _, execErr := tx.Exec(`
			UPDATE feedback_patterns SET
				occurrence_count = ?, avg_score_deviation = ?, example_feedbacks = ?,
				suggested_adjustment = ?, last_seen = strftime('%Y-%m-%dT%H:%M:%fZ','now'),
				updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
			WHERE pattern_key = ?`,
			newCount, newMean, string(examplesOut), suggestedAdjustment, key); execErr != nil {
			return nil, fmt.Errorf("updating feedback pattern %s: %w", key, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing feedback pattern transaction: %w", err)
	}

	return s.GetFeedbackPattern(key)
}

func (s *Store) GetFeedbackPattern(key string) (*FeedbackPattern, error) {
	row := s.conn.QueryRow(`
		SELECT pattern_key, pattern_type, dimension, occurrence_count, avg_score_deviation,
			example_feedbacks, identified_issue, suggested_adjustment, last_seen, created_at, updated_at
		FROM feedback_patterns WHERE pattern_key = ?`, key)

	var p FeedbackPattern
	var patternType, dimension, examplesJSON, lastSeen, createdAt, updatedAt string

	err := row.Scan(&p.PatternKey, &patternType, &dimension, &p.OccurrenceCount, &p.AvgScoreDeviation,
		&examplesJSON, &p.IdentifiedIssue, &p.SuggestedAdjustment, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning feedback pattern: %w", err)
	}

	p.PatternType = PatternType(patternType)
	p.Dimension = Dimension(dimension)
	json.Unmarshal([]byte(examplesJSON), &p.ExampleFeedbacks)
	p.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &p, nil
}

// ListFeedbackPatternsSince returns patterns with last_seen within the
// window and occurrence_count >= minOccurrences, implementing the §4.4
// "Insight synthesis" query.
func (s *Store) ListFeedbackPatternsSince(since time.Time, minOccurrences int) ([]*FeedbackPattern, error) {
	rows, err := s.conn.Query(`
		SELECT pattern_key, pattern_type, dimension, occurrence_count, avg_score_deviation,
			example_feedbacks, identified_issue, suggested_adjustment, last_seen, created_at, updated_at
		FROM feedback_patterns
		WHERE last_seen >= ? AND occurrence_count >= ?
		ORDER BY occurrence_count DESC`,
		since.UTC().Format(time.RFC3339), minOccurrences)
	if err != nil {
		return nil, fmt.Errorf("listing feedback patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*FeedbackPattern
	for rows.Next() {
		var p FeedbackPattern
		var patternType, dimension, examplesJSON, lastSeen, createdAt, updatedAt string

		if err := rows.Scan(&p.PatternKey, &patternType, &dimension, &p.OccurrenceCount, &p.AvgScoreDeviation,
			&examplesJSON, &p.IdentifiedIssue, &p.SuggestedAdjustment, &lastSeen, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback pattern row: %w", err)
		}

		p.PatternType = PatternType(patternType)
		p.Dimension = Dimension(dimension)
		json.Unmarshal([]byte(examplesJSON), &p.ExampleFeedbacks)
		p.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		patterns = append(patterns, &p)
	}
	return patterns, rows.Err()
}
