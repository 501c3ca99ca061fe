package taskstore

import (
	"database/sql"
	"fmt"
	"time"
)

type ScoreStatus string

const (
	ScoreStatusQueued     ScoreStatus = "queued"
	ScoreStatusProcessing ScoreStatus = "processing"
	ScoreStatusCompleted  ScoreStatus = "completed"
	ScoreStatusFailed     ScoreStatus = "failed"
)

type ContentType string

const (
	ContentTypeBug        ContentType = "bug"
	ContentTypeTask       ContentType = "task"
	ContentTypeFeature    ContentType = "feature"
	ContentTypeTestResult ContentType = "test_result"
	ContentTypeComment    ContentType = "comment"
)

// DimensionScore is the {score, feedback} pair the scoring prompt must
// return for each of the four dimensions (§4.4 step 2).
type DimensionScore struct {
	Score    int
	Feedback string
}

type ScoreRecord struct {
	ScoreID       string
	Repo          string
	IssueNumber   int
	CommentID     int64 // 0 when scoring an issue rather than a comment
	ContentType   ContentType
	Title         string
	Body          string
	Author        string
	IssueURL      string
	Format        DimensionScore
	Content       DimensionScore
	Clarity       DimensionScore
	Actionability DimensionScore
	OverallScore  int
	Suggestions   string
	Status        ScoreStatus
	ErrorMessage  string
	UserFeedback  string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Dimensions returns the four scored dimensions keyed by name, used by the
// feedback analyzer and the overall-score validation in §4.4 step 4.
func (r *ScoreRecord) Dimensions() map[string]DimensionScore {
	return map[string]DimensionScore{
		"format":        r.Format,
		"content":       r.Content,
		"clarity":       r.Clarity,
		"actionability": r.Actionability,
	}
}

func (s *Store) CreateScoreRecord(rec *ScoreRecord) error {
	_, err := s.conn.Exec(`
		INSERT INTO score_records (score_id, repo, issue_number, comment_id, content_type,
			title, body, author, issue_url, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ScoreID, rec.Repo, rec.IssueNumber, rec.CommentID, string(rec.ContentType),
		rec.Title, rec.Body, rec.Author, rec.IssueURL, string(ScoreStatusQueued))
	if err != nil {
		return fmt.Errorf("inserting score record: %w", err)
	}
	return nil
}

func (s *Store) GetScoreRecord(scoreID string) (*ScoreRecord, error) {
	row := s.conn.QueryRow(`
		SELECT score_id, repo, issue_number, comment_id, content_type, title, body, author, issue_url,
			format_score, format_feedback, content_score, content_feedback,
			clarity_score, clarity_feedback, actionability_score, actionability_feedback,
			overall_score, suggestions, status, error_message, user_feedback, created_at, completed_at
		FROM score_records WHERE score_id = ?`, scoreID)

	return scanScoreRecord(row)
}

func scanScoreRecord(row *sql.Row) (*ScoreRecord, error) {
	var r ScoreRecord
	var contentType, status, createdAt, completedAt string

	err := row.Scan(&r.ScoreID, &r.Repo, &r.IssueNumber, &r.CommentID, &contentType,
		&r.Title, &r.Body, &r.Author, &r.IssueURL,
		&r.Format.Score, &r.Format.Feedback, &r.Content.Score, &r.Content.Feedback,
		&r.Clarity.Score, &r.Clarity.Feedback, &r.Actionability.Score, &r.Actionability.Feedback,
		&r.OverallScore, &r.Suggestions, &status, &r.ErrorMessage, &r.UserFeedback,
		&createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning score record: %w", err)
	}

	r.ContentType = ContentType(contentType)
	r.Status = ScoreStatus(status)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt != "" {
		if parsed, perr := time.Parse(time.RFC3339, completedAt); perr == nil {
			r.CompletedAt = &parsed
		}
	}

	return &r, nil
}

// CompleteScoreRecord stores the final dimension scores and transitions to
// completed, per §4.4 step 4/5.
func (s *Store) CompleteScoreRecord(scoreID string, format, content, clarity, actionability DimensionScore, overall int, suggestions string) error {
	_, err := s.conn.Exec(`
		UPDATE score_records SET
			format_score = ?, format_feedback = ?,
			content_score = ?, content_feedback = ?,
			clarity_score = ?, clarity_feedback = ?,
			actionability_score = ?, actionability_feedback = ?,
			overall_score = ?, suggestions = ?,
			status = ?, completed_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE score_id = ?`,
		format.Score, format.Feedback, content.Score, content.Feedback,
		clarity.Score, clarity.Feedback, actionability.Score, actionability.Feedback,
		overall, suggestions, string(ScoreStatusCompleted), scoreID)
	if err != nil {
		return fmt.Errorf("completing score record %s: %w", scoreID, err)
	}
	return nil
}

func (s *Store) FailScoreRecord(scoreID, errorMessage string) error {
	_, err := s.conn.Exec(`
		UPDATE score_records SET status = ?, error_message = ?,
			completed_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE score_id = ?`,
		string(ScoreStatusFailed), errorMessage, scoreID)
	if err != nil {
		return fmt.Errorf("failing score record %s: %w", scoreID, err)
	}
	return nil
}

func (s *Store) UpdateScoreRecordStatus(scoreID string, status ScoreStatus) error {
	_, err := s.conn.Exec(`UPDATE score_records SET status = ? WHERE score_id = ?`, string(status), scoreID)
	if err != nil {
		return fmt.Errorf("updating score record status %s: %w", scoreID, err)
	}
	return nil
}

// AppendUserFeedback appends free-text feedback, accumulating per spec.md
// §3 "user_feedback? (accumulated)".
func (s *Store) AppendUserFeedback(scoreID, feedback string) error {
	_, err := s.conn.Exec(`
		UPDATE score_records SET
			user_feedback = CASE WHEN user_feedback = '' THEN ? ELSE user_feedback || char(10) || ? END
		WHERE score_id = ?`,
		feedback, feedback, scoreID)
	if err != nil {
		return fmt.Errorf("appending user feedback to %s: %w", scoreID, err)
	}
	return nil
}

func (s *Store) ListScoreRecords(limit, offset int) ([]*ScoreRecord, error) {
	rows, err := s.conn.Query(`
		SELECT score_id, repo, issue_number, comment_id, content_type, title, body, author, issue_url,
			format_score, format_feedback, content_score, content_feedback,
			clarity_score, clarity_feedback, actionability_score, actionability_feedback,
			overall_score, suggestions, status, error_message, user_feedback, created_at, completed_at
		FROM score_records ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing score records: %w", err)
	}
	defer rows.Close()

	var records []*ScoreRecord
	for rows.Next() {
		var r ScoreRecord
		var contentType, status, createdAt, completedAt string

		if err := rows.Scan(&r.ScoreID, &r.Repo, &r.IssueNumber, &r.CommentID, &contentType,
			&r.Title, &r.Body, &r.Author, &r.IssueURL,
			&r.Format.Score, &r.Format.Feedback, &r.Content.Score, &r.Content.Feedback,
			&r.Clarity.Score, &r.Clarity.Feedback, &r.Actionability.Score, &r.Actionability.Feedback,
			&r.OverallScore, &r.Suggestions, &status, &r.ErrorMessage, &r.UserFeedback,
			&createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning score record row: %w", err)
		}

		r.ContentType = ContentType(contentType)
		r.Status = ScoreStatus(status)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if completedAt != "" {
			if parsed, perr := time.Parse(time.RFC3339, completedAt); perr == nil {
				r.CompletedAt = &parsed
			}
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *Store) ScoreRecordStats() (map[ScoreStatus]int, error) {
	rows, err := s.conn.Query(`SELECT status, COUNT(*) FROM score_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting score record stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[ScoreStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning score record stats row: %w", err)
		}
		stats[ScoreStatus(status)] = count
	}
	return stats, rows.Err()
}
