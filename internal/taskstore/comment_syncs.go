package taskstore

import (
	"fmt"
	"time"
)

type CommentSyncStatus string

const (
	CommentSyncStatusSuccess CommentSyncStatus = "success"
	CommentSyncStatusFailed  CommentSyncStatus = "failed"
)

// CommentSyncRecord is unique per (SourceCommentID, TargetRepo, TargetIssueNumber),
// giving at-most-once mirroring per spec.md §3.
type CommentSyncRecord struct {
	ID                int64
	SourceCommentID   int64
	SourceRepo        string
	SourceIssueNumber int
	TargetRepo        string
	TargetIssueNumber int
	TargetCommentID   int64
	Status            CommentSyncStatus
	CreatedAt         time.Time
}

// CreateCommentSync inserts a row, returning ErrDuplicate on replay.
func (s *Store) CreateCommentSync(rec *CommentSyncRecord) error {
	result, err := s.conn.Exec(`
		INSERT INTO comment_syncs (source_comment_id, source_repo, source_issue_number,
			target_repo, target_issue_number, target_comment_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SourceCommentID, rec.SourceRepo, rec.SourceIssueNumber,
		rec.TargetRepo, rec.TargetIssueNumber, rec.TargetCommentID, string(rec.Status))
	if err != nil {
		if isUniqueConstraintErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting comment sync: %w", err)
	}

	id, _ := result.LastInsertId()
	rec.ID = id
	return nil
}

// HasCommentSync reports whether a mirror already exists for the key,
// letting callers short-circuit before doing any GitHub work.
func (s *Store) HasCommentSync(sourceCommentID int64, targetRepo string, targetIssueNumber int) (bool, error) {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*) FROM comment_syncs
		WHERE source_comment_id = ? AND target_repo = ? AND target_issue_number = ?`,
		sourceCommentID, targetRepo, targetIssueNumber).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking existing comment sync: %w", err)
	}
	return count > 0, nil
}

func (s *Store) ListCommentSyncs(limit, offset int) ([]*CommentSyncRecord, error) {
	rows, err := s.conn.Query(`
		SELECT id, source_comment_id, source_repo, source_issue_number,
			target_repo, target_issue_number, target_comment_id, status, created_at
		FROM comment_syncs ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing comment syncs: %w", err)
	}
	defer rows.Close()

	var records []*CommentSyncRecord
	for rows.Next() {
		var r CommentSyncRecord
		var status, createdAt string
		if err := rows.Scan(&r.ID, &r.SourceCommentID, &r.SourceRepo, &r.SourceIssueNumber,
			&r.TargetRepo, &r.TargetIssueNumber, &r.TargetCommentID, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning comment sync row: %w", err)
		}
		r.Status = CommentSyncStatus(status)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, &r)
	}
	return records, rows.Err()
}
