package taskstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type CopyStatus string

const (
	CopyStatusSuccess CopyStatus = "success"
	CopyStatusPartial CopyStatus = "partial"
	CopyStatusFailed  CopyStatus = "failed"
)

// ReuploadedImage records one image moved from the source body to the
// target repo's assets branch, for CopyRecord.images_reuploaded.
type ReuploadedImage struct {
	OriginalURL string `json:"original_url"`
	NewURL      string `json:"new_url"`
}

// CopyRecord is unique per (SourceRepo, SourceIssueNumber, TargetRepo).
type CopyRecord struct {
	ID                int64
	SourceRepo        string
	SourceIssueNumber int
	TargetRepo        string
	TargetIssueNumber int
	LabelsCopied      []string
	ImagesReuploaded  []ReuploadedImage
	Status            CopyStatus
	ErrorMessage      string
	CreatedAt         time.Time
}

// CreateCopyRecord inserts a row, returning ErrDuplicate (not an error the
// caller should surface) when the unique triple already has a record,
// per spec.md §7 "Duplicate replication ... swallow; treat as success".
func (s *Store) CreateCopyRecord(rec *CopyRecord) error {
	labelsJSON, err := json.Marshal(rec.LabelsCopied)
	if err != nil {
		return fmt.Errorf("marshaling labels_copied: %w", err)
	}
	imagesJSON, err := json.Marshal(rec.ImagesReuploaded)
	if err != nil {
		return fmt.Errorf("marshaling images_reuploaded: %w", err)
	}

	result, execErr := s.conn.Exec(`
		INSERT INTO copy_records (source_repo, source_issue_number, target_repo,
			target_issue_number, labels_copied, images_reuploaded, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SourceRepo, rec.SourceIssueNumber, rec.TargetRepo, rec.TargetIssueNumber,
		string(labelsJSON), string(imagesJSON), string(rec.Status), rec.ErrorMessage)
	if execErr != nil {
		if isUniqueConstraintErr(execErr) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting copy record: %w", execErr)
	}

	id, _ := result.LastInsertId()
	rec.ID = id
	return nil
}

// HasSuccessfulCopy reports whether a success CopyRecord already exists for
// the triple, per §4.3 "For each target repo T for which no successful
// CopyRecord(source_issue, T) exists".
func (s *Store) HasSuccessfulCopy(sourceRepo string, sourceIssueNumber int, targetRepo string) (bool, error) {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*) FROM copy_records
		WHERE source_repo = ? AND source_issue_number = ? AND target_repo = ? AND status = ?`,
		sourceRepo, sourceIssueNumber, targetRepo, string(CopyStatusSuccess)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking existing copy record: %w", err)
	}
	return count > 0, nil
}

// CopyRecordsForSource returns every copy of a source issue, used by the
// comment mirroring step to find all target issues to mirror into.
func (s *Store) CopyRecordsForSource(sourceRepo string, sourceIssueNumber int) ([]*CopyRecord, error) {
	rows, err := s.conn.Query(`
		SELECT id, source_repo, source_issue_number, target_repo, target_issue_number,
			labels_copied, images_reuploaded, status, error_message, created_at
		FROM copy_records WHERE source_repo = ? AND source_issue_number = ?`,
		sourceRepo, sourceIssueNumber)
	if err != nil {
		return nil, fmt.Errorf("listing copy records for source: %w", err)
	}
	defer rows.Close()

	return scanCopyRecords(rows)
}

func (s *Store) ListCopyRecords(limit, offset int) ([]*CopyRecord, error) {
	rows, err := s.conn.Query(`
		SELECT id, source_repo, source_issue_number, target_repo, target_issue_number,
			labels_copied, images_reuploaded, status, error_message, created_at
		FROM copy_records ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing copy records: %w", err)
	}
	defer rows.Close()

	return scanCopyRecords(rows)
}

func scanCopyRecords(rows *sql.Rows) ([]*CopyRecord, error) {
	var records []*CopyRecord
	for rows.Next() {
		var r CopyRecord
		var status, labelsJSON, imagesJSON, createdAt string

		if err := rows.Scan(&r.ID, &r.SourceRepo, &r.SourceIssueNumber, &r.TargetRepo,
			&r.TargetIssueNumber, &labelsJSON, &imagesJSON, &status, &r.ErrorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning copy record row: %w", err)
		}

		r.Status = CopyStatus(status)
		json.Unmarshal([]byte(labelsJSON), &r.LabelsCopied)
		json.Unmarshal([]byte(imagesJSON), &r.ImagesReuploaded)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		records = append(records, &r)
	}
	return records, rows.Err()
}

// CopyRecordStats counts records by status for dashboard aggregation.
func (s *Store) CopyRecordStats() (map[CopyStatus]int, error) {
	rows, err := s.conn.Query(`SELECT status, COUNT(*) FROM copy_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting copy record stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[CopyStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning copy record stats row: %w", err)
		}
		stats[CopyStatus(status)] = count
	}
	return stats, rows.Err()
}
