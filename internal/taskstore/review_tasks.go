package taskstore

import (
	"database/sql"
	"fmt"
	"time"
)

type ReviewStatus string

const (
	ReviewStatusQueued     ReviewStatus = "queued"
	ReviewStatusProcessing ReviewStatus = "processing"
	ReviewStatusCompleted  ReviewStatus = "completed"
	ReviewStatusFailed     ReviewStatus = "failed"
)

// ReviewTask is keyed by "<repo>#<pr_number>"; at most one row exists per PR.
type ReviewTask struct {
	TaskID        string
	Repo          string
	PRNumber      int
	PRTitle       string
	PRAuthor      string
	PRURL         string
	Status        ReviewStatus
	Progress      int
	Message       string
	ReviewContent string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func reviewTaskID(repo string, prNumber int) string {
	return fmt.Sprintf("%s#%d", repo, prNumber)
}

// UpsertReviewTask implements the "enqueue is idempotent" rule of §4.2: if
// an existing task for the PR is terminal, it is reset to queued/0; if it is
// already queued or processing, the existing row is returned unchanged so
// the caller knows to drop the re-enqueue.
func (s *Store) UpsertReviewTask(repo string, prNumber int, title, author, url string) (*ReviewTask, bool, error) {
	taskID := reviewTaskID(repo, prNumber)

	existing, err := s.GetReviewTask(taskID)
	if err != nil && err != ErrNotFound {
		return nil, false, err
	}

	if err == nil {
		if existing.Status == ReviewStatusQueued || existing.Status == ReviewStatusProcessing {
			return existing, false, nil
		}

		_, execErr := s.conn.Exec(`
			UPDATE review_tasks SET
				pr_title = ?, pr_author = ?, pr_url = ?,
				status = ?, progress = 0, message = '', error_message = '',
				updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now'), completed_at = ''
			WHERE task_id = ?`,
			title, author, url, string(ReviewStatusQueued), taskID)
		if execErr != nil {
			return nil, false, fmt.Errorf("resetting review task %s: %w", taskID, execErr)
		}

		reset, getErr := s.GetReviewTask(taskID)
		return reset, true, getErr
	}

	_, execErr := s.conn.Exec(`
		INSERT INTO review_tasks (task_id, repo, pr_number, pr_title, pr_author, pr_url, status, progress)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		taskID, repo, prNumber, title, author, url, string(ReviewStatusQueued))
	if execErr != nil {
		return nil, false, fmt.Errorf("inserting review task %s: %w", taskID, execErr)
	}

	created, getErr := s.GetReviewTask(taskID)
	return created, true, getErr
}

func (s *Store) GetReviewTask(taskID string) (*ReviewTask, error) {
	row := s.conn.QueryRow(`
		SELECT task_id, repo, pr_number, pr_title, pr_author, pr_url, status, progress,
			message, review_content, error_message, created_at, updated_at, completed_at
		FROM review_tasks WHERE task_id = ?`, taskID)

	return scanReviewTask(row)
}

func scanReviewTask(row *sql.Row) (*ReviewTask, error) {
	var t ReviewTask
	var status string
	var createdAt, updatedAt, completedAt string

	err := row.Scan(&t.TaskID, &t.Repo, &t.PRNumber, &t.PRTitle, &t.PRAuthor, &t.PRURL,
		&status, &t.Progress, &t.Message, &t.ReviewContent, &t.ErrorMessage,
		&createdAt, &updatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning review task: %w", err)
	}

	t.Status = ReviewStatus(status)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if completedAt != "" {
		if parsed, perr := time.Parse(time.RFC3339, completedAt); perr == nil {
			t.CompletedAt = &parsed
		}
	}

	return &t, nil
}

// ListReviewTasks returns tasks ordered by created_at descending, optionally
// filtered by status, with limit/offset pagination per §4.2 "GET /api/tasks".
func (s *Store) ListReviewTasks(status ReviewStatus, limit, offset int) ([]*ReviewTask, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = s.conn.Query(`
			SELECT task_id, repo, pr_number, pr_title, pr_author, pr_url, status, progress,
				message, review_content, error_message, created_at, updated_at, completed_at
			FROM review_tasks WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
			string(status), limit, offset)
	} else {
		rows, err = s.conn.Query(`
			SELECT task_id, repo, pr_number, pr_title, pr_author, pr_url, status, progress,
				message, review_content, error_message, created_at, updated_at, completed_at
			FROM review_tasks ORDER BY created_at DESC LIMIT ? OFFSET ?`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("listing review tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*ReviewTask
	for rows.Next() {
		var t ReviewTask
		var st string
		var createdAt, updatedAt, completedAt string

		if err := rows.Scan(&t.TaskID, &t.Repo, &t.PRNumber, &t.PRTitle, &t.PRAuthor, &t.PRURL,
			&st, &t.Progress, &t.Message, &t.ReviewContent, &t.ErrorMessage,
			&createdAt, &updatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning review task row: %w", err)
		}

		t.Status = ReviewStatus(st)
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		if completedAt != "" {
			if parsed, perr := time.Parse(time.RFC3339, completedAt); perr == nil {
				t.CompletedAt = &parsed
			}
		}
		tasks = append(tasks, &t)
	}

	return tasks, rows.Err()
}

// ReviewTaskStats counts tasks by status for dashboard aggregation.
func (s *Store) ReviewTaskStats() (map[ReviewStatus]int, error) {
	rows, err := s.conn.Query(`SELECT status, COUNT(*) FROM review_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting review task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[ReviewStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning review task stats row: %w", err)
		}
		stats[ReviewStatus(status)] = count
	}

	return stats, rows.Err()
}

// UpdateReviewTaskProgress enforces the monotone-progress invariant of §8 by
// clamping to the maximum of the stored and requested progress.
func (s *Store) UpdateReviewTaskProgress(taskID string, status ReviewStatus, progress int, message string) error {
	_, err := s.conn.Exec(`
		UPDATE review_tasks SET
			status = ?,
			progress = CASE WHEN ? > progress THEN ? ELSE progress END,
			message = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE task_id = ?`,
		string(status), progress, progress, message, taskID)
	if err != nil {
		return fmt.Errorf("updating review task progress %s: %w", taskID, err)
	}
	return nil
}

// CompleteReviewTask transitions a task to completed with its final review content.
func (s *Store) CompleteReviewTask(taskID, reviewContent string) error {
	_, err := s.conn.Exec(`
		UPDATE review_tasks SET
			status = ?, progress = 100, review_content = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now'),
			completed_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE task_id = ?`,
		string(ReviewStatusCompleted), reviewContent, taskID)
	if err != nil {
		return fmt.Errorf("completing review task %s: %w", taskID, err)
	}
	return nil
}

// FailReviewTask transitions a task to failed with an error message.
func (s *Store) FailReviewTask(taskID, errorMessage string) error {
	_, err := s.conn.Exec(`
		UPDATE review_tasks SET
			status = ?, error_message = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now'),
			completed_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE task_id = ?`,
		string(ReviewStatusFailed), errorMessage, taskID)
	if err != nil {
		return fmt.Errorf("failing review task %s: %w", taskID, err)
	}
	return nil
}
