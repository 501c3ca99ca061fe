// Package taskstore is the single embedded relational store shared by the
// gateway and the three workers: one sqlite file per service, holding
// ReviewTask, CopyRecord, CommentSyncRecord, ScoreRecord, FeedbackPattern
// and FeedbackSnapshot rows. Grounded on uesteibar-ralph's internal/autoralph/db
// CREATE TABLE IF NOT EXISTS + best-effort ALTER TABLE migration style.
package taskstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no row matches the given key.
var ErrNotFound = errors.New("taskstore: not found")

// ErrDuplicate is returned by Create when a unique-key constraint is hit.
// Callers treat this as success per spec.md §7 "Duplicate replication".
var ErrDuplicate = errors.New("taskstore: duplicate")

type Store struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS review_tasks (
	task_id TEXT PRIMARY KEY,
	repo TEXT NOT NULL,
	pr_number INTEGER NOT NULL,
	pr_title TEXT NOT NULL DEFAULT '',
	pr_author TEXT NOT NULL DEFAULT '',
	pr_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'queued',
	progress INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	review_content TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	completed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS copy_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_repo TEXT NOT NULL,
	source_issue_number INTEGER NOT NULL,
	target_repo TEXT NOT NULL,
	target_issue_number INTEGER NOT NULL DEFAULT 0,
	labels_copied TEXT NOT NULL DEFAULT '[]',
	images_reuploaded TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'success',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	UNIQUE(source_repo, source_issue_number, target_repo)
);

CREATE TABLE IF NOT EXISTS comment_syncs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_comment_id INTEGER NOT NULL,
	source_repo TEXT NOT NULL DEFAULT '',
	source_issue_number INTEGER NOT NULL DEFAULT 0,
	target_repo TEXT NOT NULL DEFAULT '',
	target_issue_number INTEGER NOT NULL DEFAULT 0,
	target_comment_id INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'success',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	UNIQUE(source_comment_id, target_repo, target_issue_number)
);

CREATE TABLE IF NOT EXISTS score_records (
	score_id TEXT PRIMARY KEY,
	repo TEXT NOT NULL,
	issue_number INTEGER NOT NULL,
	comment_id INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	issue_url TEXT NOT NULL DEFAULT '',
	format_score INTEGER NOT NULL DEFAULT 0,
	format_feedback TEXT NOT NULL DEFAULT '',
	content_score INTEGER NOT NULL DEFAULT 0,
	content_feedback TEXT NOT NULL DEFAULT '',
	clarity_score INTEGER NOT NULL DEFAULT 0,
	clarity_feedback TEXT NOT NULL DEFAULT '',
	actionability_score INTEGER NOT NULL DEFAULT 0,
	actionability_feedback TEXT NOT NULL DEFAULT '',
	overall_score INTEGER NOT NULL DEFAULT 0,
	suggestions TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'queued',
	error_message TEXT NOT NULL DEFAULT '',
	user_feedback TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	completed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS feedback_patterns (
	pattern_key TEXT PRIMARY KEY,
	pattern_type TEXT NOT NULL,
	dimension TEXT NOT NULL,
	occurrence_count INTEGER NOT NULL DEFAULT 0,
	deviation_sum REAL NOT NULL DEFAULT 0,
	avg_score_deviation REAL NOT NULL DEFAULT 0,
	example_feedbacks TEXT NOT NULL DEFAULT '[]',
	identified_issue TEXT NOT NULL DEFAULT '',
	suggested_adjustment TEXT NOT NULL DEFAULT '',
	last_seen TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS feedback_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_date TEXT NOT NULL,
	totals TEXT NOT NULL DEFAULT '{}',
	top_issues TEXT NOT NULL DEFAULT '[]',
	learning_insights TEXT NOT NULL DEFAULT '[]',
	prompt_adjustments TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_review_tasks_status ON review_tasks(status);
CREATE INDEX IF NOT EXISTS idx_review_tasks_created ON review_tasks(created_at);
CREATE INDEX IF NOT EXISTS idx_copy_records_source ON copy_records(source_repo, source_issue_number);
CREATE INDEX IF NOT EXISTS idx_score_records_status ON score_records(status);
CREATE INDEX IF NOT EXISTS idx_score_records_created ON score_records(created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_patterns_last_seen ON feedback_patterns(last_seen);
`

// Open creates (if absent) and migrates the sqlite file at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}

	// Best-effort migrations for databases created before a column existed.
	// ALTER TABLE ADD COLUMN errors are ignored (column already present).
	conn.Exec(`ALTER TABLE copy_records ADD COLUMN target_issue_number INTEGER NOT NULL DEFAULT 0`)
	conn.Exec(`ALTER TABLE score_records ADD COLUMN user_feedback TEXT NOT NULL DEFAULT ''`)

	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite reports constraint violations with this substring;
	// sqlite driver error strings don't carry a stable error code, so the
	// check matches on message text, the same way isRetryableError in
	// internal/githubapi/retry.go does.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
