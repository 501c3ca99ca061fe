package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the structured config file of §6, separate from the
// environment-variable secrets in Config. review/issue_copy/issue_scoring
// sections each gate one worker; logging is shared.
type Document struct {
	Review       ReviewSection       `yaml:"review"`
	IssueCopy    IssueCopySection    `yaml:"issue_copy"`
	IssueScoring IssueScoringSection `yaml:"issue_scoring"`
	Logging      LoggingSection      `yaml:"logging"`
}

type ReviewSection struct {
	Triggers        []string `yaml:"triggers"`
	SkipDraft       bool     `yaml:"skip_draft"`
	AutoLabel       bool     `yaml:"auto_label"`
	AutoReviewLabel string   `yaml:"auto_review_label"`
	FocusAreas      []string `yaml:"focus_areas"`
	Language        string   `yaml:"language"`
	ModelTimeoutS   int      `yaml:"model_timeout_seconds"`
	DiffCharBudget  int      `yaml:"diff_char_budget"`
}

type IssueCopySection struct {
	Enabled            bool              `yaml:"enabled"`
	SourceRepo         string            `yaml:"source_repo"`
	Triggers           []string          `yaml:"triggers"`
	LabelToRepo        map[string]string `yaml:"label_to_repo"`
	DefaultTargetRepo  string            `yaml:"default_target_repo"`
	AddSourceReference bool              `yaml:"add_source_reference"`
	CopyLabels         bool              `yaml:"copy_labels"`
	ReuploadImages     bool              `yaml:"reupload_images"`
	AddCopyComment     bool              `yaml:"add_copy_comment"`
}

type IssueScoringSection struct {
	Enabled                bool     `yaml:"enabled"`
	TargetRepos            []string `yaml:"target_repos"`
	Triggers               []string `yaml:"triggers"`
	CommentTriggers        []string `yaml:"comment_triggers"`
	AutoComment            bool     `yaml:"auto_comment"`
	Language               string   `yaml:"language"`
	FeedbackWindowDays     int      `yaml:"feedback_window_days"`
	FeedbackMinOccurrences int      `yaml:"feedback_min_occurrences"`
}

type LoggingSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// LoadDocument reads and parses the YAML document at path, then fills every
// zero-valued defaulted field (feedback_window_days=30,
// feedback_min_occurrences=2, plus the review and logging defaults in
// applyDefaults) whether or not its section is present. No further
// validation is done.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config document %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config document %s: %w", path, err)
	}

	doc.applyDefaults()

	return &doc, nil
}

func (d *Document) applyDefaults() {
	if d.IssueScoring.FeedbackWindowDays <= 0 {
		d.IssueScoring.FeedbackWindowDays = 30
	}
	if d.IssueScoring.FeedbackMinOccurrences <= 0 {
		d.IssueScoring.FeedbackMinOccurrences = 2
	}
	if d.Review.ModelTimeoutS <= 0 {
		d.Review.ModelTimeoutS = 300
	}
	if d.Review.DiffCharBudget <= 0 {
		d.Review.DiffCharBudget = 20000
	}
	if d.Review.AutoReviewLabel == "" {
		d.Review.AutoReviewLabel = "ai-reviewed"
	}
	if len(d.Review.Triggers) == 0 {
		d.Review.Triggers = []string{"opened", "synchronize", "reopened"}
	}
	if d.Logging.Level == "" {
		d.Logging.Level = "info"
	}
	if d.Logging.Format == "" {
		d.Logging.Format = "text"
	}
}

// ResolveTargetRepos applies the issue-copier's label→repo routing rule
// (§4.3 "Label-to-repo routing"): every matching label contributes its
// target, in label order, deduplicated; falls back to DefaultTargetRepo
// when nothing matches; nil/empty means no-op.
func (s *IssueCopySection) ResolveTargetRepos(labels []string) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, label := range labels {
		repo, ok := s.LabelToRepo[label]
		if !ok || repo == "" || seen[repo] {
			continue
		}
		targets = append(targets, repo)
		seen[repo] = true
	}
	if len(targets) == 0 && s.DefaultTargetRepo != "" {
		return []string{s.DefaultTargetRepo}
	}
	return targets
}
