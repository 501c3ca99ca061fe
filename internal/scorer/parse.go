package scorer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// scoreResponse mirrors the JSON shape required by scoreOutputContract.
type scoreResponse struct {
	Format        taskstore.DimensionScore `json:"format"`
	Content       taskstore.DimensionScore `json:"content"`
	Clarity       taskstore.DimensionScore `json:"clarity"`
	Actionability taskstore.DimensionScore `json:"actionability"`
	OverallScore  int                      `json:"overall_score"`
	Suggestions   string                   `json:"suggestions"`
}

// parseScoreResponse extracts a scoreResponse from raw model output,
// tolerant of leading/trailing prose around a fenced code block, grounded
// fence-first, falling back
// to treating the trimmed whole response as JSON when no fence is found.
func parseScoreResponse(raw string) (*scoreResponse, error) {
	candidate := strings.TrimSpace(raw)

	if m := fencedJSONPattern.FindStringSubmatch(raw); len(m) == 2 {
		candidate = strings.TrimSpace(m[1])
	}

	if candidate == "" {
		return nil, fmt.Errorf("empty response")
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return nil, fmt.Errorf("decoding score JSON: %w", err)
	}

	return &resp, nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// validateOverall implements §4.4 step 4: overall is taken from the model
// unless it falls outside [min,max] of the four dimensions by more than 10,
// in which case it is replaced by their mean.
func validateOverall(overall int, dims ...taskstore.DimensionScore) int {
	min, max, sum := dims[0].Score, dims[0].Score, 0
	for _, d := range dims {
		if d.Score < min {
			min = d.Score
		}
		if d.Score > max {
			max = d.Score
		}
		sum += d.Score
	}

	if overall >= min-10 && overall <= max+10 {
		return clamp(overall)
	}
	return clamp(sum / len(dims))
}
