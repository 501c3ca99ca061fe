package scorer

import (
	"testing"

	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
)

const fencedScoreJSON = "Sure, here is the review:\n```json\n" + `{
  "format": {"score": 80, "feedback": "clean"},
  "content": {"score": 70, "feedback": "ok"},
  "clarity": {"score": 90, "feedback": "clear"},
  "actionability": {"score": 60, "feedback": "vague"},
  "overall_score": 75,
  "suggestions": "add repro steps"
}` + "\n```\nLet me know if you need anything else."

func TestParseScoreResponseExtractsFencedJSON(t *testing.T) {
	resp, err := parseScoreResponse(fencedScoreJSON)
	if err != nil {
		t.Fatalf("parseScoreResponse() error = %v", err)
	}
	if resp.Format.Score != 80 || resp.OverallScore != 75 || resp.Suggestions != "add repro steps" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestParseScoreResponseAcceptsBareJSON(t *testing.T) {
	raw := `{"format":{"score":50,"feedback":"x"},"content":{"score":50,"feedback":"x"},"clarity":{"score":50,"feedback":"x"},"actionability":{"score":50,"feedback":"x"},"overall_score":50,"suggestions":"x"}`
	resp, err := parseScoreResponse(raw)
	if err != nil {
		t.Fatalf("parseScoreResponse() error = %v", err)
	}
	if resp.OverallScore != 50 {
		t.Errorf("overall = %d, want 50", resp.OverallScore)
	}
}

func TestParseScoreResponseRejectsProseOnly(t *testing.T) {
	if _, err := parseScoreResponse("I cannot score this."); err == nil {
		t.Error("expected parse error for non-JSON prose")
	}
}

func TestClampBoundsScores(t *testing.T) {
	if clamp(-5) != 0 {
		t.Errorf("clamp(-5) = %d, want 0", clamp(-5))
	}
	if clamp(150) != 100 {
		t.Errorf("clamp(150) = %d, want 100", clamp(150))
	}
	if clamp(42) != 42 {
		t.Errorf("clamp(42) = %d, want 42", clamp(42))
	}
}

func TestValidateOverallKeepsModelValueWithinWindow(t *testing.T) {
	dims := []taskstore.DimensionScore{{Score: 60}, {Score: 70}, {Score: 80}, {Score: 65}}
	if got := validateOverall(75, dims...); got != 75 {
		t.Errorf("got %d, want 75 (within window)", got)
	}
}

func TestValidateOverallReplacesOutlierWithMean(t *testing.T) {
	dims := []taskstore.DimensionScore{{Score: 10}, {Score: 20}, {Score: 15}, {Score: 15}}
	got := validateOverall(95, dims...)
	want := (10 + 20 + 15 + 15) / 4
	if got != want {
		t.Errorf("got %d, want mean %d", got, want)
	}
}
