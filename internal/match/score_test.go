package match

import (
	"strings"
	"testing"
)

func grantFixture() map[string]any {
	return map[string]any{
		"grant_name":         "Community Care Fund",
		"timeline_condition": "projects must start by december 2025",
		"budget_policy":      "funding capped at $50,000 per project",
		"key_directions":     []any{"Elderly Care", "Digital Inclusion"},
	}
}

func projectFixture() map[string]any {
	return map[string]any{
		"project_name":   "Silver Surfers",
		"timeline":       "starting december 2025",
		"budget":         "SGD 12,345",
		"key_directions": []any{"elderly care"},
	}
}

func TestScoreAllCriteriaMatch(t *testing.T) {
	verdict := Score(grantFixture(), projectFixture())

	if !verdict.Timeline.Match {
		t.Errorf("expected timeline match, note: %s", verdict.Timeline.Note)
	}
	if !verdict.Budget.Match {
		t.Errorf("expected budget match, note: %s", verdict.Budget.Note)
	}
	if !verdict.KeyDirections.Match {
		t.Errorf("expected key directions match, note: %s", verdict.KeyDirections.Note)
	}
	if verdict.MatchPercent != 100 {
		t.Errorf("expected 100%%, got %d", verdict.MatchPercent)
	}
	if !verdict.OverallMatch {
		t.Error("expected overall match")
	}
}

func TestScoreNoCriteriaMatch(t *testing.T) {
	grant := map[string]any{
		"timeline_condition": "quarter-one",
		"budget_policy":      "generous funding available",
		"key_directions":     []any{"climate"},
	}
	project := map[string]any{
		"timeline":       "sometime next year",
		"budget":         "to be determined",
		"key_directions": []any{"education"},
	}

	verdict := Score(grant, project)
	if verdict.MatchPercent != 0 {
		t.Errorf("expected 0%%, got %d", verdict.MatchPercent)
	}
	if verdict.OverallMatch {
		t.Error("expected no overall match")
	}
}

// Percentages are round(score/3*100): the 1/3 and 2/3 boundaries must land
// on 33 and 67, and the overall threshold of 60 must split them.
func TestScorePercentBoundaries(t *testing.T) {
	tests := []struct {
		score       int
		wantPercent int
		wantOverall bool
	}{
		{0, 0, false},
		{1, 33, false},
		{2, 67, true},
		{3, 100, true},
	}

	for _, tt := range tests {
		got := percent(tt.score)
		if got != tt.wantPercent {
			t.Errorf("percent(%d) = %d, want %d", tt.score, got, tt.wantPercent)
		}
		if (got >= OverallThreshold) != tt.wantOverall {
			t.Errorf("score %d: overall = %v, want %v", tt.score, got >= OverallThreshold, tt.wantOverall)
		}
	}
}

func TestScoreExactlyOneCriterion(t *testing.T) {
	grant := map[string]any{
		"timeline_condition": "by december 2025",
		"budget_policy":      "no numbers here",
		"key_directions":     []any{"climate"},
	}
	project := map[string]any{
		"timeline":       "starting december 2025",
		"budget":         "also no numbers",
		"key_directions": []any{"education"},
	}

	verdict := Score(grant, project)
	if verdict.MatchPercent != 33 {
		t.Errorf("expected 33%%, got %d", verdict.MatchPercent)
	}
	if verdict.OverallMatch {
		t.Error("33%% must not be an overall match")
	}
}

func TestScoreExactlyTwoCriteria(t *testing.T) {
	grant := grantFixture()
	project := projectFixture()
	project["key_directions"] = []any{"unrelated theme"}

	verdict := Score(grant, project)
	if verdict.MatchPercent != 67 {
		t.Errorf("expected 67%%, got %d", verdict.MatchPercent)
	}
	if !verdict.OverallMatch {
		t.Error("67%% must be an overall match")
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"$12,345", 12345},
		{"abc", 0},
		{"no digits here, just 12", 0},
		{"1,000 dollars", 1000},
		{"cap is 500 SGD", 500},
		{"99", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExtractNumber(tt.in); got != tt.want {
				t.Errorf("ExtractNumber(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestBudgetNotEvaluableWhenEitherSideMissing(t *testing.T) {
	tests := []struct {
		name          string
		grantPolicy   string
		projectBudget string
	}{
		{"no grant number", "generous funding", "$5,000"},
		{"no project number", "up to $50,000", "modest"},
		{"neither", "generous", "modest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crit := scoreBudget(tt.grantPolicy, tt.projectBudget)
			if crit.Match {
				t.Error("expected no match")
			}
			if crit.Note != "Budget could not be numerically evaluated." {
				t.Errorf("unexpected note: %s", crit.Note)
			}
		})
	}
}

func TestBudgetExceedsCap(t *testing.T) {
	crit := scoreBudget("up to $10,000", "$25,000 requested")
	if crit.Match {
		t.Error("expected no match when project exceeds cap")
	}
	if !strings.Contains(crit.Note, "exceeds") {
		t.Errorf("unexpected note: %s", crit.Note)
	}
}

func TestKeyDirectionsCaseInsensitive(t *testing.T) {
	crit := scoreKeyDirections([]string{"Elderly Care"}, []string{"elderly care"})
	if !crit.Match {
		t.Fatalf("expected case-insensitive overlap, note: %s", crit.Note)
	}
	if !strings.Contains(crit.Note, "elderly care") {
		t.Errorf("note should list the overlap: %s", crit.Note)
	}
}

func TestKeyDirectionsNoteIsSorted(t *testing.T) {
	crit := scoreKeyDirections(
		[]string{"Zebra", "Apple", "Mango"},
		[]string{"zebra", "apple", "mango"},
	)
	if crit.Note != "Shared priorities: apple, mango, zebra" {
		t.Errorf("expected sorted note, got: %s", crit.Note)
	}
}

// A single grant token contained anywhere in the project timeline is enough,
// even when it is a common word.
func TestTimelineTokenSubstring(t *testing.T) {
	tests := []struct {
		name      string
		grant     string
		project   string
		wantMatch bool
	}{
		{"shared month word", "by december 2025", "starting december 2025", true},
		{"common word false positive", "within the year", "the project runs in march", true},
		{"disjoint tokens", "quarter-one only", "sometime soon", false},
		{"empty grant condition", "", "starting december 2025", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crit := scoreTimeline(tt.grant, tt.project)
			if crit.Match != tt.wantMatch {
				t.Errorf("scoreTimeline(%q, %q) match = %v, want %v", tt.grant, tt.project, crit.Match, tt.wantMatch)
			}
		})
	}
}

func TestScoreOtherFieldsPassthrough(t *testing.T) {
	grant := grantFixture()
	grant["eligible_applicants"] = "registered nonprofits"
	grant["selection_criteria"] = "impact and feasibility"
	project := projectFixture()
	project["target_beneficiaries"] = "seniors in rental flats"
	project["justification"] = "isolation during the pandemic"

	verdict := Score(grant, project)
	if verdict.OtherFields["eligible_applicants"] != "registered nonprofits" {
		t.Error("eligible_applicants not passed through")
	}
	if verdict.OtherFields["target_beneficiaries"] != "seniors in rental flats" {
		t.Error("target_beneficiaries not passed through")
	}
	if verdict.OtherFields["selection_criteria"] != "impact and feasibility" {
		t.Error("selection_criteria not passed through")
	}
	if verdict.OtherFields["justification"] != "isolation during the pandemic" {
		t.Error("justification not passed through")
	}
}

func TestScoreNamesDefaulted(t *testing.T) {
	verdict := Score(map[string]any{}, map[string]any{})
	if verdict.GrantName != "Unnamed Grant" {
		t.Errorf("got grant name %q", verdict.GrantName)
	}
	if verdict.ProjectName != "Unnamed Project" {
		t.Errorf("got project name %q", verdict.ProjectName)
	}
}
