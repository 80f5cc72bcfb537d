// Package match scores eligibility between a grant and a project across
// three independent, unweighted criteria.
package match

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// totalCriteria is fixed: timeline, budget, key directions.
const totalCriteria = 3

// OverallThreshold is the minimum match_percent for an overall match.
const OverallThreshold = 60

var numberPattern = regexp.MustCompile(`\d{3,}`)

type Criterion struct {
	Match bool   `json:"match"`
	Note  string `json:"note"`
}

type Verdict struct {
	ProjectName   string         `json:"project_name"`
	GrantName     string         `json:"grant_name"`
	MatchPercent  int            `json:"match_percent"`
	OverallMatch  bool           `json:"overall_match"`
	Timeline      Criterion      `json:"timeline"`
	Budget        Criterion      `json:"budget"`
	KeyDirections Criterion      `json:"key_directions"`
	OtherFields   map[string]any `json:"other_fields"`
}

// Score computes the eligibility verdict for a grant/project pair. It is a
// pure function: no I/O, no persistence.
func Score(grant, project map[string]any) Verdict {
	verdict := Verdict{
		ProjectName:   stringField(project, "project_name", "Unnamed Project"),
		GrantName:     stringField(grant, "grant_name", "Unnamed Grant"),
		Timeline:      Criterion{Note: "Not evaluated"},
		Budget:        Criterion{Note: "Not evaluated"},
		KeyDirections: Criterion{Note: "Not evaluated"},
	}

	score := 0

	verdict.Timeline = scoreTimeline(
		stringField(grant, "timeline_condition", ""),
		stringField(project, "timeline", ""),
	)
	if verdict.Timeline.Match {
		score++
	}

	verdict.Budget = scoreBudget(
		stringField(grant, "budget_policy", ""),
		stringField(project, "budget", ""),
	)
	if verdict.Budget.Match {
		score++
	}

	verdict.KeyDirections = scoreKeyDirections(
		listField(grant, "key_directions"),
		listField(project, "key_directions"),
	)
	if verdict.KeyDirections.Match {
		score++
	}

	verdict.OtherFields = map[string]any{
		"eligible_applicants":  valueOrEmpty(grant, "eligible_applicants"),
		"target_beneficiaries": valueOrEmpty(project, "target_beneficiaries"),
		"selection_criteria":   valueOrEmpty(grant, "selection_criteria"),
		"justification":        valueOrEmpty(project, "justification"),
	}

	verdict.MatchPercent = percent(score)
	verdict.OverallMatch = verdict.MatchPercent >= OverallThreshold
	return verdict
}

// percent rounds score/total to a whole percentage, half away from zero:
// 1/3 -> 33, 2/3 -> 67.
func percent(score int) int {
	return int(math.Round(float64(score) / totalCriteria * 100))
}

// scoreTimeline matches when ANY whitespace token of the grant condition is
// contained as a substring of the project timeline. A single common word is
// enough to match.
func scoreTimeline(grantCondition, projectTimeline string) Criterion {
	condition := strings.ToLower(grantCondition)
	timeline := strings.ToLower(projectTimeline)

	for _, token := range strings.Fields(condition) {
		if strings.Contains(timeline, token) {
			return Criterion{Match: true, Note: "Project timeline aligns with grant requirement."}
		}
	}
	return Criterion{Note: "Project timeline may not align clearly."}
}

func scoreBudget(grantPolicy, projectBudget string) Criterion {
	grantAmount := ExtractNumber(grantPolicy)
	projectAmount := ExtractNumber(projectBudget)

	if grantAmount == 0 || projectAmount == 0 {
		return Criterion{Note: "Budget could not be numerically evaluated."}
	}
	if projectAmount <= grantAmount {
		return Criterion{
			Match: true,
			Note:  fmt.Sprintf("Project budget ($%d) is within grant budget ($%d).", projectAmount, grantAmount),
		}
	}
	return Criterion{
		Note: fmt.Sprintf("Project budget ($%d) exceeds grant cap ($%d).", projectAmount, grantAmount),
	}
}

// ExtractNumber returns the first run of at least three consecutive digits
// after stripping thousands-separator commas, or 0 when none exists.
func ExtractNumber(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	digits := numberPattern.FindString(s)
	if digits == "" {
		return 0
	}
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	return n
}

func scoreKeyDirections(grantDirs, projectDirs []string) Criterion {
	grantSet := make(map[string]struct{}, len(grantDirs))
	for _, d := range grantDirs {
		grantSet[strings.ToLower(d)] = struct{}{}
	}

	overlapSet := make(map[string]struct{})
	for _, d := range projectDirs {
		lower := strings.ToLower(d)
		if _, ok := grantSet[lower]; ok {
			overlapSet[lower] = struct{}{}
		}
	}

	if len(overlapSet) == 0 {
		return Criterion{Note: "No overlapping directions found."}
	}

	overlap := make([]string, 0, len(overlapSet))
	for d := range overlapSet {
		overlap = append(overlap, d)
	}
	sort.Strings(overlap)

	return Criterion{
		Match: true,
		Note:  "Shared priorities: " + strings.Join(overlap, ", "),
	}
}

func stringField(m map[string]any, key, fallback string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" && fallback != "" {
			return fallback
		}
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func listField(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

func valueOrEmpty(m map[string]any, key string) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return ""
}
