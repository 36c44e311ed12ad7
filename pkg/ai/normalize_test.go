package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `{
  "criterion_breakdown": [
    {"name": "Grammar", "max_points": 20, "awarded_points": 18, "specific_feedback": "Few typos", "improvement_suggestions": "Proofread"},
    {"name": "Content", "max_points": 80, "awarded_points": 72, "specific_feedback": "Solid", "improvement_suggestions": "More sources"}
  ],
  "total_score": 90,
  "overall_grade": "A-",
  "overall_feedback": "Strong work overall.",
  "key_strengths": ["Clear structure", "Good argument"],
  "areas_for_improvement": ["Citations"]
}`

func TestNormalizeWellFormed(t *testing.T) {
	result := Normalize(wellFormed)

	require.False(t, result.Degraded)
	require.Len(t, result.CriterionBreakdown, 2)
	assert.Equal(t, "Grammar", result.CriterionBreakdown[0].Name)
	assert.Equal(t, "Content", result.CriterionBreakdown[1].Name)
	assert.Equal(t, 18.0, *result.CriterionBreakdown[0].AwardedPoints)
	assert.Equal(t, 20.0, *result.CriterionBreakdown[0].MaxPoints)
	assert.Equal(t, "Proofread", result.CriterionBreakdown[0].ImprovementSuggestions)

	score, ok := result.TotalScore.Number()
	require.True(t, ok)
	assert.Equal(t, 90.0, score)
	assert.Equal(t, "90", result.TotalScore.String())
	assert.Equal(t, "A-", result.OverallGrade)
	assert.Equal(t, "Strong work overall.", result.OverallFeedback)
	assert.Equal(t, []string{"Clear structure", "Good argument"}, result.KeyStrengths)
	assert.Equal(t, []string{"Citations"}, result.AreasForImprovement)
	assert.Empty(t, result.Warnings)
	assert.Nil(t, result.Extras)
}

func TestNormalizeKeepsCriteriaCountAndOrder(t *testing.T) {
	for _, n := range []int{0, 1, 3, 12} {
		t.Run(fmt.Sprintf("%d criteria", n), func(t *testing.T) {
			items := make([]string, 0, n)
			for i := 0; i < n; i++ {
				items = append(items, fmt.Sprintf(`{"name":"c%d","max_points":10,"awarded_points":%d}`, i, i%11))
			}
			raw := fmt.Sprintf(`{"criterion_breakdown":[%s],"total_score":1,"overall_grade":"C","overall_feedback":"ok"}`, strings.Join(items, ","))

			result := Normalize(raw)
			require.Len(t, result.CriterionBreakdown, n)
			for i, c := range result.CriterionBreakdown {
				assert.Equal(t, fmt.Sprintf("c%d", i), c.Name)
			}
		})
	}
}

func TestNormalizeInvalidJSONDegrades(t *testing.T) {
	inputs := []string{
		"Sorry, I cannot evaluate this.",
		"",
		"   ",
		`{"total_score": 90`,
		"Here is the evaluation: {\"total_score\": 90}",
		"```json\n{\"total_score\": 90}\n```",
	}

	for _, raw := range inputs {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			result := Normalize(raw)
			assert.True(t, result.Degraded)
			assert.Equal(t, raw, result.OverallFeedback)
			assert.Equal(t, ScoreUndetermined, result.TotalScore.String())
			assert.Empty(t, result.CriterionBreakdown)
			assert.Empty(t, result.OverallGrade)
			assert.Empty(t, result.KeyStrengths)
			assert.Empty(t, result.AreasForImprovement)
		})
	}
}

func TestNormalizeNonObjectJSONDegrades(t *testing.T) {
	for _, raw := range []string{`[1,2,3]`, `"just a string"`, `42`, `null`} {
		result := Normalize(raw)
		assert.True(t, result.Degraded, raw)
		assert.Equal(t, raw, result.OverallFeedback)
	}
}

func TestNormalizeMissingFieldsAreAbsent(t *testing.T) {
	result := Normalize(`{"overall_feedback": "Only feedback"}`)

	assert.False(t, result.Degraded)
	assert.True(t, result.TotalScore.IsZero())
	assert.Empty(t, result.OverallGrade)
	assert.Empty(t, result.CriterionBreakdown)
	assert.NotNil(t, result.KeyStrengths)
	assert.NotEmpty(t, result.Warnings)
}

func TestNormalizeExtraFieldsKept(t *testing.T) {
	result := Normalize(`{"total_score": "B+ range", "confidence": 0.8, "overall_grade": "B+"}`)

	assert.Equal(t, "B+ range", result.TotalScore.String())
	_, numeric := result.TotalScore.Number()
	assert.False(t, numeric)
	require.Contains(t, result.Extras, "confidence")
	assert.Equal(t, 0.8, result.Extras["confidence"])
}

func TestNormalizeNumericStrings(t *testing.T) {
	result := Normalize(`{"criterion_breakdown":[{"name":"Style","max_points":"10","awarded_points":" 7.5 "}]}`)

	require.Len(t, result.CriterionBreakdown, 1)
	pct, ok := result.CriterionBreakdown[0].Percentage()
	require.True(t, ok)
	assert.InDelta(t, 75.0, pct, 1e-9)
}

func TestNormalizeClampsAwardedPoints(t *testing.T) {
	result := Normalize(`{"criterion_breakdown":[
		{"name":"Over","max_points":10,"awarded_points":12},
		{"name":"Under","max_points":10,"awarded_points":-3},
		{"name":"NegativeMax","max_points":-5,"awarded_points":2}
	]}`)

	require.Len(t, result.CriterionBreakdown, 3)
	assert.Equal(t, 10.0, *result.CriterionBreakdown[0].AwardedPoints)
	assert.Equal(t, 0.0, *result.CriterionBreakdown[1].AwardedPoints)
	assert.Nil(t, result.CriterionBreakdown[2].MaxPoints)
	assert.Equal(t, 2.0, *result.CriterionBreakdown[2].AwardedPoints)

	joined := strings.Join(result.Warnings, "\n")
	assert.Contains(t, joined, "capped at max_points 10")
	assert.Contains(t, joined, "raised to 0")
	assert.Contains(t, joined, "negative max_points dropped")
}

func TestNormalizeSkipsNonObjectCriteria(t *testing.T) {
	result := Normalize(`{"criterion_breakdown":[{"name":"A","max_points":5,"awarded_points":5},"oops"]}`)

	require.Len(t, result.CriterionBreakdown, 1)
	assert.Contains(t, strings.Join(result.Warnings, "\n"), "criterion_breakdown[1] is not an object")
}

func TestNormalizeLenientStripsFences(t *testing.T) {
	n := NewNormalizer(WithLenientParsing(true))
	result := n.Normalize("```json\n{\"total_score\": 88, \"overall_grade\": \"B+\"}\n```")

	assert.False(t, result.Degraded)
	assert.Equal(t, "88", result.TotalScore.String())

	degraded := n.Normalize("Sorry, I cannot evaluate this.")
	assert.True(t, degraded.Degraded)
	assert.Equal(t, "Sorry, I cannot evaluate this.", degraded.OverallFeedback)
}

func TestPercentage(t *testing.T) {
	twenty, fifteen, zero := 20.0, 15.0, 0.0

	pct, ok := Criterion{MaxPoints: &twenty, AwardedPoints: &fifteen}.Percentage()
	require.True(t, ok)
	assert.Equal(t, "75.0", fmt.Sprintf("%.1f", pct))

	_, ok = Criterion{MaxPoints: &zero, AwardedPoints: &zero}.Percentage()
	assert.False(t, ok)

	_, ok = Criterion{AwardedPoints: &fifteen}.Percentage()
	assert.False(t, ok)
}

func TestScoreJSON(t *testing.T) {
	tests := []struct {
		score Score
		want  string
	}{
		{NumberScore(90), `90`},
		{NumberScore(87.5), `87.5`},
		{TextScore(ScoreUndetermined), `"Unable to parse exact score"`},
		{Score{}, `null`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.score)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))

		var decoded Score
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, tt.score.String(), decoded.String())
	}

	var bad Score
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain JSON unchanged", input: `{"a": 1}`, want: `{"a": 1}`},
		{name: "fenced json block", input: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "fenced without language", input: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "surrounding whitespace", input: "  ```json\n{\"a\": 1}\n```  ", want: `{"a": 1}`},
		{name: "only fences", input: "```json\n```", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripMarkdownFences(tt.input)
			if got != tt.want {
				t.Errorf("stripMarkdownFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
