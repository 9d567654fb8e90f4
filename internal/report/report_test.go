package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/ats-scorer/internal/matching"
)

func TestRatingFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  Rating
	}{
		{100, RatingExcellent},
		{80, RatingExcellent},
		{79, RatingGood},
		{60, RatingGood},
		{59, RatingFair},
		{40, RatingFair},
		{39, RatingNeedsImprovement},
		{0, RatingNeedsImprovement},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RatingFor(tt.score), "score %d", tt.score)
	}
}

func TestSortFindingsIsStable(t *testing.T) {
	t.Parallel()

	findings := []Finding{
		{Code: "a", Severity: SeverityInfo},
		{Code: "b", Severity: SeverityHigh},
		{Code: "c", Severity: SeverityMedium},
		{Code: "d", Severity: SeverityHigh},
		{Code: "e", Severity: SeverityInfo},
	}
	SortFindings(findings)

	codes := make([]string, len(findings))
	for i, f := range findings {
		codes[i] = f.Code
	}
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, codes)
}

func TestReportHelpers(t *testing.T) {
	t.Parallel()

	r := &Report{
		Matches: []matching.Result{
			{Keyword: "python", Verdict: matching.Matched},
			{Keyword: "aws", Verdict: matching.Missing},
			{Keyword: "data pipelines", Verdict: matching.PartiallyMatched},
			{Keyword: "terraform", Verdict: matching.Missing},
		},
		Findings: []Finding{{Code: "x"}, {Code: "y"}},
	}

	assert.Equal(t, []string{"aws", "terraform"}, r.Missing())
	assert.Equal(t, matching.Counts{Matched: 1, Partial: 1, Missing: 2}, r.Counts())

	elaborated := r.WithElaborations([]string{"first", "second"})
	assert.Equal(t, "first", elaborated.Findings[0].Elaboration)
	assert.Equal(t, "second", elaborated.Findings[1].Elaboration)
	assert.Empty(t, r.Findings[0].Elaboration, "original must stay untouched")
}

func TestReportJSON(t *testing.T) {
	t.Parallel()

	r := &Report{
		OverallScore:      42,
		Rating:            RatingFair,
		Sections:          []SectionStatus{{Name: "skills", Present: true, Inferred: true}},
		Findings:          []Finding{},
		DictionaryVersion: "test",
	}

	data, err := r.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 42, decoded["overall_score"])
	assert.Equal(t, "fair", decoded["rating"])
	assert.Equal(t, []any{}, decoded["findings"])
	assert.NotContains(t, decoded, "job")
	assert.Contains(t, string(data), "\n  \"rating\"")
}
