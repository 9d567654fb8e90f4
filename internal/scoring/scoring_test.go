package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/ats-scorer/internal/config"
	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/keywords"
	"github.com/spigell/ats-scorer/internal/matching"
	"github.com/spigell/ats-scorer/internal/normalize"
	"github.com/spigell/ats-scorer/internal/report"
)

func testDict(t *testing.T) *dictionary.Dictionary {
	t.Helper()
	d, err := dictionary.Default()
	require.NoError(t, err)
	return d
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	job := []keywords.Entry{{Term: "a", Weight: 0.5}, {Term: "b", Weight: 0.3}, {Term: "c", Weight: 0.2}}

	tests := []struct {
		name     string
		verdicts []matching.Verdict
		want     float64
	}{
		{"all matched", []matching.Verdict{matching.Matched, matching.Matched, matching.Matched}, 100},
		{"none matched", []matching.Verdict{matching.Missing, matching.Missing, matching.Missing}, 0},
		{"partial earns half", []matching.Verdict{matching.PartiallyMatched, matching.Missing, matching.Missing}, 25},
		{"mixed", []matching.Verdict{matching.Matched, matching.PartiallyMatched, matching.Missing}, 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			results := make([]matching.Result, len(job))
			for i, e := range job {
				results[i] = matching.Result{Keyword: e.Term, Weight: e.Weight, Verdict: tt.verdicts[i]}
			}
			assert.InDelta(t, tt.want, Coverage(results, job), 1e-9)
		})
	}

	assert.Zero(t, Coverage(nil, nil))
}

func TestSections(t *testing.T) {
	t.Parallel()

	d := testDict(t)
	required := []string{"experience", "education", "skills"}

	t.Run("segmented uses headers", func(t *testing.T) {
		t.Parallel()

		resume := normalize.Normalize("Experience\nBackend developer\nSkills: Go, SQL", d.HeaderRules())
		statuses, completeness := Sections(resume, d, required)

		assert.Equal(t, []report.SectionStatus{
			{Name: "experience", Present: true},
			{Name: "education", Present: false},
			{Name: "skills", Present: true},
		}, statuses)
		assert.InDelta(t, 200.0/3.0, completeness, 1e-9)
	})

	t.Run("unsegmented uses cues", func(t *testing.T) {
		t.Parallel()

		resume := normalize.Normalize("Python developer, graduated from a university", d.HeaderRules())
		require.False(t, resume.Segmented())

		statuses, completeness := Sections(resume, d, required)
		assert.Equal(t, []report.SectionStatus{
			{Name: "experience", Present: true, Inferred: true},
			{Name: "education", Present: true, Inferred: true},
			{Name: "skills", Present: false},
		}, statuses)
		assert.InDelta(t, 200.0/3.0, completeness, 1e-9)
	})

	t.Run("nothing required", func(t *testing.T) {
		t.Parallel()

		resume := normalize.Normalize("anything", d.HeaderRules())
		statuses, completeness := Sections(resume, d, nil)
		assert.Empty(t, statuses)
		assert.InDelta(t, 100, completeness, 1e-9)
	})
}

func TestDensity(t *testing.T) {
	t.Parallel()

	d := testDict(t)
	resume := normalize.Normalize("built data pipelines in go for ten teams", d.HeaderRules())
	require.Equal(t, 8, resume.Len())

	results := []matching.Result{
		{Verdict: matching.Matched, Locations: []matching.Location{{Term: "data pipelines", Position: 1}}},
		{Verdict: matching.PartiallyMatched, Locations: []matching.Location{{Term: "pipelines", Position: 2}}},
		{Verdict: matching.Matched, Locations: []matching.Location{{Term: "go", Position: 4}}},
		{Verdict: matching.PartiallyMatched, Locations: []matching.Location{{Term: "ten", Position: 6}}},
		{Verdict: matching.Missing, Locations: []matching.Location{{Term: "teams", Position: 7}}},
	}

	// overlapping occurrences count once, partial locations not at all
	assert.InDelta(t, 3.0/8.0, Density(results, resume), 1e-9)
	assert.Zero(t, Density(results, normalize.Normalize("", nil)))
}

func TestScore(t *testing.T) {
	t.Parallel()

	d := testDict(t)
	cfg := config.Default()

	job := keywords.Extract(normalize.Normalize("Must have Python and AWS.", d.HeaderRules()), keywords.RoleJobDescription, d, keywords.Options{})
	resumeText := normalize.Normalize("Python developer", d.HeaderRules())
	resume := keywords.Extract(resumeText, keywords.RoleResume, d, keywords.Options{})
	results := matching.Match(job, resume, d)

	r := Score(results, job, resumeText, d, OptionsFrom(cfg))

	assert.InDelta(t, 50, r.SubScores.KeywordCoverage, 1e-9)
	assert.InDelta(t, 33.33, r.SubScores.SectionCompleteness, 1e-9)
	assert.InDelta(t, 0.5, r.SubScores.KeywordDensity, 1e-9)
	assert.True(t, r.SubScores.Stuffing)
	// 100 * (0.7*0.5 + 0.2*(1/3) + 0.1*1)
	assert.Equal(t, 52, r.OverallScore)
	assert.Equal(t, report.RatingFair, r.Rating)
	assert.False(t, r.Segmented)
	assert.Equal(t, 2, r.ResumeTokens)
	assert.Equal(t, d.Version(), r.DictionaryVersion)
	assert.NotNil(t, r.Findings)
	assert.Len(t, r.Matches, 2)
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	d := testDict(t)
	opts := OptionsFrom(config.Default())

	empty := Score(nil, nil, normalize.Normalize("", nil), d, opts)
	assert.GreaterOrEqual(t, empty.OverallScore, 0)
	assert.LessOrEqual(t, empty.OverallScore, 100)
	assert.Equal(t, report.RatingNeedsImprovement, empty.Rating)

	opts.Weights = config.Weights{Coverage: 1}
	resumeText := normalize.Normalize("Go", d.HeaderRules())
	job := []keywords.Entry{{Term: "go", Weight: 1}}
	full := Score([]matching.Result{{Keyword: "go", Weight: 1, Verdict: matching.Matched}}, job, resumeText, d, opts)
	assert.Equal(t, 100, full.OverallScore)
	assert.Equal(t, report.RatingExcellent, full.Rating)
}
