package ats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/config"
	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/feedback"
	"github.com/spigell/ats-scorer/internal/matching"
	"github.com/spigell/ats-scorer/internal/normalize"
	"github.com/spigell/ats-scorer/internal/report"
)

func newEngine(t *testing.T, cfg config.Scoring, opts ...Option) *Engine {
	t.Helper()
	d, err := dictionary.Default()
	require.NoError(t, err)
	e, err := New(d, cfg, opts...)
	require.NoError(t, err)
	return e
}

func match(t *testing.T, r *report.Report, keyword string) matching.Result {
	t.Helper()
	for _, m := range r.Matches {
		if m.Keyword == keyword {
			return m
		}
	}
	t.Fatalf("keyword %q not in report", keyword)
	return matching.Result{}
}

func findingCodes(r *report.Report) []string {
	out := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = f.Code
	}
	return out
}

func TestEvaluateScenarios(t *testing.T) {
	t.Parallel()

	e := newEngine(t, config.Default(), WithLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	t.Run("exact matches score high", func(t *testing.T) {
		t.Parallel()

		r := e.Evaluate(ctx, "Skilled Python developer with AWS experience.", "Must have Python and AWS.")

		for _, kw := range []string{"python", "aws"} {
			m := match(t, r, kw)
			assert.Equal(t, matching.Matched, m.Verdict, kw)
			assert.Equal(t, matching.BasisExact, m.Basis, kw)
		}
		assert.InDelta(t, 100, r.SubScores.KeywordCoverage, 1e-9)
		assert.GreaterOrEqual(t, r.OverallScore, 90)
		assert.Equal(t, report.RatingExcellent, r.Rating)
	})

	t.Run("empty resume", func(t *testing.T) {
		t.Parallel()

		r := e.Evaluate(ctx, "", "Must have SQL.")
		assert.Equal(t, 0, r.OverallScore)
		require.Len(t, r.Findings, 1)
		assert.Equal(t, CodeMissingInput, r.Findings[0].Code)
		assert.Equal(t, report.SeverityHigh, r.Findings[0].Severity)
		assert.Contains(t, r.Findings[0].Message, "resume")
	})

	t.Run("stemmed match", func(t *testing.T) {
		t.Parallel()

		r := e.Evaluate(ctx, "Led and managed cross-functional teams.", "Experience managing teams.")
		m := match(t, r, "managing")
		assert.Equal(t, matching.Matched, m.Verdict)
		assert.Equal(t, matching.BasisStemmed, m.Basis)
		assert.Equal(t, []string{"managed"}, m.MatchedTerms)
	})

	t.Run("synonym match", func(t *testing.T) {
		t.Parallel()

		r := e.Evaluate(ctx, "3 years of JS development.", "JavaScript required.")
		m := match(t, r, "javascript")
		assert.Equal(t, matching.Matched, m.Verdict)
		assert.Equal(t, matching.BasisSynonym, m.Basis)
	})

	t.Run("keyword stuffing", func(t *testing.T) {
		t.Parallel()

		r := e.Evaluate(ctx, "Python Python Python Python Python", "Python")
		assert.InDelta(t, 100, r.SubScores.KeywordCoverage, 1e-9)
		assert.True(t, r.SubScores.Stuffing)
		assert.Contains(t, findingCodes(r), feedback.CodeKeywordStuffing)
	})
}

func TestEvaluateMissingInputs(t *testing.T) {
	t.Parallel()

	e := newEngine(t, config.Default())

	tests := []struct {
		name   string
		resume string
		job    string
		want   string
	}{
		{"no job description", "Go developer", "   ", "job description"},
		{"job without keywords", "Go developer", "the and of", "job description"},
		{"both empty", "", "", "resume and job description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := e.Evaluate(context.Background(), tt.resume, tt.job)
			require.Len(t, r.Findings, 1)
			assert.Equal(t, CodeMissingInput, r.Findings[0].Code)
			assert.Equal(t, tt.want, r.Findings[0].Section)
			assert.Equal(t, report.RatingNeedsImprovement, r.Rating)
		})
	}
}

const (
	sampleResume = `Jane Doe
Summary
Backend engineer building data pipelines in Go.
Experience
Senior developer at Acme. Led migration to Kubernetes on AWS.
Skills: Go, PostgreSQL, Terraform, Docker`
	sampleJob = `Requirements
Strong Go and Kubernetes knowledge.
Experience with AWS, Terraform and Kafka.
Nice to have
Rust`
)

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	e := newEngine(t, config.Default())
	first, err := e.Score(sampleResume, sampleJob).JSON()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := e.Score(sampleResume, sampleJob).JSON()
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestScoreIsIdempotentUnderNormalization(t *testing.T) {
	t.Parallel()

	e := newEngine(t, config.Default())
	rules := e.Dictionary().HeaderRules()

	raw := e.Score(sampleResume, sampleJob)
	rendered := e.Score(
		normalize.Normalize(sampleResume, rules).Render(),
		normalize.Normalize(sampleJob, rules).Render(),
	)

	assert.Equal(t, raw.OverallScore, rendered.OverallScore)
	assert.Equal(t, raw.SubScores, rendered.SubScores)
	assert.Equal(t, raw.Matches, rendered.Matches)
}

func TestAddingKeywordNeverHurts(t *testing.T) {
	t.Parallel()

	e := newEngine(t, config.Default())

	tests := []struct {
		name     string
		resume   string
		job      string
		addition string
		keyword  string
	}{
		{
			name:     "unigram",
			resume:   sampleResume,
			job:      sampleJob,
			addition: "\nStreaming with Kafka",
			keyword:  "kafka",
		},
		{
			name:     "phrase seen once in the resume",
			resume:   "Skills\nGo, SQL",
			job:      "Build data pipelines.\nOwn data pipelines end to end.",
			addition: "\nI designed data pipelines for analytics.",
			keyword:  "data pipelines",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := e.Score(tt.resume, tt.job)
			require.Equal(t, matching.Missing, match(t, base, tt.keyword).Verdict)

			improved := e.Score(tt.resume+tt.addition, tt.job)
			m := match(t, improved, tt.keyword)
			assert.Equal(t, matching.Matched, m.Verdict)
			assert.Equal(t, matching.BasisExact, m.Basis)
			assert.Equal(t, []string{tt.keyword}, m.MatchedTerms)

			assert.Greater(t, improved.SubScores.KeywordCoverage, base.SubScores.KeywordCoverage)
			assert.GreaterOrEqual(t, improved.OverallScore, base.OverallScore)
		})
	}
}

func TestNewRejectsConfig(t *testing.T) {
	t.Parallel()

	d, err := dictionary.Default()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*config.Scoring)
		field  string
	}{
		{"bad weights", func(c *config.Scoring) { c.ScoreWeights.Coverage = 0.9 }, "Scoring.ScoreWeights"},
		{"unknown required section", func(c *config.Scoring) { c.RequiredSections = []string{"hobbies"} }, "Scoring.RequiredSections"},
		{"unknown emphasis section", func(c *config.Scoring) { c.JobEmphasis.Sections = []string{"perks"} }, "Scoring.Emphasis.Sections"},
		{"unknown rule", func(c *config.Scoring) { c.DisabledRules = []string{"nope"} }, "Scoring.DisabledRules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(&cfg)

			_, err := New(d, cfg)
			var ve *config.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}

	_, err = New(nil, config.Default())
	assert.Error(t, err)
}

func TestConfigOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.DisabledRules = []string{feedback.CodeNoSectionHeaders}
	cfg.SynonymDictionary = [][]string{{"golang", "gopher"}}
	cfg.SectionHeaderPatterns = map[string][]string{"skills": {"toolbox"}}
	e := newEngine(t, cfg)

	r := e.Score("Toolbox\nGopher at heart", "Golang")
	assert.Equal(t, matching.BasisSynonym, match(t, r, "golang").Basis)
	assert.True(t, r.Segmented)

	flat := e.Score("Gopher at heart", "Golang")
	assert.False(t, flat.Segmented)
	assert.NotContains(t, findingCodes(flat), feedback.CodeNoSectionHeaders)

	statuses := feedback.Describe(e.Rules())
	for _, st := range statuses {
		assert.Equal(t, st.Name != feedback.CodeNoSectionHeaders, st.Enabled, st.Name)
	}
}

func TestEvaluateElaboration(t *testing.T) {
	t.Parallel()

	const resume, job = "Python developer", "Must have Python and AWS."

	cfg := config.Default()
	cfg.ElaborationTimeoutMs = 50

	tests := []struct {
		name       string
		elaborator ai.ElaboratorFunc
		elaborated bool
		warning    string
	}{
		{
			name: "success",
			elaborator: func(_ context.Context, findings []report.Finding) ([]string, error) {
				out := make([]string, len(findings))
				for i, f := range findings {
					out[i] = "why " + f.Code
				}
				return out, nil
			},
			elaborated: true,
		},
		{
			name: "failure",
			elaborator: func(context.Context, []report.Finding) ([]string, error) {
				return nil, errors.New("quota exceeded")
			},
			warning: "quota exceeded",
		},
		{
			name: "timeout",
			elaborator: func(ctx context.Context, _ []report.Finding) ([]string, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return []string{"late"}, nil
			},
			warning: "context deadline exceeded",
		},
		{
			name: "wrong count",
			elaborator: func(context.Context, []report.Finding) ([]string, error) {
				return []string{"only one"}, nil
			},
			warning: ai.ErrElaborationMismatch.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.WarnLevel)
			e := newEngine(t, cfg, WithElaborator(tt.elaborator), WithLogger(zap.New(core)))

			baseline := e.Score(resume, job)
			r := e.Evaluate(context.Background(), resume, job)

			require.Len(t, r.Findings, len(baseline.Findings))
			require.NotEmpty(t, r.Findings)
			for i, f := range r.Findings {
				assert.Equal(t, baseline.Findings[i].Message, f.Message)
				if tt.elaborated {
					assert.Equal(t, "why "+f.Code, f.Elaboration)
				} else {
					assert.Empty(t, f.Elaboration)
				}
			}
			assert.Equal(t, baseline.OverallScore, r.OverallScore)

			warnings := logs.FilterMessage("elaboration failed, keeping rule based findings").All()
			if tt.warning == "" {
				assert.Empty(t, warnings)
				return
			}
			require.Len(t, warnings, 1)
			assert.Contains(t, warnings[0].ContextMap()["error"], tt.warning)
		})
	}
}

func TestEvaluateElaborationDisabled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	elaborator := ai.ElaboratorFunc(func(context.Context, []report.Finding) ([]string, error) {
		calls.Add(1)
		return nil, nil
	})

	cfg := config.Default()
	cfg.ElaborationTimeoutMs = 0
	e := newEngine(t, cfg, WithElaborator(elaborator))

	r := e.Evaluate(context.Background(), "Python developer", "Must have Python and AWS.")
	assert.NotEmpty(t, r.Findings)
	assert.Zero(t, calls.Load())
}
