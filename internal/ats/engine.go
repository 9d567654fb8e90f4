// Package ats wires normalization, extraction, matching, scoring and feedback
// into a single evaluation.
package ats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ai"
	"github.com/spigell/ats-scorer/internal/config"
	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/feedback"
	"github.com/spigell/ats-scorer/internal/keywords"
	"github.com/spigell/ats-scorer/internal/logger"
	"github.com/spigell/ats-scorer/internal/matching"
	"github.com/spigell/ats-scorer/internal/normalize"
	"github.com/spigell/ats-scorer/internal/report"
	"github.com/spigell/ats-scorer/internal/scoring"
)

const (
	CodeMissingInput = "missing_input"
	tmplMissingInput = `No {input} content to evaluate. Provide the full text and try again.`
)

// Engine evaluates resumes against job descriptions. It holds only
// immutable state and is safe for concurrent use.
type Engine struct {
	dict       *dictionary.Dictionary
	cfg        config.Scoring
	elaborator ai.Elaborator
	logger     *zap.Logger
}

type Option func(*Engine)

// WithElaborator enables prose elaboration of findings.
func WithElaborator(e ai.Elaborator) Option {
	return func(en *Engine) { en.elaborator = e }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(en *Engine) { en.logger = l }
}

// New validates cfg, applies its dictionary overrides and returns an Engine.
func New(dict *dictionary.Dictionary, cfg config.Scoring, opts ...Option) (*Engine, error) {
	if dict == nil {
		return nil, fmt.Errorf("dictionary is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	merged, err := dict.With(dictionary.Overrides{
		Stopwords:      cfg.Stopwords,
		Synonyms:       cfg.SynonymDictionary,
		HeaderPatterns: cfg.SectionHeaderPatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("applying dictionary overrides: %w", err)
	}

	ve := &config.ValidationError{}
	for _, s := range cfg.RequiredSections {
		if !merged.HasSection(s) {
			ve.Errors = append(ve.Errors, config.FieldError{Field: "Scoring.RequiredSections", Message: fmt.Sprintf("unknown section %q", s)})
		}
	}
	for _, s := range append(append([]string(nil), cfg.JobEmphasis.Sections...), cfg.ResumeEmphasis.Sections...) {
		if s != normalize.BodySection && !merged.HasSection(s) {
			ve.Errors = append(ve.Errors, config.FieldError{Field: "Scoring.Emphasis.Sections", Message: fmt.Sprintf("unknown section %q", s)})
		}
	}
	if unknown := feedback.DisableByName(feedback.Rules(), cfg.DisabledRules, ""); len(unknown) > 0 {
		ve.Errors = append(ve.Errors, config.FieldError{Field: "Scoring.DisabledRules", Message: fmt.Sprintf("unknown rules %v", unknown)})
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}

	e := &Engine{dict: merged, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	return e, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() config.Scoring {
	return e.cfg
}

// Dictionary returns the dictionary with configuration overrides applied.
func (e *Engine) Dictionary() *dictionary.Dictionary {
	return e.dict
}

// Rules returns the feedback rule table with configured rules disabled.
func (e *Engine) Rules() []feedback.Rule {
	rules := feedback.Rules()
	feedback.DisableByName(rules, e.cfg.DisabledRules, "disabled in config")
	return rules
}

// Evaluate scores resume against jobDescription and, when an elaborator is
// set, attaches prose to the findings. It never fails: elaboration errors
// are logged and the rule based report is returned unchanged.
func (e *Engine) Evaluate(ctx context.Context, resume, jobDescription string) *report.Report {
	r := e.Score(resume, jobDescription)

	if e.elaborator != nil && len(r.Findings) > 0 {
		r = e.elaborate(ctx, r)
	}

	e.logger.Info("resume evaluated", logger.ReportFields(r)...)
	return r
}

// Score runs the deterministic pipeline only.
func (e *Engine) Score(resume, jobDescription string) *report.Report {
	rules := e.dict.HeaderRules()
	resumeText := normalize.Normalize(resume, rules)
	jobText := normalize.Normalize(jobDescription, rules)

	jobKeywords := keywords.Extract(jobText, keywords.RoleJobDescription, e.dict, keywords.Options{
		Emphasis:           e.cfg.JobEmphasis.Map(),
		PhraseMinFrequency: e.cfg.PhraseMinFrequency,
		MaxKeywords:        e.cfg.MaxJobKeywords,
	})
	resumeKeywords := keywords.Extract(resumeText, keywords.RoleResume, e.dict, keywords.Options{
		Emphasis:           e.cfg.ResumeEmphasis.Map(),
		PhraseMinFrequency: e.cfg.PhraseMinFrequency,
	})

	e.logger.Debug("keywords extracted",
		zap.Int("resume_tokens", resumeText.Len()),
		zap.Int("job_tokens", jobText.Len()),
		zap.Int("job_keywords", len(jobKeywords)),
		zap.Int("resume_keywords", len(resumeKeywords)),
		zap.Bool("resume_segmented", resumeText.Segmented()),
	)

	results := matching.Match(jobKeywords, resumeKeywords, e.dict)

	if missing := missingInputs(resumeText, jobText, jobKeywords); missing != "" {
		return e.emptyReport(results, missing)
	}

	r := scoring.Score(results, jobKeywords, resumeText, e.dict, scoring.OptionsFrom(e.cfg))
	r.Findings = feedback.Run(feedback.Input{
		Report: r,
		Dict:   e.dict,
		Options: feedback.Options{
			MinFindingWeight: e.cfg.MinFindingWeight,
			PassThreshold:    e.cfg.PassThreshold,
		},
	}, e.Rules(), e.logger)

	return r
}

func missingInputs(resume, job *normalize.Text, jobKeywords []keywords.Entry) string {
	var missing []string
	if resume.IsEmpty() {
		missing = append(missing, "resume")
	}
	if job.IsEmpty() || len(jobKeywords) == 0 {
		missing = append(missing, "job description")
	}
	return strings.Join(missing, " and ")
}

func (e *Engine) emptyReport(results []matching.Result, missing string) *report.Report {
	return &report.Report{
		OverallScore: 0,
		Rating:       report.RatingFor(0),
		SubScores:    report.SubScores{DensityCeiling: e.cfg.DensityCeiling},
		Sections:     []report.SectionStatus{},
		Matches:      results,
		Findings: []report.Finding{{
			Code:     CodeMissingInput,
			Severity: report.SeverityHigh,
			Template: tmplMissingInput,
			Message:  strings.ReplaceAll(tmplMissingInput, "{input}", missing),
			Section:  missing,
		}},
		DictionaryVersion: e.dict.Version(),
	}
}

type elaboration struct {
	texts []string
	err   error
}

func (e *Engine) elaborate(ctx context.Context, r *report.Report) *report.Report {
	timeout := time.Duration(e.cfg.ElaborationTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		return r
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	findings := append([]report.Finding(nil), r.Findings...)
	done := make(chan elaboration, 1)
	go func() {
		texts, err := e.elaborator.Elaborate(ctx, findings)
		done <- elaboration{texts: texts, err: err}
	}()

	var res elaboration
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("elaboration: %w", ctx.Err())
	}

	if res.err == nil {
		res.err = ai.CheckCount(res.texts, r.Findings)
	}
	if res.err != nil {
		e.logger.Warn("elaboration failed, keeping rule based findings",
			zap.Error(res.err),
			zap.Duration("timeout", timeout),
			zap.Int("findings", len(r.Findings)),
		)
		return r
	}

	return r.WithElaborations(res.texts)
}
