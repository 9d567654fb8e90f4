// Package config holds the scoring configuration and its validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Weights are the overall score component weights. They must sum to 1.
type Weights struct {
	Coverage            float64 `mapstructure:"coverage" json:"coverage" validate:"gte=0,lte=1"`
	SectionCompleteness float64 `mapstructure:"section-completeness" json:"section_completeness" validate:"gte=0,lte=1"`
	Density             float64 `mapstructure:"density" json:"density" validate:"gte=0,lte=1"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Coverage + w.SectionCompleteness + w.Density
}

// Emphasis boosts keyword occurrences inside the listed sections.
type Emphasis struct {
	Sections   []string `mapstructure:"sections" json:"sections" validate:"dive,required"`
	Multiplier float64  `mapstructure:"multiplier" json:"multiplier" validate:"gte=1,lte=10"`
}

// Map returns the section to multiplier lookup used by the extractor.
func (e Emphasis) Map() map[string]float64 {
	m := make(map[string]float64, len(e.Sections))
	for _, s := range e.Sections {
		m[strings.ToLower(strings.TrimSpace(s))] = e.Multiplier
	}
	return m
}

// Scoring configures one evaluation.
type Scoring struct {
	// Extra header patterns keyed by canonical section name.
	SectionHeaderPatterns map[string][]string `mapstructure:"section-header-patterns" json:"section_header_patterns,omitempty"`
	// Extra stopwords added to the dictionary list.
	Stopwords []string `mapstructure:"stopwords" json:"stopwords,omitempty"`
	// Extra synonym groups merged into the dictionary.
	SynonymDictionary [][]string `mapstructure:"synonym-dictionary" json:"synonym_dictionary,omitempty"`

	RequiredSections     []string `mapstructure:"required-sections" json:"required_sections" validate:"dive,required"`
	ScoreWeights         Weights  `mapstructure:"score-weights" json:"score_weights"`
	DensityCeiling       float64  `mapstructure:"density-ceiling" json:"density_ceiling" validate:"gt=0,lte=1"`
	MinFindingWeight     float64  `mapstructure:"min-finding-weight" json:"min_finding_weight" validate:"gte=0,lte=1"`
	PassThreshold        int      `mapstructure:"pass-threshold" json:"pass_threshold" validate:"gte=0,lte=100"`
	ElaborationTimeoutMs int      `mapstructure:"elaboration-timeout-ms" json:"elaboration_timeout_ms" validate:"gte=0,lte=600000"`

	PhraseMinFrequency int      `mapstructure:"phrase-min-frequency" json:"phrase_min_frequency" validate:"gte=1,lte=100"`
	MaxJobKeywords     int      `mapstructure:"max-job-keywords" json:"max_job_keywords" validate:"gte=0,lte=1000"`
	JobEmphasis        Emphasis `mapstructure:"job-emphasis" json:"job_emphasis"`
	ResumeEmphasis     Emphasis `mapstructure:"resume-emphasis" json:"resume_emphasis"`

	// Feedback rules to skip, by finding code.
	DisabledRules []string `mapstructure:"disabled-rules" json:"disabled_rules,omitempty" validate:"dive,required"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Scoring {
	return Scoring{
		RequiredSections: []string{"experience", "education", "skills"},
		ScoreWeights: Weights{
			Coverage:            0.7,
			SectionCompleteness: 0.2,
			Density:             0.1,
		},
		DensityCeiling:       0.08,
		MinFindingWeight:     0.02,
		PassThreshold:        70,
		ElaborationTimeoutMs: 8000,
		PhraseMinFrequency:   2,
		MaxJobKeywords:       40,
		JobEmphasis:          Emphasis{Sections: []string{"requirements"}, Multiplier: 1.5},
		ResumeEmphasis:       Emphasis{Sections: []string{"skills", "experience"}, Multiplier: 1.2},
	}
}

// FieldError is one rejected configuration field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid scoring config:")
	for i, e := range ve.Errors {
		if i > 0 {
			sb.WriteString(";")
		}
		sb.WriteString(fmt.Sprintf(" %s: %s", e.Field, e.Message))
	}
	return sb.String()
}

const weightSumTolerance = 1e-6

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects out of range values. It never adjusts them.
func (s *Scoring) Validate() error {
	ve := &ValidationError{}

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating scoring config: %w", err)
		}
		for _, fe := range verrs {
			ve.Errors = append(ve.Errors, FieldError{Field: fe.Namespace(), Message: describe(fe)})
		}
	}

	if sum := s.ScoreWeights.Sum(); math.Abs(sum-1) > weightSumTolerance {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "Scoring.ScoreWeights",
			Message: fmt.Sprintf("weights must sum to 1, got %.4f", sum),
		})
	}

	names := make([]string, 0, len(s.SectionHeaderPatterns))
	for name := range s.SectionHeaderPatterns {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		patterns := s.SectionHeaderPatterns[name]
		if strings.TrimSpace(name) == "" {
			ve.Errors = append(ve.Errors, FieldError{Field: "Scoring.SectionHeaderPatterns", Message: "section name must not be empty"})
		}
		if len(patterns) == 0 {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "Scoring.SectionHeaderPatterns." + name,
				Message: "at least one pattern is required",
			})
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	case "required":
		return "must not be empty"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
