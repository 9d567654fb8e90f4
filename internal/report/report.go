// Package report defines the score report produced for one resume and job
// description pair.
package report

import (
	"encoding/json"
	"sort"

	"github.com/spigell/ats-scorer/internal/matching"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityInfo   Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// Rating is the coarse band an overall score falls into.
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingFair             Rating = "fair"
	RatingNeedsImprovement Rating = "needs_improvement"
)

// RatingFor maps a 0-100 score to its band.
func RatingFor(score int) Rating {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	default:
		return RatingNeedsImprovement
	}
}

// Finding is one actionable observation about the resume.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	// Template is the message before keyword and section substitution. It
	// is stable across inputs and safe to group by.
	Template    string   `json:"template"`
	Message     string   `json:"message"`
	Keywords    []string `json:"keywords,omitempty"`
	Section     string   `json:"section,omitempty"`
	Elaboration string   `json:"elaboration,omitempty"`
}

// SubScores are the components the overall score is built from.
type SubScores struct {
	KeywordCoverage     float64 `json:"keyword_coverage"`
	SectionCompleteness float64 `json:"section_completeness"`
	KeywordDensity      float64 `json:"keyword_density"`
	DensityCeiling      float64 `json:"density_ceiling"`
	Stuffing            bool    `json:"stuffing"`
}

// SectionStatus tells whether a required resume section was found.
type SectionStatus struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	// Inferred is set when the section was credited from cue words in an
	// unsegmented resume rather than from a header.
	Inferred bool `json:"inferred,omitempty"`
}

// Report is the full evaluation result.
type Report struct {
	Job               string            `json:"job,omitempty"`
	OverallScore      int               `json:"overall_score"`
	Rating            Rating            `json:"rating"`
	SubScores         SubScores         `json:"sub_scores"`
	Sections          []SectionStatus   `json:"sections"`
	Segmented         bool              `json:"segmented"`
	ResumeTokens      int               `json:"resume_tokens"`
	Matches           []matching.Result `json:"matches"`
	Findings          []Finding         `json:"findings"`
	DictionaryVersion string            `json:"dictionary_version"`
}

// SortFindings orders findings high, medium, info keeping the relative order
// within a severity.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.rank() < findings[j].Severity.rank()
	})
}

// Counts returns verdict totals for the report matches.
func (r *Report) Counts() matching.Counts {
	return matching.Count(r.Matches)
}

// Missing returns the keywords with a missing verdict in report order.
func (r *Report) Missing() []string {
	var out []string
	for _, m := range r.Matches {
		if m.Verdict == matching.Missing {
			out = append(out, m.Keyword)
		}
	}
	return out
}

// WithElaborations returns a copy of the report whose findings carry the
// given texts. texts must have one entry per finding.
func (r *Report) WithElaborations(texts []string) *Report {
	cp := *r
	cp.Findings = make([]Finding, len(r.Findings))
	copy(cp.Findings, r.Findings)
	for i := range cp.Findings {
		if i < len(texts) {
			cp.Findings[i].Elaboration = texts[i]
		}
	}
	return &cp
}

// JSON renders the report with stable indentation.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
