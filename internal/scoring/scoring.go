// Package scoring turns match results into the numeric part of a report.
package scoring

import (
	"math"
	"strings"

	"github.com/spigell/ats-scorer/internal/config"
	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/keywords"
	"github.com/spigell/ats-scorer/internal/matching"
	"github.com/spigell/ats-scorer/internal/normalize"
	"github.com/spigell/ats-scorer/internal/report"
)

// partialCredit is the share of a keyword weight earned by a partial match.
const partialCredit = 0.5

// Options are the scoring knobs taken from config.Scoring.
type Options struct {
	Weights          config.Weights
	DensityCeiling   float64
	RequiredSections []string
}

// OptionsFrom extracts scoring options from a validated config.
func OptionsFrom(cfg config.Scoring) Options {
	return Options{
		Weights:          cfg.ScoreWeights,
		DensityCeiling:   cfg.DensityCeiling,
		RequiredSections: cfg.RequiredSections,
	}
}

// Score builds a report without findings.
func Score(results []matching.Result, job []keywords.Entry, resume *normalize.Text, dict *dictionary.Dictionary, opts Options) *report.Report {
	coverage := Coverage(results, job)
	sections, completeness := Sections(resume, dict, opts.RequiredSections)
	density := Density(results, resume)

	bonus := 0.0
	if opts.DensityCeiling > 0 {
		bonus = math.Min(density, opts.DensityCeiling) / opts.DensityCeiling
	}

	w := opts.Weights
	raw := 100 * (w.Coverage*coverage/100 + w.SectionCompleteness*completeness/100 + w.Density*bonus)
	overall := clamp(int(math.Round(raw)), 0, 100)

	return &report.Report{
		OverallScore: overall,
		Rating:       report.RatingFor(overall),
		SubScores: report.SubScores{
			KeywordCoverage:     round(coverage, 2),
			SectionCompleteness: round(completeness, 2),
			KeywordDensity:      round(density, 4),
			DensityCeiling:      opts.DensityCeiling,
			Stuffing:            density > opts.DensityCeiling,
		},
		Sections:          sections,
		Segmented:         resume.Segmented(),
		ResumeTokens:      resume.Len(),
		Matches:           results,
		Findings:          []report.Finding{},
		DictionaryVersion: dict.Version(),
	}
}

// Coverage is the weighted share of job keywords found in the resume, in
// percent. Partial matches earn half their weight.
func Coverage(results []matching.Result, job []keywords.Entry) float64 {
	total := keywords.TotalWeight(job)
	if total <= 0 {
		return 0
	}

	var got float64
	for _, r := range results {
		switch r.Verdict {
		case matching.Matched:
			got += r.Weight
		case matching.PartiallyMatched:
			got += partialCredit * r.Weight
		}
	}

	return math.Min(100, 100*got/total)
}

// Sections reports which required sections are present and the share of
// them in percent. An unsegmented resume is credited with a section when
// one of the section cue words occurs anywhere in it.
func Sections(resume *normalize.Text, dict *dictionary.Dictionary, required []string) ([]report.SectionStatus, float64) {
	if len(required) == 0 {
		return []report.SectionStatus{}, 100
	}

	var stems []string
	if !resume.Segmented() {
		tokens := resume.Tokens()
		stems = make([]string, len(tokens))
		for i, tok := range tokens {
			stems[i] = normalize.Stem(tok)
		}
	}

	statuses := make([]report.SectionStatus, 0, len(required))
	present := 0
	for _, name := range required {
		st := report.SectionStatus{Name: name}
		if resume.Segmented() {
			st.Present = resume.HasSection(name)
		} else {
			for _, cue := range dict.CueStems(name) {
				if containsRun(stems, strings.Fields(cue)) {
					st.Present = true
					st.Inferred = true
					break
				}
			}
		}
		if st.Present {
			present++
		}
		statuses = append(statuses, st)
	}

	return statuses, 100 * float64(present) / float64(len(required))
}

// Density is the share of resume tokens covered by matched keyword
// occurrences. Partial matches do not count.
func Density(results []matching.Result, resume *normalize.Text) float64 {
	if resume.Len() == 0 {
		return 0
	}

	covered := make(map[int]struct{})
	for _, r := range results {
		if r.Verdict != matching.Matched {
			continue
		}
		for _, loc := range r.Locations {
			n := len(strings.Fields(loc.Term))
			for p := loc.Position; p < loc.Position+n && p < resume.Len(); p++ {
				covered[p] = struct{}{}
			}
		}
	}

	return float64(len(covered)) / float64(resume.Len())
}

func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for k := range needle {
			if haystack[i+k] != needle[k] {
				continue outer
			}
		}
		return true
	}
	return false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
