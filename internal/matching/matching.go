// Package matching pairs job description keywords with resume keywords.
package matching

import (
	"sort"

	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/keywords"
)

type Verdict string

const (
	Matched          Verdict = "matched"
	PartiallyMatched Verdict = "partially_matched"
	Missing          Verdict = "missing"
)

// Basis records which tier produced the verdict.
type Basis string

const (
	BasisExact   Basis = "exact"
	BasisStemmed Basis = "stemmed"
	BasisSynonym Basis = "synonym"
	BasisPartial Basis = "partial"
	BasisNone    Basis = "none"
)

// Location is a resume occurrence that satisfied a job keyword.
type Location struct {
	Term     string `json:"term"`
	Position int    `json:"position"`
	Section  string `json:"section"`
}

// Result is the verdict for one job description keyword.
type Result struct {
	Keyword      string     `json:"keyword"`
	Weight       float64    `json:"weight"`
	JobSection   string     `json:"job_section"`
	Verdict      Verdict    `json:"verdict"`
	Basis        Basis      `json:"basis"`
	MatchedTerms []string   `json:"matched_terms,omitempty"`
	Locations    []Location `json:"locations,omitempty"`
}

type tier struct {
	verdict Verdict
	basis   Basis
	match   func(job, resume *keywords.Entry) bool
}

// Match returns one Result per job keyword in job keyword order. Tiers are
// tried from strongest to weakest and the first one with any hit wins.
func Match(job, resume []keywords.Entry, dict *dictionary.Dictionary) []Result {
	tiers := []tier{
		{Matched, BasisExact, func(j, r *keywords.Entry) bool {
			return j.Term == r.Term
		}},
		{Matched, BasisStemmed, func(j, r *keywords.Entry) bool {
			return j.Stem == r.Stem
		}},
		{Matched, BasisSynonym, func(j, r *keywords.Entry) bool {
			return dict.SameGroup(j.Term, j.Stem, r.Term, r.Stem)
		}},
		{PartiallyMatched, BasisPartial, partial},
	}

	results := make([]Result, 0, len(job))
	for i := range job {
		j := &job[i]
		res := Result{
			Keyword:    j.Term,
			Weight:     j.Weight,
			JobSection: j.Section,
			Verdict:    Missing,
			Basis:      BasisNone,
		}

		for _, t := range tiers {
			var hits []*keywords.Entry
			for k := range resume {
				if t.match(j, &resume[k]) {
					hits = append(hits, &resume[k])
				}
			}
			if len(hits) == 0 {
				continue
			}

			res.Verdict = t.verdict
			res.Basis = t.basis
			for _, h := range hits {
				res.MatchedTerms = append(res.MatchedTerms, h.Term)
				for _, occ := range h.Occurrences {
					res.Locations = append(res.Locations, Location{Term: h.Term, Position: occ.Position, Section: occ.Section})
				}
			}
			sort.SliceStable(res.Locations, func(a, b int) bool {
				if res.Locations[a].Position != res.Locations[b].Position {
					return res.Locations[a].Position < res.Locations[b].Position
				}
				return res.Locations[a].Term < res.Locations[b].Term
			})
			break
		}

		results = append(results, res)
	}

	return results
}

// partial reports whether either keyword's stems appear as a contiguous run
// inside the other's. Only applies when at least one side is a phrase.
func partial(j, r *keywords.Entry) bool {
	if len(j.Tokens) < 2 && len(r.Tokens) < 2 {
		return false
	}
	js, rs := stems(j.Stem), stems(r.Stem)
	return containsRun(js, rs) || containsRun(rs, js)
}

// Counts tallies verdicts.
type Counts struct {
	Matched int `json:"matched"`
	Partial int `json:"partial"`
	Missing int `json:"missing"`
}

// Count returns the number of results per verdict.
func Count(results []Result) Counts {
	var c Counts
	for _, r := range results {
		switch r.Verdict {
		case Matched:
			c.Matched++
		case PartiallyMatched:
			c.Partial++
		default:
			c.Missing++
		}
	}
	return c
}
