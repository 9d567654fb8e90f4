// Package keywords extracts weighted unigrams and phrases from normalized
// text.
package keywords

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/ats-scorer/internal/dictionary"
	"github.com/spigell/ats-scorer/internal/normalize"
)

// Role selects the extraction rules for a document.
type Role string

const (
	RoleJobDescription Role = "job_description"
	RoleResume         Role = "resume"
)

const (
	maxPhraseLen          = 3
	DefaultPhraseMinFreq  = 2
	DefaultMaxJobKeywords = 40
)

// Occurrence is one place a keyword was seen.
type Occurrence struct {
	Position int    `json:"position"`
	Section  string `json:"section"`
}

// Entry is a keyword with its accumulated weight.
type Entry struct {
	Term        string       `json:"term"`
	Tokens      []string     `json:"-"`
	Stem        string       `json:"stem"`
	Weight      float64      `json:"weight"`
	Synonyms    []string     `json:"synonyms,omitempty"`
	Occurrences []Occurrence `json:"occurrences"`
	FirstIndex  int          `json:"first_index"`
	Section     string       `json:"section"`
}

// Options tune extraction. Zero values fall back to defaults where noted.
type Options struct {
	// Emphasis maps a section name to the weight multiplier applied to
	// occurrences inside it. Sections not listed count 1.0.
	Emphasis map[string]float64
	// PhraseMinFrequency is the number of occurrences that turns an unknown
	// phrase into a keyword. Defaults to DefaultPhraseMinFreq.
	PhraseMinFrequency int
	// MaxKeywords caps the job description keyword list. 0 means unlimited.
	MaxKeywords int
}

type candidate struct {
	tokens    []string
	positions []int
}

// Extract returns the keyword entries of text sorted by weight descending,
// ties broken by first occurrence.
//
// For RoleJobDescription zero weight entries are dropped, the list is capped
// at MaxKeywords and weights are re-normalized to sum to 1. For RoleResume
// unigrams absorbed by a phrase, and phrases too rare to claim their tokens,
// stay in the list with zero weight so they can still be matched.
func Extract(text *normalize.Text, role Role, dict *dictionary.Dictionary, opts Options) []Entry {
	if text == nil || text.IsEmpty() {
		return nil
	}

	minFreq := opts.PhraseMinFrequency
	if minFreq <= 0 {
		minFreq = DefaultPhraseMinFreq
	}

	tokens := text.Tokens()
	valid := make([]bool, len(tokens))
	for i, tok := range tokens {
		valid[i] = usable(tok, dict)
	}

	grams := make([]map[string]*candidate, maxPhraseLen+1)
	for n := 1; n <= maxPhraseLen; n++ {
		grams[n] = make(map[string]*candidate)
	}

	for _, clause := range text.Clauses() {
		for i := clause.Start; i < clause.End; i++ {
			for n := 1; n <= maxPhraseLen && i+n <= clause.End; n++ {
				if !allValid(valid[i:i+n]) || hasRepeats(tokens[i:i+n]) {
					break
				}
				key := normalize.Key(tokens[i : i+n])
				c, ok := grams[n][key]
				if !ok {
					c = &candidate{tokens: append([]string(nil), tokens[i:i+n]...)}
					grams[n][key] = c
				}
				c.positions = append(c.positions, i)
			}
		}
	}

	weight := func(pos int) float64 {
		if m, ok := opts.Emphasis[text.SectionAt(pos)]; ok && m > 0 {
			return m
		}
		return 1.0
	}

	claimed := make([]bool, len(tokens))
	var entries []Entry

	for n := maxPhraseLen; n >= 2; n-- {
		type hit struct {
			pos int
			key string
		}
		var hits []hit
		for key, c := range grams[n] {
			if len(c.positions) < minFreq && !dict.IsPhrase(key) {
				// A rare resume phrase can still equal a job phrase verbatim.
				if role == RoleResume {
					entries = append(entries, newEntry(text, dict, c.tokens, c.positions, nil, weight))
				}
				delete(grams[n], key)
				continue
			}
			for _, p := range c.positions {
				hits = append(hits, hit{pos: p, key: key})
			}
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].pos != hits[j].pos {
				return hits[i].pos < hits[j].pos
			}
			return hits[i].key < hits[j].key
		})

		// Longer phrases claim their tokens first, then left to right.
		taken := make(map[string][]int)
		for _, h := range hits {
			if anyClaimed(claimed[h.pos : h.pos+n]) {
				continue
			}
			for p := h.pos; p < h.pos+n; p++ {
				claimed[p] = true
			}
			taken[h.key] = append(taken[h.key], h.pos)
		}

		for key, c := range grams[n] {
			entries = append(entries, newEntry(text, dict, c.tokens, c.positions, taken[key], weight))
		}
	}

	for _, c := range grams[1] {
		var free []int
		for _, p := range c.positions {
			if !claimed[p] {
				free = append(free, p)
			}
		}
		entries = append(entries, newEntry(text, dict, c.tokens, c.positions, free, weight))
	}

	sortEntries(entries)

	if role == RoleJobDescription {
		entries = finalizeJob(entries, opts.MaxKeywords)
	}

	return entries
}

func newEntry(text *normalize.Text, dict *dictionary.Dictionary, tokens []string, seen, weighted []int, weight func(int) float64) Entry {
	key := normalize.Key(tokens)
	e := Entry{
		Term:       key,
		Tokens:     tokens,
		Stem:       normalize.StemKey(tokens),
		Synonyms:   dict.Synonyms(key),
		FirstIndex: seen[0],
	}

	for _, p := range seen {
		e.Occurrences = append(e.Occurrences, Occurrence{Position: p, Section: text.SectionAt(p)})
	}

	bySection := make(map[string]float64)
	for _, p := range weighted {
		w := weight(p)
		e.Weight += w
		bySection[text.SectionAt(p)] += w
	}

	// section carrying the most weight, earliest on ties
	e.Section = text.SectionAt(seen[0])
	best := -1.0
	for _, occ := range e.Occurrences {
		if w, ok := bySection[occ.Section]; ok && w > best {
			best = w
			e.Section = occ.Section
		}
	}

	return e
}

func finalizeJob(entries []Entry, max int) []Entry {
	kept := entries[:0]
	for _, e := range entries {
		if e.Weight > 0 {
			kept = append(kept, e)
		}
	}
	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}

	var total float64
	for _, e := range kept {
		total += e.Weight
	}
	if total > 0 {
		for i := range kept {
			kept[i].Weight /= total
		}
	}
	return kept
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.FirstIndex != b.FirstIndex {
			return a.FirstIndex < b.FirstIndex
		}
		if len(a.Tokens) != len(b.Tokens) {
			return len(a.Tokens) > len(b.Tokens)
		}
		return a.Term < b.Term
	})
}

// TotalWeight sums the weights of entries.
func TotalWeight(entries []Entry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Weight
	}
	return total
}

func usable(tok string, dict *dictionary.Dictionary) bool {
	if dict.IsStopword(tok) || numeric(tok) {
		return false
	}
	return utf8.RuneCountInString(tok) >= 2 || dict.Knows(tok)
}

func numeric(tok string) bool {
	return strings.IndexFunc(tok, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-'
	}) < 0
}

func allValid(flags []bool) bool {
	for _, ok := range flags {
		if !ok {
			return false
		}
	}
	return true
}

func anyClaimed(flags []bool) bool {
	for _, c := range flags {
		if c {
			return true
		}
	}
	return false
}

func hasRepeats(tokens []string) bool {
	for i := range tokens {
		for j := i + 1; j < len(tokens); j++ {
			if tokens[i] == tokens[j] {
				return true
			}
		}
	}
	return false
}
