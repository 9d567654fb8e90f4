// Package dictionary holds the versioned stopword, synonym and section header
// data the scoring engine depends on. A Dictionary is immutable after Load and
// safe for concurrent use.
package dictionary

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/spigell/ats-scorer/internal/normalize"
)

//go:embed dictionary.yaml
var embedded []byte

// DefaultAdvice is the resume section suggested when no advice entry matches.
const DefaultAdvice = "skills"

var (
	ErrNoVersion      = errors.New("dictionary version is not set")
	ErrEmptyStopwords = errors.New("dictionary has no stopwords")
)

type file struct {
	Version   string            `mapstructure:"version"`
	Stopwords []string          `mapstructure:"stopwords"`
	Synonyms  [][]string        `mapstructure:"synonyms"`
	Phrases   []string          `mapstructure:"phrases"`
	Sections  []sectionFile     `mapstructure:"sections"`
	Advice    map[string]string `mapstructure:"advice"`
}

type sectionFile struct {
	Name     string   `mapstructure:"name"`
	Patterns []string `mapstructure:"patterns"`
	Cues     []string `mapstructure:"cues"`
}

type section struct {
	name     string
	patterns []string
	cues     []string
}

// Dictionary is the loaded, validated dictionary.
type Dictionary struct {
	version   string
	stopwords map[string]struct{}
	groups    [][]string
	byTerm    map[string]int
	byStem    map[string]int
	phrases   map[string]struct{}
	sections  []section
	rules     []normalize.HeaderRule
	cueStems  map[string][]string
	advice    map[string]string
}

// Overrides are caller supplied additions applied on top of a loaded
// dictionary.
type Overrides struct {
	Stopwords      []string
	Synonyms       [][]string
	HeaderPatterns map[string][]string
}

// Default returns the dictionary embedded into the binary.
func Default() (*Dictionary, error) {
	return Load(embedded)
}

// LoadFile reads a dictionary from a YAML file on disk.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary file %q: %w", path, err)
	}
	return Load(data)
}

// Load parses and validates a YAML dictionary.
func Load(data []byte) (*Dictionary, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	var raw file
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decoding dictionary: %w", err)
	}

	if strings.TrimSpace(raw.Version) == "" {
		return nil, ErrNoVersion
	}

	sections := make([]section, 0, len(raw.Sections))
	for _, s := range raw.Sections {
		sections = append(sections, section{name: s.Name, patterns: s.Patterns, cues: s.Cues})
	}

	return build(strings.TrimSpace(raw.Version), raw.Stopwords, raw.Synonyms, raw.Phrases, sections, raw.Advice)
}

// With returns a new Dictionary extended by the overrides. The receiver is
// left untouched.
func (d *Dictionary) With(o Overrides) (*Dictionary, error) {
	if len(o.Stopwords) == 0 && len(o.Synonyms) == 0 && len(o.HeaderPatterns) == 0 {
		return d, nil
	}

	stopwords := make([]string, 0, len(d.stopwords)+len(o.Stopwords))
	for w := range d.stopwords {
		stopwords = append(stopwords, w)
	}
	stopwords = append(stopwords, o.Stopwords...)

	groups := append(append([][]string(nil), d.groups...), o.Synonyms...)

	phrases := make([]string, 0, len(d.phrases))
	for p := range d.phrases {
		phrases = append(phrases, p)
	}

	extra := make(map[string][]string, len(o.HeaderPatterns))
	for name, patterns := range o.HeaderPatterns {
		name = strings.ToLower(strings.TrimSpace(name))
		extra[name] = append(extra[name], patterns...)
	}

	sections := make([]section, 0, len(d.sections)+len(extra))
	known := make(map[string]bool, len(d.sections))
	for _, s := range d.sections {
		s.patterns = append(append([]string(nil), s.patterns...), extra[s.name]...)
		sections = append(sections, s)
		known[s.name] = true
	}
	for _, name := range sortedKeys(extra) {
		if !known[name] {
			sections = append(sections, section{name: name, patterns: extra[name]})
		}
	}

	return build(d.version, stopwords, groups, phrases, sections, d.advice)
}

func build(version string, stopwords []string, groups [][]string, phrases []string, sections []section, advice map[string]string) (*Dictionary, error) {
	d := &Dictionary{
		version:   version,
		stopwords: make(map[string]struct{}, len(stopwords)),
		byTerm:    make(map[string]int),
		byStem:    make(map[string]int),
		phrases:   make(map[string]struct{}, len(phrases)),
		cueStems:  make(map[string][]string, len(sections)),
		advice:    make(map[string]string, len(advice)),
	}

	for _, w := range stopwords {
		if key := normalize.Key(normalize.Tokenize(w)); key != "" {
			d.stopwords[key] = struct{}{}
		}
	}
	if len(d.stopwords) == 0 {
		return nil, ErrEmptyStopwords
	}

	for _, g := range groups {
		d.addGroup(g)
	}

	for _, p := range phrases {
		if key := normalize.Key(normalize.Tokenize(p)); key != "" {
			d.phrases[key] = struct{}{}
		}
	}

	for _, s := range sections {
		if err := d.addSection(s); err != nil {
			return nil, err
		}
	}

	// Rendered text writes canonical section names as headers, so every name
	// has to resolve back to its own section.
	for _, s := range d.sections {
		var resolved string
		for _, rule := range d.rules {
			if rule.Pattern.MatchString(s.name) {
				resolved = rule.Section
				break
			}
		}
		if resolved != s.name {
			return nil, fmt.Errorf("section %q header resolves to %q", s.name, resolved)
		}
	}

	for k, v := range advice {
		d.advice[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}

	return d, nil
}

// addGroup merges a synonym group into the index. A group sharing a term
// with an existing one is folded into it.
func (d *Dictionary) addGroup(terms []string) {
	keys := make([]string, 0, len(terms))
	target := -1
	for _, t := range terms {
		key := normalize.Key(normalize.Tokenize(t))
		if key == "" {
			continue
		}
		keys = append(keys, key)
		if id, ok := d.byTerm[key]; ok && target < 0 {
			target = id
		}
	}
	if len(keys) == 0 {
		return
	}

	if target < 0 {
		target = len(d.groups)
		d.groups = append(d.groups, nil)
	}

	for _, key := range keys {
		if _, ok := d.byTerm[key]; ok {
			continue
		}
		d.byTerm[key] = target
		d.groups[target] = append(d.groups[target], key)

		stem := normalize.StemKey(strings.Fields(key))
		if !stemIndexable(stem) {
			continue
		}
		if _, ok := d.byStem[stem]; !ok {
			d.byStem[stem] = target
		}
	}
}

func (d *Dictionary) addSection(s section) error {
	name := strings.ToLower(strings.TrimSpace(s.name))
	if name == "" {
		return errors.New("dictionary section without a name")
	}
	if name == normalize.BodySection {
		return fmt.Errorf("section name %q is reserved", name)
	}

	patterns := append(append([]string(nil), s.patterns...), regexp.QuoteMeta(name))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return fmt.Errorf("section %q header pattern %q: %w", name, p, err)
		}
		d.rules = append(d.rules, normalize.HeaderRule{Section: name, Pattern: re})
	}

	var stems []string
	for _, cue := range s.cues {
		if toks := normalize.Tokenize(cue); len(toks) > 0 {
			stems = append(stems, normalize.StemKey(toks))
		}
	}
	d.cueStems[name] = append(d.cueStems[name], stems...)

	d.sections = append(d.sections, section{name: name, patterns: s.patterns, cues: s.cues})
	return nil
}

// Version returns the dictionary version string.
func (d *Dictionary) Version() string {
	return d.version
}

// IsStopword reports whether token is a stopword.
func (d *Dictionary) IsStopword(token string) bool {
	_, ok := d.stopwords[token]
	return ok
}

// IsPhrase reports whether the term key is a known multi-word term.
func (d *Dictionary) IsPhrase(key string) bool {
	if _, ok := d.phrases[key]; ok {
		return true
	}
	_, ok := d.byTerm[key]
	return ok && strings.Contains(key, " ")
}

// Knows reports whether the term key appears anywhere in the dictionary.
func (d *Dictionary) Knows(key string) bool {
	if _, ok := d.byTerm[key]; ok {
		return true
	}
	_, ok := d.phrases[key]
	return ok
}

// Synonyms returns the other members of the term's synonym group.
func (d *Dictionary) Synonyms(key string) []string {
	id, ok := d.byTerm[key]
	if !ok {
		return nil
	}
	var out []string
	for _, t := range d.groups[id] {
		if t != key {
			out = append(out, t)
		}
	}
	return out
}

// SameGroup reports whether two terms belong to one synonym group, comparing
// surface forms first and stems second.
func (d *Dictionary) SameGroup(a, aStem, b, bStem string) bool {
	ga, ok := d.group(a, aStem)
	if !ok {
		return false
	}
	gb, ok := d.group(b, bStem)
	return ok && ga == gb
}

func (d *Dictionary) group(key, stem string) (int, bool) {
	if id, ok := d.byTerm[key]; ok {
		return id, true
	}
	if !stemIndexable(stem) {
		return 0, false
	}
	id, ok := d.byStem[stem]
	return id, ok
}

// minStemRunes keeps short members such as go, ci or rest out of the stem
// index, so "going" or "resting" never join their groups.
const minStemRunes = 5

func stemIndexable(stem string) bool {
	return strings.Contains(stem, " ") || utf8.RuneCountInString(stem) >= minStemRunes
}

// HeaderRules returns the compiled section header rules in priority order.
func (d *Dictionary) HeaderRules() []normalize.HeaderRule {
	return append([]normalize.HeaderRule(nil), d.rules...)
}

// Sections returns the canonical section names in dictionary order.
func (d *Dictionary) Sections() []string {
	names := make([]string, len(d.sections))
	for i, s := range d.sections {
		names[i] = s.name
	}
	return names
}

// HasSection reports whether name is a known section.
func (d *Dictionary) HasSection(name string) bool {
	for _, s := range d.sections {
		if s.name == name {
			return true
		}
	}
	return false
}

// CueStems returns stemmed cue terms hinting that a section's content is
// present in unsegmented text.
func (d *Dictionary) CueStems(section string) []string {
	return append([]string(nil), d.cueStems[section]...)
}

// Advice maps a job description section to the resume section where a
// missing keyword should be added.
func (d *Dictionary) Advice(jobSection string) string {
	if s, ok := d.advice[jobSection]; ok && s != "" {
		return s
	}
	return DefaultAdvice
}

// Stats summarizes the dictionary contents.
type Stats struct {
	Version       string `json:"version"`
	Stopwords     int    `json:"stopwords"`
	SynonymGroups int    `json:"synonym_groups"`
	Phrases       int    `json:"phrases"`
	Sections      int    `json:"sections"`
	HeaderRules   int    `json:"header_rules"`
}

// Stats returns counts of the loaded entries.
func (d *Dictionary) Stats() Stats {
	return Stats{
		Version:       d.version,
		Stopwords:     len(d.stopwords),
		SynonymGroups: len(d.groups),
		Phrases:       len(d.phrases),
		Sections:      len(d.sections),
		HeaderRules:   len(d.rules),
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
