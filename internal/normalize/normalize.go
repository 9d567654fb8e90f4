// Package normalize turns raw resume and job description text into a token
// stream with section and clause boundaries.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// BodySection is the implicit section for text that precedes the first
// recognized header, or for all text when no header is recognized.
const BodySection = "body"

const (
	// clause separators; newline is handled per line
	breakRunes     = ".,;:!?()[]{}|•·"
	bulletRunes    = "•·-*#>–— \t"
	maxHeaderWords = 6
)

// HeaderRule maps a compiled header pattern to the canonical section name.
// Patterns are matched against the header words joined by single spaces.
type HeaderRule struct {
	Section string
	Pattern *regexp.Regexp
}

// Section is a token range [Start, End) opened by a header line.
type Section struct {
	Name   string
	Header string
	Start  int
	End    int
}

// Len reports the number of tokens in the section.
func (s Section) Len() int {
	return s.End - s.Start
}

// Span is a clause: a token range [Start, End) that phrases must not cross.
type Span struct {
	Start int
	End   int
}

// Text is the immutable result of Normalize.
type Text struct {
	tokens    []string
	sections  []Section
	clauses   []Span
	owner     []int
	segmented bool
}

// Normalize folds raw to NFKC lowercase, splits it into tokens and detects
// section headers with the supplied rules.
func Normalize(raw string, rules []HeaderRule) *Text {
	b := &builder{rules: rules}
	b.open(Section{Name: BodySection})

	for _, line := range strings.Split(fold(raw), "\n") {
		b.line(line)
	}

	return b.finish()
}

// Tokenize splits s into normalized tokens ignoring clause boundaries.
// Dictionary terms and header candidates go through it so they compare
// equal to Normalize output.
func Tokenize(s string) []string {
	var tokens []string
	scan(fold(s), func(tok string) { tokens = append(tokens, tok) }, func() {})
	return tokens
}

// Key joins tokens into the canonical term form.
func Key(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Tokens returns a copy of the token sequence.
func (t *Text) Tokens() []string {
	return append([]string(nil), t.tokens...)
}

// Len reports the token count.
func (t *Text) Len() int {
	return len(t.tokens)
}

// Token returns the token at position i.
func (t *Text) Token(i int) string {
	return t.tokens[i]
}

// IsEmpty reports whether the text has no tokens at all.
func (t *Text) IsEmpty() bool {
	return len(t.tokens) == 0
}

// Sections returns a copy of the detected sections in document order.
func (t *Text) Sections() []Section {
	return append([]Section(nil), t.sections...)
}

// Clauses returns a copy of the clause spans in document order.
func (t *Text) Clauses() []Span {
	return append([]Span(nil), t.clauses...)
}

// Segmented reports whether at least one header was recognized.
func (t *Text) Segmented() bool {
	return t.segmented
}

// SectionAt returns the section name owning token position i.
func (t *Text) SectionAt(i int) string {
	return t.sections[t.owner[i]].Name
}

// HasSection reports whether a section with the given name exists and holds
// at least one token.
func (t *Text) HasSection(name string) bool {
	for _, s := range t.sections {
		if s.Name == name && s.Len() > 0 {
			return true
		}
	}
	return false
}

// Render writes the text back in a canonical form. Normalizing the rendered
// form yields the same tokens, sections and clauses.
func (t *Text) Render() string {
	var b strings.Builder
	ci := 0
	for _, s := range t.sections {
		if s.Name != BodySection {
			b.WriteString(s.Name)
			b.WriteString(":\n")
		}

		written := 0
		for ; ci < len(t.clauses) && t.clauses[ci].End <= s.End; ci++ {
			c := t.clauses[ci]
			if written > 0 {
				b.WriteString("; ")
			}
			b.WriteString(strings.Join(t.tokens[c.Start:c.End], " "))
			written++
		}
		if written > 0 {
			b.WriteString(";\n")
		}
	}
	return b.String()
}

type builder struct {
	rules       []HeaderRule
	tokens      []string
	sections    []Section
	clauses     []Span
	clauseStart int
	segmented   bool
}

func (b *builder) emit(tok string) {
	b.tokens = append(b.tokens, tok)
}

func (b *builder) breakClause() {
	if len(b.tokens) > b.clauseStart {
		b.clauses = append(b.clauses, Span{Start: b.clauseStart, End: len(b.tokens)})
	}
	b.clauseStart = len(b.tokens)
}

func (b *builder) open(s Section) {
	if n := len(b.sections); n > 0 {
		b.sections[n-1].End = len(b.tokens)
	}
	s.Start = len(b.tokens)
	b.sections = append(b.sections, s)
}

func (b *builder) line(line string) {
	if section, header, rest, ok := detectHeader(line, b.rules); ok {
		b.breakClause()
		b.segmented = true
		b.open(Section{Name: section, Header: header})
		line = rest
	}

	scan(line, b.emit, b.breakClause)
	b.breakClause()
}

func (b *builder) finish() *Text {
	b.breakClause()
	b.sections[len(b.sections)-1].End = len(b.tokens)

	sections := b.sections
	if b.segmented && sections[0].Len() == 0 {
		sections = sections[1:]
	}

	owner := make([]int, len(b.tokens))
	for i, s := range sections {
		for p := s.Start; p < s.End; p++ {
			owner[p] = i
		}
	}

	return &Text{
		tokens:    b.tokens,
		sections:  sections,
		clauses:   b.clauses,
		owner:     owner,
		segmented: b.segmented,
	}
}

// detectHeader recognizes lines such as "Work Experience", "SKILLS:" or
// "Skills: Go, SQL". The returned rest is the inline content after a colon.
func detectHeader(line string, rules []HeaderRule) (section, header, rest string, ok bool) {
	if len(rules) == 0 {
		return "", "", "", false
	}

	head := strings.TrimLeft(strings.TrimSpace(line), bulletRunes)
	if i := strings.IndexRune(head, ':'); i >= 0 {
		head, rest = head[:i], head[i+1:]
	} else {
		head = strings.TrimRight(head, ". \t")
	}

	head = strings.TrimSpace(head)
	if head == "" || strings.ContainsAny(head, breakRunes) {
		return "", "", "", false
	}

	var words []string
	scan(head, func(tok string) { words = append(words, tok) }, func() {})
	if len(words) == 0 || len(words) > maxHeaderWords {
		return "", "", "", false
	}

	key := Key(words)
	for _, rule := range rules {
		if rule.Pattern != nil && rule.Pattern.MatchString(key) {
			return rule.Section, head, rest, true
		}
	}

	return "", "", "", false
}

func fold(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	// cases.Caser keeps state and is not safe for concurrent use.
	return cases.Lower(language.Und).String(s)
}

func scan(line string, emit func(string), brk func()) {
	runes := []rune(line)
	cur := make([]rune, 0, 16)

	flush := func() {
		if len(cur) > 0 {
			emit(string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case isWordRune(r):
			// c#'s: a symbol suffix always ends the token
			if n := len(cur); n > 0 && (cur[n-1] == '+' || cur[n-1] == '#') {
				flush()
			}
			cur = append(cur, r)
		case r == '\'' || r == '’':
			// don't -> dont
		case (r == '-' || r == '.') && len(cur) > 0 && isWordRune(cur[len(cur)-1]) && isWordRune(next):
			cur = append(cur, r)
		case (r == '+' || r == '#') && len(cur) > 0 && !isWordRune(next):
			cur = append(cur, r)
		case strings.ContainsRune(breakRunes, r):
			flush()
			brk()
		default:
			flush()
		}
	}
	flush()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
