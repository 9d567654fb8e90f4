package normalize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() []HeaderRule {
	return []HeaderRule{
		{Section: "skills", Pattern: regexp.MustCompile(`^(?:(?:technical )?skills)$`)},
		{Section: "experience", Pattern: regexp.MustCompile(`^(?:(?:work )?experience)$`)},
		{Section: "education", Pattern: regexp.MustCompile(`^(?:education)$`)},
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "sentence", in: "Skilled Python developer with AWS experience.", want: []string{"skilled", "python", "developer", "with", "aws", "experience"}},
		{name: "technology names", in: "C++, C#, Node.js and k8s", want: []string{"c++", "c#", "node.js", "and", "k8s"}},
		{name: "apostrophes", in: "Don’t stop, don't", want: []string{"dont", "stop", "dont"}},
		{name: "possessive after symbol", in: "Led C#'s adoption, C++'s templates", want: []string{"led", "c#", "s", "adoption", "c++", "s", "templates"}},
		{name: "single plus", in: "c+'s", want: []string{"c+", "s"}},
		{name: "hyphenated", in: "cross-functional - teams", want: []string{"cross-functional", "teams"}},
		{name: "fullwidth folded", in: "ＰＹＴＨＯＮ", want: []string{"python"}},
		{name: "trailing dot", in: "Go.", want: []string{"go"}},
		{name: "empty", in: "  \n\t ", want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Tokenize(tc.in))
		})
	}
}

func TestNormalizeSections(t *testing.T) {
	t.Parallel()

	text := Normalize("John Doe\nSKILLS: Go, SQL\nWork Experience\n- Built APIs in Go.\n", testRules())

	assert.Equal(t, []string{"john", "doe", "go", "sql", "built", "apis", "in", "go"}, text.Tokens())
	assert.True(t, text.Segmented())

	sections := text.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, Section{Name: BodySection, Start: 0, End: 2}, sections[0])
	assert.Equal(t, Section{Name: "skills", Header: "skills", Start: 2, End: 4}, sections[1])
	assert.Equal(t, Section{Name: "experience", Header: "work experience", Start: 4, End: 8}, sections[2])

	assert.Equal(t, "skills", text.SectionAt(3))
	assert.Equal(t, "experience", text.SectionAt(7))
	assert.True(t, text.HasSection("skills"))
	assert.False(t, text.HasSection("education"))

	assert.Equal(t, []Span{{0, 2}, {2, 3}, {3, 4}, {4, 8}}, text.Clauses())
}

func TestNormalizeDropsEmptyLeadingBody(t *testing.T) {
	t.Parallel()

	text := Normalize("Skills\nGo\nEducation\n", testRules())

	sections := text.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "skills", sections[0].Name)
	assert.Equal(t, "education", sections[1].Name)
	assert.Equal(t, 0, sections[1].Len())
	assert.False(t, text.HasSection("education"))
}

func TestNormalizeUnsegmented(t *testing.T) {
	t.Parallel()

	cases := []string{
		"I like Go and SQL.",
		"Experience (2019): Go",
		"Skills and many other things that I happen to know",
	}

	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			text := Normalize(in, testRules())
			assert.False(t, text.Segmented())
			require.Len(t, text.Sections(), 1)
			assert.Equal(t, BodySection, text.Sections()[0].Name)
			assert.Equal(t, BodySection, text.SectionAt(0))
		})
	}
}

func TestNormalizeWithoutRules(t *testing.T) {
	t.Parallel()

	text := Normalize("Skills\nGo", nil)
	assert.False(t, text.Segmented())
	assert.Equal(t, []string{"skills", "go"}, text.Tokens())
}

func TestNormalizeEmpty(t *testing.T) {
	t.Parallel()

	text := Normalize("", testRules())
	assert.True(t, text.IsEmpty())
	assert.Equal(t, 0, text.Len())
	assert.Empty(t, text.Clauses())
}

func TestRenderIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"John Doe\nSKILLS: Go, SQL\nWork Experience\n- Built APIs in Go.\n",
		"Skills\nskills\nExperience: led teams; shipped C++ and Node.js services",
		"Plain text without any headers, just words. And more words!",
		"Education\n\nEducation\nBSc",
		"Led C#'s adoption",
		"C++'s templates and F#’s type providers",
		"Skills: c+'x, .NET's runtime",
		"",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			first := Normalize(in, testRules())
			second := Normalize(first.Render(), testRules())

			assert.Equal(t, first.Tokens(), second.Tokens())
			assert.Equal(t, first.Clauses(), second.Clauses())
			assert.Equal(t, first.Segmented(), second.Segmented())
			require.Len(t, second.Sections(), len(first.Sections()))
			for i, s := range first.Sections() {
				got := second.Sections()[i]
				assert.Equal(t, s.Name, got.Name)
				assert.Equal(t, s.Start, got.Start)
				assert.Equal(t, s.End, got.End)
			}

			assert.Equal(t, first.Render(), second.Render())
		})
	}
}

func TestStem(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"managing": "manag",
		"managed":  "manag",
		"teams":    "team",
		"k8s":      "k8s",
		"c++":      "c++",
		"node.js":  "node.js",
	}
	for in, want := range cases {
		assert.Equal(t, want, Stem(in), in)
	}

	assert.Equal(t, "manag team", StemKey([]string{"managing", "teams"}))
}
