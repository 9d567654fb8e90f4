package normalize

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// Stem reduces a token to its Snowball English stem. Tokens carrying digits
// or symbols (k8s, c++, node.js) are technology names and stay as they are.
func Stem(token string) string {
	for _, r := range token {
		if r < 'a' || r > 'z' {
			return token
		}
	}
	return english.Stem(token, false)
}

// StemKey stems every token and joins the result into a term key.
func StemKey(tokens []string) string {
	stems := make([]string, len(tokens))
	for i, tok := range tokens {
		stems[i] = Stem(tok)
	}
	return strings.Join(stems, " ")
}
