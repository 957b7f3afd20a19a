package paragraph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderRe tolerates whitespace a translator may add inside the braces.
var placeholderRe = regexp.MustCompile(`(?i)\{\s*v\s*([\d\s]+?)\s*\}`)

// Placeholder returns the token standing for formula span n.
func Placeholder(n int) string {
	return fmt.Sprintf("{v%d}", n)
}

// Token is one placeholder occurrence inside a string.
type Token struct {
	Span  int
	Start int
	End   int
}

// FindPlaceholders returns every token in text in order of appearance.
func FindPlaceholders(text string) []Token {
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		digits := strings.Join(strings.Fields(text[m[2]:m[3]]), "")
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{Span: n, Start: m[0], End: m[1]})
	}
	return tokens
}

// MatchPlaceholder reports whether text starts with a token, returning its
// span index and byte length.
func MatchPlaceholder(text string) (span, length int, ok bool) {
	loc := placeholderRe.FindStringSubmatchIndex(text)
	if loc == nil || loc[0] != 0 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(strings.Join(strings.Fields(text[loc[2]:loc[3]]), ""))
	if err != nil {
		return 0, 0, false
	}
	return n, loc[1], true
}

// IsOnlyPlaceholder reports whether the trimmed text is exactly one token.
func IsOnlyPlaceholder(text string) bool {
	t := strings.TrimSpace(text)
	loc := placeholderRe.FindStringIndex(t)
	return loc != nil && loc[0] == 0 && loc[1] == len(t)
}
