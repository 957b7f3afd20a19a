package paragraph

import (
	"fmt"
	"regexp"
	"strings"
)

// FontPattern is one entry of the formula-font table.
type FontPattern struct {
	Name string
	Re   *regexp.Regexp
}

// DefaultFontPatterns lists math and symbol font families. Names are
// matched after the subset tag ("ABCDEF+") is stripped.
var DefaultFontPatterns = []FontPattern{
	{"computer-modern", regexp.MustCompile(`^CM[^R]`)},
	{"ams-and-friends", regexp.MustCompile(`^(MS|XY|MT|BL|RM|EU|LA|RS)[A-Z]`)},
	{"latex-line", regexp.MustCompile(`^(LINE|LCIRCLE)`)},
	{"tex", regexp.MustCompile(`TeX-`)},
	{"tex-extras", regexp.MustCompile(`^(rsfs|txsy|wasy|stmary)`)},
	{"mono", regexp.MustCompile(`Mono`)},
	{"code", regexp.MustCompile(`Code`)},
	{"italic", regexp.MustCompile(`Ital`)},
	{"symbol", regexp.MustCompile(`Sym`)},
	{"math", regexp.MustCompile(`Math`)},
}

// Classifier decides whether a font name or decoded character belongs to
// a formula. A custom font pattern replaces the default table.
type Classifier struct {
	Fonts []FontPattern
	// Char optionally flags characters regardless of font.
	Char *regexp.Regexp
}

// NewClassifier builds a classifier. fontPattern and charPattern are
// optional regular expressions from configuration.
func NewClassifier(fontPattern, charPattern string) (*Classifier, error) {
	c := &Classifier{Fonts: DefaultFontPatterns}
	if fontPattern != "" {
		re, err := regexp.Compile(fontPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid formula font pattern: %w", err)
		}
		c.Fonts = []FontPattern{{Name: "custom", Re: re}}
	}
	if charPattern != "" {
		re, err := regexp.Compile(charPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid formula char pattern: %w", err)
		}
		c.Char = re
	}
	return c, nil
}

// BaseFontName strips a subset prefix such as "ABCDEF+".
func BaseFontName(name string) string {
	if i := strings.LastIndexByte(name, '+'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Match reports whether font or char marks formula content.
func (c *Classifier) Match(font, char string) bool {
	if strings.HasPrefix(char, "(cid:") {
		return true
	}
	base := BaseFontName(font)
	for _, p := range c.Fonts {
		if p.Re.MatchString(base) {
			return true
		}
	}
	if c.Char != nil && char != "" && char != " " && c.Char.MatchString(char) {
		return true
	}
	return false
}
