package reflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/go-text/typesetting/segmenter"
	"github.com/speedata/hyphenation"
	"golang.org/x/text/language"
)

// Hyphenator splits a word into fragments at legal break points.
// Returning fewer than two fragments means the word has no break point.
type Hyphenator interface {
	Syllables(word string) []string
}

// PatternHyphenator breaks words with TeX hyphenation patterns.
type PatternHyphenator struct {
	lang *hyphenation.Lang
}

// NewPatternHyphenator reads patterns in the hyph-utf8 .pat.txt format.
func NewPatternHyphenator(r io.Reader) (*PatternHyphenator, error) {
	l, err := hyphenation.New(r)
	if err != nil {
		return nil, err
	}
	return &PatternHyphenator{lang: l}, nil
}

// Syllables implements Hyphenator. Words containing non-letters are left
// whole.
func (h *PatternHyphenator) Syllables(word string) []string {
	runes := []rune(word)
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return []string{word}
		}
	}

	breaks := h.lang.Hyphenate(word)
	sort.Ints(breaks)
	var out []string
	prev := 0
	for _, b := range breaks {
		if b <= prev || b >= len(runes) {
			continue
		}
		out = append(out, string(runes[prev:b]))
		prev = b
	}
	return append(out, string(runes[prev:]))
}

// patternAliases maps a bare language to the pattern file most documents
// in that language need.
var patternAliases = map[string]string{
	"en": "en-us",
	"de": "de-1996",
	"el": "el-monoton",
	"mn": "mn-cyrl",
	"sr": "sh-cyrl",
}

// patternFiles lists candidate file names for lang, most specific first.
func patternFiles(lang string) []string {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil
	}
	var names []string
	add := func(code string) {
		name := "hyph-" + strings.ToLower(code) + ".pat.txt"
		for _, n := range names {
			if n == name {
				return
			}
		}
		names = append(names, name)
	}
	add(tag.String())
	base, _ := tag.Base()
	if alias, ok := patternAliases[base.String()]; ok {
		add(alias)
	}
	add(base.String())
	return names
}

// LoadHyphenator picks the pattern file for lang from dir. It returns nil
// without error when dir is empty, so callers fall back to splitting
// between graphemes.
func LoadHyphenator(dir, lang string) (Hyphenator, error) {
	if dir == "" {
		return nil, nil
	}
	for _, name := range patternFiles(lang) {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		h, err := NewPatternHyphenator(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return h, nil
	}
	return nil, fmt.Errorf("no hyphenation patterns for %q in %s", lang, dir)
}

// Graphemes splits s into user-perceived characters.
func Graphemes(s string) []string {
	var seg segmenter.Segmenter
	seg.Init([]rune(s))
	iter := seg.GraphemeIterator()

	var out []string
	for iter.Next() {
		out = append(out, string(iter.Grapheme().Text))
	}
	return out
}

// isCJK reports whether r belongs to a script written without spaces.
func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
