// Package reflow places translated text into fixed boxes: greedy word
// wrap with hyphenation, and font-size search until the text fits.
package reflow

import (
	"regexp"
	"strings"

	"pdf-layout-translator/internal/fonts"
)

// Shrink selects how the font size decreases between iterations.
type Shrink int

const (
	// Proportional scales the size by the height overflow ratio.
	Proportional Shrink = iota
	// Fixed10 shrinks by 10% per iteration.
	Fixed10
)

// Defaults.
const (
	DefaultLineSpacing = 1.2
	DefaultMinSize     = 4.0
	DefaultMaxIter     = 10
)

// minStep bounds how little a proportional step may shrink.
const minStep = 0.95

// Renderer wraps and fits text. The zero value is not usable; call New.
type Renderer struct {
	LineSpacing float64
	MinSize     float64
	MaxIter     int
	Shrink      Shrink
	Debug       bool
	Measurer    *fonts.Measurer

	// Hyphenator finds syllable breaks; nil splits between graphemes.
	Hyphenator Hyphenator
}

// New returns a renderer with default settings.
func New(m *fonts.Measurer) *Renderer {
	if m == nil {
		m = fonts.NewMeasurer(nil)
	}
	return &Renderer{
		LineSpacing: DefaultLineSpacing,
		MinSize:     DefaultMinSize,
		MaxIter:     DefaultMaxIter,
		Shrink:      Proportional,
		Measurer:    m,
	}
}

var (
	blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)
	spaceRe     = regexp.MustCompile(`\s+`)
	hyphenRe    = regexp.MustCompile(`-(\s*\n\s*)`)
)

// Paragraphs splits text at blank lines. Single newlines inside a
// paragraph are wrap markers and become spaces.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range blankLineRe.Split(text, -1) {
		p = strings.TrimSpace(spaceRe.ReplaceAllString(p, " "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanHyphenation joins words split across lines by a trailing hyphen.
func CleanHyphenation(text string) string {
	return hyphenRe.ReplaceAllString(text, "")
}

func (r *Renderer) width(face fonts.Face, s string, size float64) float64 {
	return r.Measurer.Width(face, s, size)
}

// Wrap breaks one paragraph into lines no wider than maxWidth. Words that
// cannot fit alone are hyphenated, or split between characters when no
// syllable break fits. The head of a split word fills the rest of the
// current line, so wrapping the joined lines again yields the same lines.
func (r *Renderer) Wrap(text string, face fonts.Face, size, maxWidth float64) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if cur != "" {
			candidate = cur + " " + word
		}
		if r.width(face, candidate, size) <= maxWidth {
			cur = candidate
			continue
		}
		if r.width(face, word, size) <= maxWidth {
			lines = append(lines, cur)
			cur = word
			continue
		}

		units, mark := r.units(word, face, size, maxWidth)
		if cur != "" {
			if n := r.fit(cur+" ", units, mark, face, size, maxWidth); n > 0 {
				lines = append(lines, cur+" "+strings.Join(units[:n], "")+mark)
				units = units[n:]
			} else {
				lines = append(lines, cur)
			}
		}
		pieces := r.pack(units, mark, face, size, maxWidth)
		lines = append(lines, pieces[:len(pieces)-1]...)
		cur = pieces[len(pieces)-1]
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// units breaks a word wider than maxWidth into the pieces it may be split
// between, and returns the mark that ends a split line: a hyphen for
// Latin words, nothing for CJK.
func (r *Renderer) units(word string, face fonts.Face, size, maxWidth float64) ([]string, string) {
	first := []rune(word)[0]
	if isCJK(first) {
		return Graphemes(word), ""
	}
	if r.Hyphenator == nil {
		return Graphemes(word), "-"
	}
	var units []string
	for _, syl := range r.Hyphenator.Syllables(word) {
		if r.width(face, syl+"-", size) <= maxWidth {
			units = append(units, syl)
			continue
		}
		units = append(units, Graphemes(syl)...)
	}
	return units, "-"
}

// fit returns how many leading units, followed by mark, fit after prefix.
// It never takes every unit.
func (r *Renderer) fit(prefix string, units []string, mark string, face fonts.Face, size, maxWidth float64) int {
	n := 0
	head := prefix
	for n < len(units)-1 {
		head += units[n]
		if r.width(face, head+mark, size) > maxWidth {
			break
		}
		n++
	}
	return n
}

// pack greedily joins units into pieces, appending mark to all but the
// last. A single unit wider than maxWidth still gets its own piece.
func (r *Renderer) pack(units []string, mark string, face fonts.Face, size, maxWidth float64) []string {
	var pieces []string
	cur := ""
	for _, u := range units {
		if cur != "" && r.width(face, cur+u+mark, size) > maxWidth {
			pieces = append(pieces, cur+mark)
			cur = ""
		}
		cur += u
	}
	return append(pieces, cur)
}

// WrapAll wraps every paragraph of text and concatenates the lines.
func (r *Renderer) WrapAll(text string, face fonts.Face, size, maxWidth float64) []string {
	var lines []string
	for _, p := range Paragraphs(text) {
		lines = append(lines, r.Wrap(p, face, size, maxWidth)...)
	}
	return lines
}

// Height returns the height n lines take at size.
func (r *Renderer) Height(n int, size float64) float64 {
	return float64(n) * size * r.LineSpacing
}

// Reflow shrinks the font size until the wrapped text fits in height, or
// the size reaches MinSize, or MaxIter iterations pass. It returns the
// lines and the size they were wrapped at, never below MinSize.
func (r *Renderer) Reflow(text string, face fonts.Face, size, width, height float64) ([]string, float64) {
	if size < r.MinSize {
		size = r.MinSize
	}
	lines := r.WrapAll(text, face, size, width)
	for iter := 0; iter < r.MaxIter; iter++ {
		h := r.Height(len(lines), size)
		if h <= height || size <= r.MinSize {
			break
		}
		next := size * 0.9
		if r.Shrink == Proportional && h > 0 {
			next = size * height / h
			if next > size*minStep {
				next = size * minStep
			}
		}
		if next < r.MinSize {
			next = r.MinSize
		}
		size = next
		lines = r.WrapAll(text, face, size, width)
	}
	return lines, size
}
