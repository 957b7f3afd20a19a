// Package fonts provides the metrics used to place translated text: core
// PDF fonts for Latin body text, an embeddable TrueType fallback with wide
// coverage, cached string measurement, and the per-character font choice.
package fonts

import (
	"pdf-layout-translator/internal/layout"
)

// Face exposes the metrics of one font. Advances, ascent and descent are
// in 1/1000 em.
type Face interface {
	Name() string
	Addressing() layout.Addressing
	Has(r rune) bool
	Advance(r rune) float64
	// Encode returns the bytes a content stream shows for r.
	Encode(r rune) []byte
	Ascent() float64
	Descent() float64
}

// Width returns the advance of r at size in user space units.
func Width(f Face, r rune, size float64) float64 {
	return f.Advance(r) * size / 1000
}

// BaselineOffset is the distance from the top of a line box to its
// baseline. Faces without usable metrics fall back to 0.8 em.
func BaselineOffset(f Face, size float64) float64 {
	if f == nil || f.Ascent() <= 0 {
		return 0.8 * size
	}
	return f.Ascent() * size / 1000
}
