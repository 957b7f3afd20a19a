// Package layout holds the decoded page model: positioned glyphs, vector
// line primitives and the region-classification mask used to bucket them.
package layout

import (
	"context"
	"fmt"
)

// Matrix is a PDF text rendering matrix [a b c d e f].
type Matrix [6]float64

// Identity returns the unit matrix translated to (x, y) and scaled by size.
func Identity(size, x, y float64) Matrix {
	return Matrix{size, 0, 0, size, x, y}
}

// Degenerate reports whether both diagonal scale terms are zero, which
// happens for rotated or otherwise unusual glyph placement.
func (m Matrix) Degenerate() bool {
	return m[0] == 0 && m[3] == 0
}

// Addressing is the way a font's content-stream codes select glyphs.
type Addressing int

const (
	// Simple fonts use one byte per code.
	Simple Addressing = iota
	// Composite (CID-keyed) fonts use two-byte codes.
	Composite
)

func (a Addressing) String() string {
	if a == Composite {
		return "composite"
	}
	return "simple"
}

// FontRef identifies the font a glyph was drawn with.
type FontRef struct {
	// ID is the page resource name (e.g. "F1").
	ID string
	// Name is the base font name (e.g. "CMMI10").
	Name       string
	Addressing Addressing
}

// Glyph is one positioned character instance. Coordinates are PDF user
// space, origin bottom-left. Glyphs are never mutated after decoding.
type Glyph struct {
	CID     int
	Text    string
	Defined bool
	Matrix  Matrix
	Font    FontRef
	Size    float64
	// Advance is the horizontal advance in user space units.
	Advance float64
	X0, Y0  float64
	X1, Y1  float64
}

// Char returns the decoded text, or the (cid:N) escape when the font had
// no mapping for the code.
func (g Glyph) Char() string {
	if !g.Defined || g.Text == "" {
		return fmt.Sprintf("(cid:%d)", g.CID)
	}
	return g.Text
}

// Width returns X1-X0.
func (g Glyph) Width() float64 { return g.X1 - g.X0 }

// Line is a straight vector segment drawn on the page.
type Line struct {
	X0, Y0 float64
	X1, Y1 float64
	Width  float64
}

// Page is the decoded content of one page.
type Page struct {
	Index  int
	Width  float64
	Height float64
	Glyphs []Glyph
	Lines  []Line
	// Graphics is the original content with text objects removed. It is
	// re-emitted ahead of the synthesized text.
	Graphics []byte
}

// Decoder yields decoded pages from a source document.
type Decoder interface {
	NumPages() int
	Decode(ctx context.Context, index int) (*Page, error)
}
