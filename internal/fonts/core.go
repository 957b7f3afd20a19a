package fonts

import (
	"fmt"

	pdffont "github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding/charmap"

	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/types"
)

// DefaultBodyFont is the standard font used for Latin text.
const DefaultBodyFont = "Times-Roman"

// coreMetrics holds the vertical metrics from the standard AFM files.
var coreMetrics = map[string][2]float64{
	"Times-Roman":           {683, -217},
	"Times-Bold":            {683, -217},
	"Times-Italic":          {683, -217},
	"Times-BoldItalic":      {683, -217},
	"Helvetica":             {718, -207},
	"Helvetica-Bold":        {718, -207},
	"Helvetica-Oblique":     {718, -207},
	"Helvetica-BoldOblique": {718, -207},
	"Courier":               {629, -157},
	"Courier-Bold":          {629, -157},
	"Courier-Oblique":       {629, -157},
	"Courier-BoldOblique":   {629, -157},
}

// CoreFace is a standard Type1 font with WinAnsi encoding. Nothing is
// embedded; viewers supply the outlines.
type CoreFace struct {
	name    string
	ascent  float64
	descent float64
}

// NewCoreFace returns the named standard font.
func NewCoreFace(name string) (*CoreFace, error) {
	if name == "" {
		name = DefaultBodyFont
	}
	m, ok := coreMetrics[name]
	if !ok {
		return nil, types.NewAppErrorWithDetails(types.ErrFont, "unsupported body font", fmt.Sprintf("%q is not a standard text font", name), nil)
	}
	return &CoreFace{name: name, ascent: m[0], descent: m[1]}, nil
}

func (f *CoreFace) Name() string                  { return f.name }
func (f *CoreFace) Addressing() layout.Addressing { return layout.Simple }
func (f *CoreFace) Ascent() float64               { return f.ascent }
func (f *CoreFace) Descent() float64              { return f.descent }

func (f *CoreFace) code(r rune) (byte, bool) {
	if r < 0x20 {
		return 0, false
	}
	return charmap.Windows1252.EncodeRune(r)
}

// Has reports whether r is in WinAnsi and has a glyph.
func (f *CoreFace) Has(r rune) bool {
	b, ok := f.code(r)
	return ok && f.width(b) > 0
}

// Advance returns the AFM width of r, or 0 when r is not covered.
func (f *CoreFace) Advance(r rune) float64 {
	b, ok := f.code(r)
	if !ok {
		return 0
	}
	return f.width(b)
}

// width reads the AFM width for a single WinAnsi code; at size 1000 the
// result is already in glyph space.
func (f *CoreFace) width(b byte) float64 {
	return pdffont.TextWidth(string([]byte{b}), f.name, 1000)
}

// Encode returns the single WinAnsi byte for r.
func (f *CoreFace) Encode(r rune) []byte {
	b, ok := f.code(r)
	if !ok {
		return nil
	}
	return []byte{b}
}
