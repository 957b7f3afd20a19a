package fonts

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/types"
)

// em is the ppem that makes sfnt return 1/1000 em units.
var em = fixed.I(1000)

// TrueTypeFace is an embeddable font addressed by glyph id (Identity-H).
type TrueTypeFace struct {
	name    string
	data    []byte
	font    *sfnt.Font
	ascent  float64
	descent float64

	mu  sync.Mutex
	buf sfnt.Buffer
}

// NewTrueTypeFace parses TrueType or OpenType data.
func NewTrueTypeFace(data []byte) (*TrueTypeFace, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, types.NewAppError(types.ErrFont, "failed to parse fallback font", err)
	}
	t := &TrueTypeFace{data: data, font: f}

	m, err := f.Metrics(&t.buf, em, font.HintingNone)
	if err != nil {
		return nil, types.NewAppError(types.ErrFont, "failed to read font metrics", err)
	}
	t.ascent = float64(m.Ascent) / 64
	t.descent = -float64(m.Descent) / 64

	name, err := f.Name(&t.buf, sfnt.NameIDPostScript)
	if err != nil || name == "" {
		name = "Fallback"
	}
	t.name = strings.ReplaceAll(name, " ", "")
	return t, nil
}

// LoadTrueTypeFace reads a font file, or returns Go Regular when path is
// empty.
func LoadTrueTypeFace(path string) (*TrueTypeFace, error) {
	if path == "" {
		return NewTrueTypeFace(goregular.TTF)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrFileNotFound, "failed to read fallback font", err)
	}
	return NewTrueTypeFace(data)
}

func (t *TrueTypeFace) Name() string                  { return t.name }
func (t *TrueTypeFace) Addressing() layout.Addressing { return layout.Composite }
func (t *TrueTypeFace) Ascent() float64               { return t.ascent }
func (t *TrueTypeFace) Descent() float64              { return t.descent }

// Data returns the raw font program for embedding.
func (t *TrueTypeFace) Data() []byte { return t.data }

// NumGlyphs returns the glyph count.
func (t *TrueTypeFace) NumGlyphs() int { return t.font.NumGlyphs() }

// GlyphID maps r to a glyph id; 0 means .notdef.
func (t *TrueTypeFace) GlyphID(r rune) uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	gid, err := t.font.GlyphIndex(&t.buf, r)
	if err != nil {
		return 0
	}
	return uint16(gid)
}

// Has reports whether the font maps r to a real glyph.
func (t *TrueTypeFace) Has(r rune) bool {
	return t.GlyphID(r) != 0
}

// Advance returns the horizontal advance of r's glyph.
func (t *TrueTypeFace) Advance(r rune) float64 {
	return t.GlyphAdvance(t.GlyphID(r))
}

// GlyphAdvance returns the advance of a glyph id.
func (t *TrueTypeFace) GlyphAdvance(gid uint16) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	adv, err := t.font.GlyphAdvance(&t.buf, sfnt.GlyphIndex(gid), em, font.HintingNone)
	if err != nil {
		return 0
	}
	return float64(adv) / 64
}

// Encode returns the big-endian glyph id.
func (t *TrueTypeFace) Encode(r rune) []byte {
	gid := t.GlyphID(r)
	return []byte{byte(gid >> 8), byte(gid)}
}
