package fonts

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Measurer computes string widths in user space units. TrueType faces are
// shaped with HarfBuzz so ligatures and kerning count; core faces sum
// their AFM widths. Results are memoized in a bounded Cache.
type Measurer struct {
	cache *Cache

	mu     sync.Mutex
	parsed map[*TrueTypeFace]*gtfont.Font

	shapers sync.Pool
}

// NewMeasurer creates a measurer backed by cache. A nil cache gets a
// default-sized one.
func NewMeasurer(cache *Cache) *Measurer {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Measurer{
		cache:  cache,
		parsed: make(map[*TrueTypeFace]*gtfont.Font),
		shapers: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}
}

// Cache returns the underlying cache.
func (m *Measurer) Cache() *Cache { return m.cache }

// Width returns the width of s set in f at size.
func (m *Measurer) Width(f Face, s string, size float64) float64 {
	if s == "" || size <= 0 {
		return 0
	}
	if w, ok := m.cache.Get(f.Name(), s, size); ok {
		return w
	}

	var w float64
	if tt, ok := f.(*TrueTypeFace); ok {
		w = m.shape(tt, s, size)
	} else {
		for _, r := range s {
			w += Width(f, r, size)
		}
	}
	m.cache.Put(f.Name(), s, size, w)
	return w
}

func (m *Measurer) shape(tt *TrueTypeFace, s string, size float64) float64 {
	gf, err := m.font(tt)
	if err != nil {
		var w float64
		for _, r := range s {
			w += Width(tt, r, size)
		}
		return w
	}

	runes := []rune(s)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gtfont.NewFace(gf),
		Size:      fixed.Int26_6(size * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}

	hb := m.shapers.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	m.shapers.Put(hb)

	return float64(out.Advance) / 64
}

// font returns the go-text parse of tt, parsing it once.
func (m *Measurer) font(tt *TrueTypeFace) (*gtfont.Font, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.parsed[tt]; ok {
		return f, nil
	}
	face, err := gtfont.ParseTTF(bytes.NewReader(tt.Data()))
	if err != nil {
		return nil, err
	}
	m.parsed[tt] = face.Font
	return face.Font, nil
}

func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
