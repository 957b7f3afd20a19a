package fonts

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/layout"
)

func TestCoreFace(t *testing.T) {
	f, err := NewCoreFace("")
	require.NoError(t, err)

	assert.Equal(t, "Times-Roman", f.Name())
	assert.Equal(t, layout.Simple, f.Addressing())
	assert.Equal(t, 250.0, f.Advance(' '))
	assert.Equal(t, 444.0, f.Advance('a'))
	assert.Equal(t, 500.0, f.Advance('b'))
	assert.InDelta(t, 4.44, Width(f, 'a', 10), 1e-9)

	assert.True(t, f.Has('a'))
	assert.False(t, f.Has('中'))
	assert.False(t, f.Has('\n'))
	assert.Equal(t, 0.0, f.Advance('中'))

	assert.Equal(t, []byte{'a'}, f.Encode('a'))
	assert.Equal(t, []byte{0xE9}, f.Encode('é'))
	assert.Nil(t, f.Encode('中'))
}

func TestNewCoreFaceRejectsUnknown(t *testing.T) {
	for _, name := range []string{"Symbol", "Arial", "ZapfDingbats"} {
		t.Run(name, func(t *testing.T) {
			_, err := NewCoreFace(name)
			assert.Error(t, err)
		})
	}
}

func TestTrueTypeFace(t *testing.T) {
	f, err := LoadTrueTypeFace("")
	require.NoError(t, err)

	assert.NotEmpty(t, f.Name())
	assert.NotContains(t, f.Name(), " ")
	assert.Equal(t, layout.Composite, f.Addressing())
	assert.Greater(t, f.NumGlyphs(), 100)
	assert.Greater(t, f.Ascent(), 0.0)
	assert.Less(t, f.Descent(), 0.0)

	assert.True(t, f.Has('a'))
	assert.True(t, f.Has('Ω'))
	assert.False(t, f.Has('中'))
	assert.Greater(t, f.Advance('a'), 0.0)
	assert.Equal(t, f.Advance('a'), f.GlyphAdvance(f.GlyphID('a')))

	enc := f.Encode('a')
	require.Len(t, enc, 2)
	assert.Equal(t, f.GlyphID('a'), uint16(enc[0])<<8|uint16(enc[1]))
}

func TestLoadTrueTypeFaceMissingFile(t *testing.T) {
	_, err := LoadTrueTypeFace("/nonexistent/font.ttf")
	assert.Error(t, err)

	_, err = NewTrueTypeFace([]byte("not a font"))
	assert.Error(t, err)
}

func TestBaselineOffset(t *testing.T) {
	body, err := NewCoreFace("Helvetica")
	require.NoError(t, err)
	assert.InDelta(t, 7.18, BaselineOffset(body, 10), 1e-9)
	assert.InDelta(t, 8.0, BaselineOffset(nil, 10), 1e-9)
}

func TestResolver(t *testing.T) {
	body, err := NewCoreFace("")
	require.NoError(t, err)
	fallback, err := LoadTrueTypeFace("")
	require.NoError(t, err)

	res := NewResolver(body, fallback)

	f, r := res.Resolve('a')
	assert.Same(t, body, f)
	assert.Equal(t, 'a', r)

	f, r = res.Resolve('Ω')
	assert.Same(t, fallback, f)
	assert.Equal(t, 'Ω', r)

	f, r = res.Resolve('中')
	assert.NotEqual(t, '中', r, "uncovered characters become a marker")
	assert.True(t, f.Has(r) || r == '?')

	onlyBody := NewResolver(body, nil)
	f, r = onlyBody.Resolve('Ω')
	assert.Same(t, body, f)
	assert.Equal(t, '?', r)
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(2)
	c.Put("F", "a", 10, 1)
	c.Put("F", "b", 10, 2)

	_, ok := c.Get("F", "a", 10) // a becomes most recent
	require.True(t, ok)

	c.Put("F", "c", 10, 3)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("F", "b", 10)
	assert.False(t, ok, "least recently used entry is evicted")
	w, ok := c.Get("F", "a", 10)
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)

	_, ok = c.Get("F", "a", 11)
	assert.False(t, ok, "size is part of the key")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestCacheUpdateExisting(t *testing.T) {
	c := NewCache(0)
	c.Put("F", "a", 10, 1)
	c.Put("F", "a", 10, 5)
	assert.Equal(t, 1, c.Len())
	w, _ := c.Get("F", "a", 10)
	assert.Equal(t, 5.0, w)
}

func TestCacheConcurrent(t *testing.T) {
	c := NewCache(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("%d-%d", n, j%80)
				c.Put("F", key, 10, float64(j))
				c.Get("F", key, 10)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}

func TestMeasurerCoreFace(t *testing.T) {
	body, err := NewCoreFace("")
	require.NoError(t, err)

	m := NewMeasurer(nil)
	assert.InDelta(t, 9.44, m.Width(body, "ab", 10), 1e-9)
	assert.InDelta(t, 9.44, m.Width(body, "ab", 10), 1e-9)
	assert.Equal(t, 0.0, m.Width(body, "", 10))

	hits, _ := m.Cache().Stats()
	assert.Equal(t, uint64(1), hits)
}

func TestMeasurerShapesTrueType(t *testing.T) {
	tt, err := LoadTrueTypeFace("")
	require.NoError(t, err)

	m := NewMeasurer(NewCache(16))
	var sum float64
	for _, r := range "Hello" {
		sum += Width(tt, r, 12)
	}

	got := m.Width(tt, "Hello", 12)
	assert.InEpsilon(t, sum, got, 0.05)
	assert.Greater(t, m.Width(tt, "Hello world", 12), got)
}
