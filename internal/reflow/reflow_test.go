package reflow

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/fonts"
)

func helvetica(t *testing.T) fonts.Face {
	t.Helper()
	f, err := fonts.NewCoreFace("Helvetica")
	require.NoError(t, err)
	return f
}

func TestReflowHelloWorldSplits(t *testing.T) {
	face := helvetica(t)
	r := New(nil)

	// "Hello world" is about 59pt wide at 12pt
	require.Greater(t, r.Measurer.Width(face, "Hello world", 12), 40.0)

	lines, size := r.Reflow("Hello world", face, 12, 40, 100)
	assert.Equal(t, 12.0, size)
	require.GreaterOrEqual(t, len(lines), 2)
	for _, l := range lines {
		assert.LessOrEqual(t, r.Measurer.Width(face, l, size), 40.0, l)
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	face := helvetica(t)
	hyph := patterns(t, "1na 1ti 1de")

	tests := []struct {
		name  string
		text  string
		width float64
		hyph  Hyphenator
	}{
		{"plain words", "The quick brown fox jumps over the lazy dog while the cat watches from a quiet corner of the room", 120, nil},
		{"split after short word", "a internationalization of the considerable", 55, nil},
		{"split at wider box", "a internationalization of the considerable", 70, nil},
		{"several long words", "to reconsider denationalization and counterrevolutionaries now", 60, nil},
		{"syllable breaks", "a internationalization of the considerable", 55, hyph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(nil)
			r.Hyphenator = tt.hyph

			first := r.Wrap(tt.text, face, 10, tt.width)
			second := r.Wrap(strings.Join(first, " "), face, 10, tt.width)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("re-wrap changed lines (-first +second):\n%s", diff)
			}
			for _, l := range first {
				assert.LessOrEqual(t, r.Measurer.Width(face, l, 10), tt.width, l)
			}
		})
	}
}

func TestWrapFillsLineBeforeSplitting(t *testing.T) {
	face := helvetica(t)
	r := New(nil)

	lines := r.Wrap("a internationalization", face, 10, 55)
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "a inter"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], "-"), lines[0])
}

func TestWrapHyphenatesLongWords(t *testing.T) {
	face := helvetica(t)
	r := New(nil)
	word := "internationalization"

	lines := r.Wrap(word, face, 10, 30)
	require.Greater(t, len(lines), 1)

	var joined strings.Builder
	for i, l := range lines {
		assert.LessOrEqual(t, r.Measurer.Width(face, l, 10), 30.0, l)
		if i < len(lines)-1 {
			require.True(t, strings.HasSuffix(l, "-"), l)
			l = strings.TrimSuffix(l, "-")
		}
		joined.WriteString(l)
	}
	assert.Equal(t, word, joined.String())
}

func TestWrapWithoutHyphenatorSplitsCharacters(t *testing.T) {
	face := helvetica(t)
	r := New(nil)
	r.Hyphenator = nil

	lines := r.Wrap("aaaaaaaaaa", face, 10, 20)
	require.Greater(t, len(lines), 1)
	for _, l := range lines[:len(lines)-1] {
		assert.True(t, strings.HasSuffix(l, "-"))
		assert.LessOrEqual(t, r.Measurer.Width(face, l, 10), 20.0)
	}
}

func TestReflowShrink(t *testing.T) {
	face := helvetica(t)

	tests := []struct {
		name    string
		shrink  Shrink
		maxIter int
		height  float64
		want    float64
	}{
		{"fixed step", Fixed10, 1, 10, 10.8},
		{"proportional step", Proportional, 1, 10, 12 * 10 / 28.8},
		{"floor", Proportional, DefaultMaxIter, 1, DefaultMinSize},
		{"fits already", Fixed10, DefaultMaxIter, 100, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(nil)
			r.Shrink = tt.shrink
			r.MaxIter = tt.maxIter
			_, size := r.Reflow("Hello world", face, 12, 40, tt.height)
			assert.InDelta(t, tt.want, size, 1e-9)
		})
	}
}

func TestReflowConverges(t *testing.T) {
	face := helvetica(t)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 40)

	for _, shrink := range []Shrink{Proportional, Fixed10} {
		r := New(nil)
		r.Shrink = shrink
		lines, size := r.Reflow(text, face, 14, 100, 50)
		assert.GreaterOrEqual(t, size, r.MinSize)
		assert.LessOrEqual(t, size, 14.0)
		for _, l := range lines {
			assert.LessOrEqual(t, r.Measurer.Width(face, l, size), 100.0)
		}
	}
}

func TestReflowClampsInitialSize(t *testing.T) {
	r := New(nil)
	_, size := r.Reflow("hi", helvetica(t), 2, 100, 100)
	assert.Equal(t, DefaultMinSize, size)
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("first line\nwrapped here\n\n  second\r\n \r\nthird ")
	want := []string{"first line wrapped here", "second", "third"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Paragraphs mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Paragraphs(" \n\n "))
}

func TestCleanHyphenation(t *testing.T) {
	assert.Equal(t, "translation memory", CleanHyphenation("trans-\n  lation memory"))
	assert.Equal(t, "well-known", CleanHyphenation("well-known"))
}

// patterns builds a hyphenator from inline TeX patterns.
func patterns(t *testing.T, pat string) Hyphenator {
	t.Helper()
	h, err := NewPatternHyphenator(strings.NewReader(pat))
	require.NoError(t, err)
	return h
}

func TestPatternSyllables(t *testing.T) {
	h := patterns(t, "1na 1ti 1de")

	for _, word := range []string{"internationalization", "considerable", "the", "x2", "中文"} {
		t.Run(word, func(t *testing.T) {
			parts := h.Syllables(word)
			require.NotEmpty(t, parts)
			for _, p := range parts {
				assert.NotEmpty(t, p)
			}
			assert.Equal(t, word, strings.Join(parts, ""))
		})
	}
	assert.Equal(t, []string{"x2"}, h.Syllables("x2"), "words with digits stay whole")
	assert.Greater(t, len(h.Syllables("internationalization")), 1)
}

func TestLoadHyphenator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hyph-en-us.pat.txt"), []byte("1na 1ti\n"), 0o644))

	h, err := LoadHyphenator(dir, "en")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Greater(t, len(h.Syllables("internationalization")), 1)

	h, err = LoadHyphenator(dir, "en-US")
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = LoadHyphenator(dir, "fr")
	assert.Error(t, err)

	h, err = LoadHyphenator("", "en")
	require.NoError(t, err)
	assert.Nil(t, h, "no directory means grapheme splitting")
}

func TestPatternFiles(t *testing.T) {
	assert.Equal(t, []string{"hyph-en.pat.txt", "hyph-en-us.pat.txt"}, patternFiles("en"))
	assert.Equal(t, []string{"hyph-fr.pat.txt"}, patternFiles("fr"))
	assert.Equal(t, []string{"hyph-de-ch.pat.txt", "hyph-de-1996.pat.txt", "hyph-de.pat.txt"}, patternFiles("de-CH"))
	assert.Empty(t, patternFiles("???"))
}

func TestGraphemes(t *testing.T) {
	assert.Equal(t, []string{"é", "a"}, Graphemes("éa"))
	assert.Equal(t, []string{"中", "文"}, Graphemes("中文"))
}

type call struct {
	kind string
	x, y float64
	text string
	size float64
	w, h float64
	img  image.Image
}

type recorder struct{ calls []call }

func (r *recorder) DrawText(x, baseline float64, text string, size float64) error {
	r.calls = append(r.calls, call{kind: "text", x: x, y: baseline, text: text, size: size})
	return nil
}

func (r *recorder) DrawRect(x, y, w, h float64) error {
	r.calls = append(r.calls, call{kind: "rect", x: x, y: y, w: w, h: h})
	return nil
}

func (r *recorder) DrawImage(x, y, w, h float64, img image.Image) error {
	r.calls = append(r.calls, call{kind: "image", x: x, y: y, w: w, h: h, img: img})
	return nil
}

func TestRenderBlocksDrawsImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	blocks := []Block{
		{X: 20, Y: 30, W: 50, H: 40, Image: img},
		{X: 10, Y: 100, W: 200, H: 50, Size: 12},
	}

	var s recorder
	_, err := New(nil).RenderBlocks(&s, helvetica(t), blocks, []string{"", "caption"})
	require.NoError(t, err)

	require.Len(t, s.calls, 2)
	assert.Equal(t, call{kind: "image", x: 20, y: 30, w: 50, h: 40, img: img}, s.calls[0])
	assert.Equal(t, "caption", s.calls[1].text)
}

func TestRenderBlocks(t *testing.T) {
	face := helvetica(t)
	r := New(nil)
	r.Debug = true

	blocks := []Block{
		{X: 10, Y: 100, W: 40, H: 100, Size: 12},
		{X: 10, Y: 300, W: 40, H: 100, Size: 12},
	}
	var s recorder
	placed, err := r.RenderBlocks(&s, face, blocks, []string{"Hello world", ""})
	require.NoError(t, err)
	require.Len(t, placed, 2)
	assert.Empty(t, placed[1].Lines)

	require.Len(t, s.calls, 4)
	assert.Equal(t, "rect", s.calls[0].kind)
	assert.Equal(t, "Hello", s.calls[1].text)
	assert.Equal(t, 10.0, s.calls[1].x)
	assert.Equal(t, 12.0, s.calls[1].size)
	assert.InDelta(t, 108.616, s.calls[1].y, 1e-9, "baseline sits one ascent below the top")
	assert.Equal(t, "world", s.calls[2].text)
	assert.InDelta(t, s.calls[1].y+12*DefaultLineSpacing, s.calls[2].y, 1e-9)
	assert.Equal(t, "rect", s.calls[3].kind, "empty translations still get outlines")

	_, err = r.RenderBlocks(&s, face, blocks, nil)
	assert.Error(t, err)
}

func TestPDFSurfaceRendersWithEmbeddedFace(t *testing.T) {
	face, err := fonts.LoadTrueTypeFace("")
	require.NoError(t, err)
	s, err := NewPDFSurface(face)
	require.NoError(t, err)
	assert.Same(t, face, s.Face())

	s.AddPage(300, 400)
	blocks := []Block{
		{X: 20, Y: 30, W: 50, H: 40, Image: image.NewRGBA(image.Rect(0, 0, 4, 4))},
		{X: 20, Y: 100, W: 120, H: 60, Size: 12},
	}
	placed, err := New(nil).RenderBlocks(s, s.Face(), blocks, []string{"", "Hello world"})
	require.NoError(t, err)
	assert.NotEmpty(t, placed[1].Lines)

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, s.Save(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
