package pdf

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/layout"
)

func TestGroupRows(t *testing.T) {
	rows := []textRow{
		{text: "Other", x0: 50, x1: 120, y: 600, size: 10},
		{text: "Title", x0: 50, x1: 200, y: 750, size: 18},
		{text: "First line", x0: 50, x1: 300, y: 700, size: 10},
		{text: "second line", x0: 50, x1: 310, y: 688, size: 10},
	}

	blocks := groupRows(rows)
	require.Len(t, blocks, 3)

	assert.Equal(t, "Title", blocks[0].Text)
	assert.Equal(t, 18.0, blocks[0].FontSize)

	para := blocks[1]
	assert.Equal(t, 1, para.No)
	assert.Equal(t, BlockText, para.Type)
	assert.Equal(t, "First line\nsecond line", para.Text)
	assert.InDelta(t, 50, para.X0, 1e-9)
	assert.InDelta(t, 310, para.X1, 1e-9)
	assert.InDelta(t, 710, para.Y1, 1e-9)
	assert.InDelta(t, 685.5, para.Y0, 1e-9)

	assert.Equal(t, "Other", blocks[2].Text)
}

func TestGroupRowsIndentSplits(t *testing.T) {
	blocks := groupRows([]textRow{
		{text: "left", x0: 50, x1: 100, y: 700, size: 10},
		{text: "right column", x0: 320, x1: 400, y: 688, size: 10},
	})
	assert.Len(t, blocks, 2)
}

func TestGroupRowsMarksCode(t *testing.T) {
	blocks := groupRows([]textRow{
		{text: "0 0 moveto gsave", x0: 50, x1: 100, y: 700, size: 10},
	})
	require.Len(t, blocks, 1)
	assert.Equal(t, BlockOther, blocks[0].Type)
}

func TestBackfillText(t *testing.T) {
	glyph := func(s string, x, y float64, defined bool) layout.Glyph {
		return layout.Glyph{Text: s, Defined: defined, Size: 10, X0: x, Y0: y, X1: x + 6, Y1: y + 10}
	}
	page := &layout.Page{Glyphs: []layout.Glyph{
		glyph("H", 10, 50, true),
		glyph("i", 16, 50, true),
		glyph("?", 22, 50, false),
		glyph("x", 10, 30, true),
		glyph("z", 200, 50, true),
	}}
	blocks := []BlockInfo{
		{Type: BlockText, Text: "··", X0: 0, X1: 100, Y0: 0, Y1: 100},
		{Type: BlockText, Text: "clean", X0: 0, X1: 100, Y0: 0, Y1: 100},
		{Type: BlockOther, Text: "·", X0: 0, X1: 300, Y0: 0, Y1: 100},
	}

	n := BackfillText(blocks, page)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Hi\nx", blocks[0].Text)
	assert.Equal(t, "clean", blocks[1].Text)
	assert.Equal(t, "·", blocks[2].Text)
}

func TestNeedsBackfill(t *testing.T) {
	assert.True(t, NeedsBackfill(&BlockInfo{Text: "  "}))
	assert.True(t, NeedsBackfill(&BlockInfo{Text: "ab·cd"}))
	assert.False(t, NeedsBackfill(&BlockInfo{Text: "abcd"}))
}

func TestLayoutFlipsOrigin(t *testing.T) {
	blocks := []BlockInfo{{X0: 50, X1: 250, Y0: 600, Y1: 700, Text: "a", FontSize: 11}}
	got := Layout(blocks, 792, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 50.0, got[0].X)
	assert.Equal(t, 92.0, got[0].Y)
	assert.Equal(t, 200.0, got[0].W)
	assert.Equal(t, 100.0, got[0].H)
	assert.Equal(t, 11.0, got[0].Size)
	assert.Nil(t, got[0].Image)
}

func TestLayoutAttachesImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	blocks := []BlockInfo{
		{Type: BlockImage, Image: "Im1", X0: 20, X1: 70, Y0: 330, Y1: 370},
		{Type: BlockImage, Image: "Im2", X0: 0, X1: 10, Y0: 0, Y1: 10},
	}
	got := Layout(blocks, 400, PageImages{"Im1": img})
	require.Len(t, got, 2)
	assert.Same(t, img, got[0].Image)
	assert.Equal(t, 30.0, got[0].Y)
	assert.Nil(t, got[1].Image, "images that failed to decode are left out")
}

func TestOriginals(t *testing.T) {
	blocks := []BlockInfo{
		{Type: BlockText, Text: "trans-\nlation works"},
		{Type: BlockOther, Text: "gsave"},
	}
	assert.Equal(t, []string{"translation works", ""}, Originals(blocks))
}
