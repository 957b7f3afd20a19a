package pdf

import (
	stderrors "errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/reflow"
)

func TestUnitSquare(t *testing.T) {
	x0, y0, x1, y1 := unitSquare(layout.Matrix{50, 0, 0, 40, 20, 330})
	assert.Equal(t, []float64{20, 330, 70, 370}, []float64{x0, y0, x1, y1})

	// a 90 degree rotation still yields an upright box
	x0, y0, x1, y1 = unitSquare(layout.Matrix{0, 40, -50, 0, 100, 100})
	assert.Equal(t, []float64{50, 100, 100, 140}, []float64{x0, y0, x1, y1})
}

func TestPlaceImagesInGeneratedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.pdf")

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	s, err := reflow.NewPDFSurface(goRegular(t))
	require.NoError(t, err)
	s.AddPage(300, 400)
	require.NoError(t, s.DrawImage(20, 30, 50, 40, img))
	require.NoError(t, s.DrawText(20, 120, "caption", 10))
	require.NoError(t, s.Save(path))

	dec, err := OpenDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	blocks, err := PlaceImages(dec.Reader(), 0)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, BlockImage, b.Type)
	assert.NotEmpty(t, b.Image)
	assert.InDelta(t, 20, b.X0, 0.5)
	assert.InDelta(t, 70, b.X1, 0.5)
	assert.InDelta(t, 330, b.Y0, 0.5)
	assert.InDelta(t, 370, b.Y1, 0.5)

	// back in surface coordinates the box is where it was drawn
	placed := Layout(blocks, 400, nil)
	assert.InDelta(t, 30, placed[0].Y, 0.5)
}

func TestExtractImagesMissingFile(t *testing.T) {
	_, err := ExtractImages(filepath.Join(t.TempDir(), "missing.pdf"))
	var perr *PDFError
	require.True(t, stderrors.As(err, &perr))
	assert.Equal(t, ErrPDFNotFound, perr.Code)
}
