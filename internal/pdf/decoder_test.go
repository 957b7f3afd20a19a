package pdf

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/reflow"
)

func TestMatrixHelpers(t *testing.T) {
	scale := layout.Matrix{2, 0, 0, 2, 0, 0}
	move := layout.Matrix{1, 0, 0, 1, 10, 20}

	assert.Equal(t, layout.Matrix{2, 0, 0, 2, 10, 20}, mul(scale, move))
	assert.Equal(t, layout.Matrix{2, 0, 0, 2, 20, 40}, mul(move, scale))
	assert.Equal(t, move, mul(identity, move))

	x, y := apply(mul(scale, move), 1, 1)
	assert.Equal(t, 12.0, x)
	assert.Equal(t, 22.0, y)
}

func TestOpenDecoderMissingFile(t *testing.T) {
	_, err := OpenDecoder(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)

	var perr *PDFError
	require.True(t, stderrors.As(err, &perr))
	assert.Equal(t, ErrPDFNotFound, perr.Code)
}

func TestDecodeGeneratedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")

	s, err := reflow.NewPDFSurface(goRegular(t))
	require.NoError(t, err)
	s.AddPage(300, 400)
	require.NoError(t, s.DrawText(20, 50, "Hello", 12))
	s.AddPage(300, 400)
	require.NoError(t, s.Save(path))

	dec, err := OpenDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, 2, dec.NumPages())
	page, err := dec.Decode(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Index)
	assert.InDelta(t, 300, page.Width, 0.5)
	assert.InDelta(t, 400, page.Height, 0.5)
}
