package layout

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestLetterbox(t *testing.T) {
	lb := Letterbox(whitePage(200, 100), 64)

	assert.InDelta(t, 0.32, lb.Ratio, 1e-9)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 16, lb.PadY)

	// padding is grey, content is white
	assert.Equal(t, color.RGBA{114, 114, 114, 255}, lb.Image.RGBAAt(10, 2))
	assert.GreaterOrEqual(t, lb.Image.RGBAAt(32, 32).R, uint8(250))

	x, y := lb.Unmap(32, 32)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	// coordinates in the padding clamp to the image edge
	_, y = lb.Unmap(0, 0)
	assert.Equal(t, 0.0, y)
}

func TestLetterboxTensor(t *testing.T) {
	lb := Letterbox(whitePage(8, 8), 4)
	data := lb.Tensor()
	require.Len(t, data, 3*4*4)
	for _, v := range data {
		assert.InDelta(t, 1.0, v, 0.01)
	}
}

func TestDecodeDetections(t *testing.T) {
	lb := Letterbox(whitePage(200, 100), 64)
	raw := []float32{
		0, 16, 64, 48, 0.9, 1, // whole page, plain text
		0, 16, 32, 32, 0.1, 3, // below confidence
		32, 32, 64, 48, 0.5, 3, // figure, lower-right quarter
		0, 16, 8, 24, 0.8, 42, // unknown class
	}

	boxes := DecodeDetections(raw, 0.25, DocStructClasses, lb)
	require.Len(t, boxes, 3)

	assert.Equal(t, ElementText, boxes[0].Type)
	assert.InDelta(t, 200, boxes[0].X1, 1e-9)
	assert.InDelta(t, 100, boxes[0].Y1, 1e-9)

	assert.Equal(t, ElementPicture, boxes[1].Type)
	assert.InDelta(t, 100, boxes[1].X0, 1e-9)
	assert.InDelta(t, 50, boxes[1].Y0, 1e-9)

	assert.Equal(t, ElementText, boxes[2].Type, "unknown classes are treated as text")
}

func TestONNXClassifierRequiresModel(t *testing.T) {
	_, err := NewONNXClassifier(ONNXConfig{})
	assert.Error(t, err)

	_, err = NewONNXClassifier(ONNXConfig{ModelPath: "/nonexistent/model.onnx"})
	assert.Error(t, err)
}
