package reflow

import (
	"fmt"
	"image"

	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/logger"
)

// Surface receives draw calls. Coordinates have their origin at the top
// left of the page and grow downwards.
type Surface interface {
	DrawText(x, baseline float64, text string, size float64) error
	DrawRect(x, y, w, h float64) error
	DrawImage(x, y, w, h float64, img image.Image) error
}

// Block is a box to fill, in surface coordinates. Y is the top edge.
// Blocks carrying an Image are painted with it instead of text.
type Block struct {
	X, Y  float64
	W, H  float64
	Text  string
	Size  float64
	Image image.Image
}

// Placement is the outcome of fitting one block.
type Placement struct {
	Lines []string
	Size  float64
}

// RenderBlocks draws image blocks at their box, then fits each text
// block's translation and draws it left aligned. blocks and translations
// must have the same length; empty translations are skipped.
func (r *Renderer) RenderBlocks(s Surface, face fonts.Face, blocks []Block, translations []string) ([]Placement, error) {
	if len(blocks) != len(translations) {
		return nil, fmt.Errorf("got %d translations for %d blocks", len(translations), len(blocks))
	}
	log := logger.GetLogger()

	out := make([]Placement, len(blocks))
	for i, b := range blocks {
		if r.Debug {
			if err := s.DrawRect(b.X, b.Y, b.W, b.H); err != nil {
				return nil, err
			}
		}
		if b.Image != nil {
			if err := s.DrawImage(b.X, b.Y, b.W, b.H, b.Image); err != nil {
				return nil, err
			}
			continue
		}
		text := translations[i]
		if text == "" {
			continue
		}

		lines, size := r.Reflow(text, face, b.Size, b.W, b.H)
		out[i] = Placement{Lines: lines, Size: size}
		if h := r.Height(len(lines), size); h > b.H {
			log.Debug("block overflows at minimum size",
				logger.Int("block", i),
				logger.Float64("height", h),
				logger.Float64("box", b.H))
		}

		baseline := b.Y + fonts.BaselineOffset(face, size)
		for _, line := range lines {
			if err := s.DrawText(b.X, baseline, line, size); err != nil {
				return nil, err
			}
			baseline += size * r.LineSpacing
		}
	}
	return out, nil
}
