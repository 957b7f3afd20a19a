package layout

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"

	"pdf-layout-translator/internal/logger"
)

// PageRenderer rasterises PDF pages with poppler's pdftoppm.
type PageRenderer struct {
	DPI    int
	binary string
}

// NewPageRenderer returns a renderer, or an error when pdftoppm is missing.
func NewPageRenderer(dpi int) (*PageRenderer, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not found (install poppler-utils): %w", err)
	}
	if dpi <= 0 {
		dpi = 72
	}
	return &PageRenderer{DPI: dpi, binary: bin}, nil
}

// Scale is image pixels per PDF point.
func (r *PageRenderer) Scale() float64 {
	return float64(r.DPI) / 72
}

// Render converts the zero-based page index of pdfPath to an image.
func (r *PageRenderer) Render(ctx context.Context, pdfPath string, index int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "pdfpage_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	pageNum := fmt.Sprintf("%d", index+1)
	cmd := exec.CommandContext(ctx, r.binary,
		"-f", pageNum, "-l", pageNum,
		"-png", "-r", fmt.Sprintf("%d", r.DPI),
		"-singlefile", pdfPath, prefix)
	hideWindow(cmd)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(output))
	}

	file, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to open rendered page: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}

	logger.Debug("page rendered",
		logger.Page(index),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()))
	return img, nil
}
