package layout

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"pdf-layout-translator/internal/logger"
)

// Classifier turns a rendered page image into a region mask.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, scale float64) (*Mask, error)
}

// ONNXConfig holds configuration for the ONNX layout classifier
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	// InputSize is the square model input edge, 1024 for DocLayout-YOLO.
	InputSize int
	// MaxDetections is the row count of the [1, N, 6] output tensor.
	MaxDetections int
	Confidence    float64
	InputName     string
	OutputName    string
	Classes       []ElementType
}

func (c *ONNXConfig) withDefaults() ONNXConfig {
	out := *c
	if out.InputSize == 0 {
		out.InputSize = 1024
	}
	if out.MaxDetections == 0 {
		out.MaxDetections = 300
	}
	if out.Confidence == 0 {
		out.Confidence = 0.25
	}
	if out.InputName == "" {
		out.InputName = "images"
	}
	if out.OutputName == "" {
		out.OutputName = "output0"
	}
	if out.Classes == nil {
		out.Classes = DocStructClasses
	}
	return out
}

var ortInit sync.Once
var ortInitErr error

func initRuntime(libPath string) error {
	ortInit.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXClassifier runs a YOLO-style document layout model. Sessions bind
// fixed input/output tensors, so Classify calls are serialised.
type ONNXClassifier struct {
	cfg     ONNXConfig
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNXClassifier loads the model and allocates its tensors.
func NewONNXClassifier(config ONNXConfig) (*ONNXClassifier, error) {
	cfg := config.withDefaults()
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path not specified")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.MaxDetections), 6))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.Info("layout model loaded",
		logger.String("path", cfg.ModelPath),
		logger.Int("inputSize", cfg.InputSize))

	return &ONNXClassifier{cfg: cfg, session: session, input: input, output: output}, nil
}

// Classify detects layout boxes on img and rasterises them into a mask of
// the same pixel size. scale is image pixels per PDF point.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image, scale float64) (*Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lb := Letterbox(img, c.cfg.InputSize)
	copy(c.input.GetData(), lb.Tensor())

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("layout inference failed: %w", err)
	}

	boxes := DecodeDetections(c.output.GetData(), c.cfg.Confidence, c.cfg.Classes, lb)
	b := img.Bounds()
	logger.Debug("layout detections", logger.Int("boxes", len(boxes)))
	return MaskFromBoxes(b.Dx(), b.Dy(), scale, boxes), nil
}

// Close releases the session and tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, d := range []interface{ Destroy() error }{c.session, c.input, c.output} {
		if err := d.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LetterboxImage is a page image scaled to fit a square canvas with grey
// padding, plus the transform needed to map detections back.
type LetterboxImage struct {
	Image  *image.RGBA
	Ratio  float64
	PadX   int
	PadY   int
	SrcW   int
	SrcH   int
	Target int
}

// Letterbox resizes img preserving aspect ratio onto a size×size canvas.
func Letterbox(img image.Image, size int) *LetterboxImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ratio := float64(size) / float64(max(w, h))
	nw, nh := int(float64(w)*ratio+0.5), int(float64(h)*ratio+0.5)
	padX, padY := (size-nw)/2, (size-nh)/2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{114, 114, 114, 255}}, image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, image.Rect(padX, padY, padX+nw, padY+nh), img, b, draw.Src, nil)

	return &LetterboxImage{Image: dst, Ratio: ratio, PadX: padX, PadY: padY, SrcW: w, SrcH: h, Target: size}
}

// Tensor returns the canvas as CHW float32 in [0, 1].
func (l *LetterboxImage) Tensor() []float32 {
	n := l.Target * l.Target
	data := make([]float32, 3*n)
	pix := l.Image.Pix
	for i := 0; i < n; i++ {
		data[i] = float32(pix[i*4]) / 255
		data[n+i] = float32(pix[i*4+1]) / 255
		data[2*n+i] = float32(pix[i*4+2]) / 255
	}
	return data
}

// Unmap converts a canvas coordinate back to source image pixels.
func (l *LetterboxImage) Unmap(x, y float64) (float64, float64) {
	sx := (x - float64(l.PadX)) / l.Ratio
	sy := (y - float64(l.PadY)) / l.Ratio
	return clampF(sx, 0, float64(l.SrcW)), clampF(sy, 0, float64(l.SrcH))
}

// DecodeDetections parses rows of (x0, y0, x1, y1, score, class), drops
// low-confidence rows and maps boxes to source image pixels.
func DecodeDetections(raw []float32, confidence float64, classes []ElementType, lb *LetterboxImage) []Box {
	var boxes []Box
	for i := 0; i+6 <= len(raw); i += 6 {
		row := raw[i : i+6]
		score := float64(row[4])
		if score < confidence {
			continue
		}
		cls := int(row[5])
		typ := ElementText
		if cls >= 0 && cls < len(classes) {
			typ = classes[cls]
		}
		x0, y0 := lb.Unmap(float64(row[0]), float64(row[1]))
		x1, y1 := lb.Unmap(float64(row[2]), float64(row[3]))
		boxes = append(boxes, Box{X0: x0, Y0: y0, X1: x1, Y1: y1, Score: score, Type: typ})
	}
	return boxes
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
