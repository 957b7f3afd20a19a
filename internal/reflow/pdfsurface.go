package reflow

import (
	"image"

	gopdf "github.com/VantageDataChat/GoPDF2"

	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/types"
)

// debugLineWidth is the stroke width of block outlines.
const debugLineWidth = 0.5

const surfaceFamily = "reflow"

// PDFSurface draws onto a new PDF document, one page per AddPage call.
type PDFSurface struct {
	doc  *gopdf.GoPdf
	face *fonts.TrueTypeFace
	size float64
}

// NewPDFSurface starts a document that sets all text in face.
func NewPDFSurface(face *fonts.TrueTypeFace) (*PDFSurface, error) {
	doc := &gopdf.GoPdf{}
	doc.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := doc.AddTTFFontData(surfaceFamily, face.Data()); err != nil {
		return nil, types.NewAppError(types.ErrFont, "failed to embed reflow font", err)
	}
	return &PDFSurface{doc: doc, face: face}, nil
}

// Face returns the font the surface sets text in.
func (s *PDFSurface) Face() *fonts.TrueTypeFace { return s.face }

// AddPage appends a page of the given size in points.
func (s *PDFSurface) AddPage(width, height float64) {
	s.doc.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: width, H: height}})
	s.size = 0
}

// DrawText implements Surface.
func (s *PDFSurface) DrawText(x, baseline float64, text string, size float64) error {
	if size != s.size {
		if err := s.doc.SetFont(surfaceFamily, "", size); err != nil {
			return err
		}
		s.size = size
	}
	s.doc.SetXY(x, baseline)
	return s.doc.Text(text)
}

// DrawRect implements Surface with a thin red outline.
func (s *PDFSurface) DrawRect(x, y, w, h float64) error {
	s.doc.SetLineWidth(debugLineWidth)
	s.doc.SetStrokeColor(255, 0, 0)
	s.doc.RectFromUpperLeftWithStyle(x, y, w, h, "D")
	return nil
}

// DrawImage implements Surface, scaling img to the w×h box.
func (s *PDFSurface) DrawImage(x, y, w, h float64, img image.Image) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	return s.doc.ImageFrom(img, x, y, &gopdf.Rect{W: w, H: h})
}

// Save writes the document to path.
func (s *PDFSurface) Save(path string) error {
	if err := s.doc.WritePdf(path); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write reflowed document", err)
	}
	return nil
}
