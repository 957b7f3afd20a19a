package layout

import "math"

// Region ids with fixed meaning.
const (
	// RegionNone is returned when no mask is available.
	RegionNone = -1
	// RegionIgnore marks figures, tables, isolated formulas and page
	// furniture. Glyphs inside it are never translated.
	RegionIgnore = 0
	// RegionBackground is unclassified page area.
	RegionBackground = 1
	// RegionFirst is the id of the first detected text region.
	RegionFirst = 2
)

// ElementType defines the type of a detected layout element
type ElementType string

const (
	ElementText           ElementType = "text"
	ElementTitle          ElementType = "title"
	ElementPicture        ElementType = "picture"
	ElementCaption        ElementType = "caption"
	ElementSectionHeader  ElementType = "section_header"
	ElementFootnote       ElementType = "footnote"
	ElementFormula        ElementType = "formula"
	ElementFormulaCaption ElementType = "formula_caption"
	ElementTable          ElementType = "table"
	ElementListItem       ElementType = "list_item"
	ElementAbandon        ElementType = "abandon"
)

// IsTranslatable returns whether glyphs inside an element of this type are text
func (e ElementType) IsTranslatable() bool {
	switch e {
	case ElementText, ElementTitle, ElementCaption,
		ElementSectionHeader, ElementFootnote, ElementListItem:
		return true
	case ElementFormula, ElementFormulaCaption, ElementPicture, ElementTable, ElementAbandon:
		return false
	default:
		return true
	}
}

// DocStructClasses maps DocLayout-YOLO (DocStructBench) class indices.
var DocStructClasses = []ElementType{
	0: ElementTitle,
	1: ElementText,
	2: ElementAbandon,
	3: ElementPicture,
	4: ElementCaption,
	5: ElementTable,
	6: ElementCaption,
	7: ElementFootnote,
	8: ElementFormula,
	9: ElementFormulaCaption,
}

// Box is a detection in image pixel coordinates (origin top-left).
type Box struct {
	X0, Y0, X1, Y1 float64
	Score          float64
	Type           ElementType
}

// Mask is a per-pixel region map stored bottom-up, so row r covers PDF
// y in [r/Scale, (r+1)/Scale).
type Mask struct {
	Width  int
	Height int
	Data   []int
	// Scale is mask pixels per PDF point. Zero means 1.
	Scale float64
}

// NewMask returns a mask filled with RegionBackground.
func NewMask(w, h int, scale float64) *Mask {
	m := &Mask{Width: w, Height: h, Data: make([]int, w*h), Scale: scale}
	for i := range m.Data {
		m.Data[i] = RegionBackground
	}
	return m
}

// At returns the id at pixel (x, y), clamping into bounds.
func (m *Mask) At(x, y int) int {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return RegionNone
	}
	x = clamp(x, 0, m.Width-1)
	y = clamp(y, 0, m.Height-1)
	return m.Data[y*m.Width+x]
}

// Region returns the id under a PDF user space point.
func (m *Mask) Region(x, y float64) int {
	if m == nil {
		return RegionNone
	}
	s := m.Scale
	if s == 0 {
		s = 1
	}
	return m.At(int(math.Floor(x*s)), int(math.Floor(y*s)))
}

func (m *Mask) fill(x0, y0, x1, y1, id int) {
	x0, x1 = clamp(x0, 0, m.Width), clamp(x1, 0, m.Width)
	y0, y1 = clamp(y0, 0, m.Height), clamp(y1, 0, m.Height)
	for y := y0; y < y1; y++ {
		row := m.Data[y*m.Width:]
		for x := x0; x < x1; x++ {
			row[x] = id
		}
	}
}

// MaskFromBoxes rasterises detections into a w×h mask. Translatable boxes
// get ids RegionFirst+i in detection order; the others are painted
// RegionIgnore afterwards so they win on overlap. Boxes grow by one pixel
// on each side.
func MaskFromBoxes(w, h int, scale float64, boxes []Box) *Mask {
	m := NewMask(w, h, scale)
	for i, b := range boxes {
		if !b.Type.IsTranslatable() {
			continue
		}
		x0, y0, x1, y1 := flipBox(b, h)
		m.fill(x0, y0, x1, y1, RegionFirst+i)
	}
	for _, b := range boxes {
		if b.Type.IsTranslatable() {
			continue
		}
		x0, y0, x1, y1 := flipBox(b, h)
		m.fill(x0, y0, x1, y1, RegionIgnore)
	}
	return m
}

// flipBox converts a top-left-origin box into bottom-up mask rows.
func flipBox(b Box, h int) (x0, y0, x1, y1 int) {
	x0 = int(b.X0) - 1
	x1 = int(b.X1) + 1
	y0 = h - int(b.Y1) - 1
	y1 = h - int(b.Y0) + 1
	return
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
