package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	pdffont "github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/unicode/norm"

	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
)

// Letter size, used when a page has no usable MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// defaultGlyphWidth applies to codes missing from a font's width table.
const defaultGlyphWidth = 500

// LedongthucDecoder decodes pages with github.com/ledongthuc/pdf. It walks
// content streams itself so that raw character codes survive decoding.
type LedongthucDecoder struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenDecoder opens path for decoding. Close releases the file.
func OpenDecoder(path string) (*LedongthucDecoder, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "cannot open PDF file", err)
	}
	return &LedongthucDecoder{file: f, reader: r}, nil
}

// NewDecoder wraps an already opened reader.
func NewDecoder(r *pdf.Reader) *LedongthucDecoder {
	return &LedongthucDecoder{reader: r}
}

// Reader exposes the underlying document.
func (d *LedongthucDecoder) Reader() *pdf.Reader { return d.reader }

// NumPages implements layout.Decoder.
func (d *LedongthucDecoder) NumPages() int { return d.reader.NumPage() }

// Close closes the file opened by OpenDecoder.
func (d *LedongthucDecoder) Close() error {
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}

// Decode implements layout.Decoder. index is zero-based.
func (d *LedongthucDecoder) Decode(ctx context.Context, index int) (page *layout.Page, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= d.NumPages() {
		return nil, NewPDFErrorWithPage(ErrDecodeFailed, "page out of range", index, nil)
	}

	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = NewPDFErrorWithPage(ErrDecodeFailed, "malformed page content", index, fmt.Errorf("%v", r))
		}
	}()

	p := d.reader.Page(index + 1)
	if p.V.IsNull() {
		return nil, NewPDFErrorWithPage(ErrDecodeFailed, "page object missing", index, nil)
	}

	page = &layout.Page{Index: index}
	page.Width, page.Height = mediaBox(p.V)

	streams := contentStreams(p.V.Key("Contents"))
	var raw bytes.Buffer
	w := newWalker(p, page)
	for _, s := range streams {
		rc := s.Reader()
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, NewPDFErrorWithPage(ErrDecodeFailed, "failed to read content stream", index, err)
		}
		raw.Write(data)
		raw.WriteByte('\n')
		pdf.Interpret(s, w.do)
	}

	page.Graphics, err = StripText(raw.Bytes())
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrDecodeFailed, "failed to parse content stream", index, err)
	}

	logger.Debug("page decoded",
		logger.Page(index),
		logger.Int("glyphs", len(page.Glyphs)),
		logger.Int("lines", len(page.Lines)),
		logger.Int("undefined", w.undefined))
	return page, nil
}

func contentStreams(v pdf.Value) []pdf.Value {
	switch v.Kind() {
	case pdf.Stream:
		return []pdf.Value{v}
	case pdf.Array:
		out := make([]pdf.Value, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if s := v.Index(i); s.Kind() == pdf.Stream {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// mediaBox looks up the possibly inherited MediaBox.
func mediaBox(v pdf.Value) (w, h float64) {
	for depth := 0; v.Kind() == pdf.Dict && depth < 32; depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w = box.Index(2).Float64() - box.Index(0).Float64()
			h = box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}

func mul(m, n layout.Matrix) layout.Matrix {
	return layout.Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func apply(m layout.Matrix, x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

var identity = layout.Matrix{1, 0, 0, 1, 0, 0}

// fontInfo caches what the walker needs from one font resource.
type fontInfo struct {
	ref       layout.FontRef
	font      pdf.Font
	enc       pdf.TextEncoding
	mapped    bool
	core      bool
	cidWidths map[int]float64
	dw        float64
}

func loadFont(p pdf.Page, name string) *fontInfo {
	f := p.Font(name)
	fi := &fontInfo{
		ref:  layout.FontRef{ID: name, Name: f.BaseFont()},
		font: f,
		enc:  f.Encoder(),
	}
	if f.V.Key("Subtype").Name() == "Type0" {
		// composite codes are meaningless without a ToUnicode map
		fi.mapped = f.V.Key("ToUnicode").Kind() == pdf.Stream
		fi.ref.Addressing = layout.Composite
		fi.dw = 1000
		fi.cidWidths = make(map[int]float64)
		if desc := f.V.Key("DescendantFonts").Index(0); desc.Kind() == pdf.Dict {
			if dw := desc.Key("DW"); dw.Kind() != pdf.Null {
				fi.dw = dw.Float64()
			}
			parseCIDWidths(desc.Key("W"), fi.cidWidths)
		}
		return fi
	}

	fi.mapped = true
	if f.V.Key("Widths").Kind() != pdf.Array {
		_, err := fonts.NewCoreFace(fi.ref.Name)
		fi.core = err == nil
	}
	return fi
}

// parseCIDWidths reads a CIDFont W array: "c [w1 w2 ...]" and
// "cfirst clast w" entries.
func parseCIDWidths(w pdf.Value, out map[int]float64) {
	if w.Kind() != pdf.Array {
		return
	}
	for i := 0; i < w.Len(); {
		first := int(w.Index(i).Int64())
		if i+1 >= w.Len() {
			return
		}
		next := w.Index(i + 1)
		if next.Kind() == pdf.Array {
			for j := 0; j < next.Len(); j++ {
				out[first+j] = next.Index(j).Float64()
			}
			i += 2
			continue
		}
		if i+2 >= w.Len() {
			return
		}
		last := int(next.Int64())
		width := w.Index(i + 2).Float64()
		for c := first; c <= last && c-first < 0xffff; c++ {
			out[c] = width
		}
		i += 3
	}
}

func (fi *fontInfo) width(code int) float64 {
	if fi.ref.Addressing == layout.Composite {
		if w, ok := fi.cidWidths[code]; ok {
			return w
		}
		return fi.dw
	}
	if fi.core {
		return float64(pdffont.TextWidth(string([]byte{byte(code)}), fi.ref.Name, 1000))
	}
	if w := fi.font.Width(code); w > 0 {
		return w
	}
	return defaultGlyphWidth
}

// decode maps raw code bytes to text. Codes without a usable mapping are
// reported as undefined.
func (fi *fontInfo) decode(raw string) (string, bool) {
	if !fi.mapped {
		return "", false
	}
	text := norm.NFC.String(fi.enc.Decode(raw))
	if text == "" || !utf8.ValidString(text) {
		return "", false
	}
	for _, r := range text {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return "", false
		}
	}
	return text, true
}

// gstate is the part of the graphics state the walker tracks, text state
// included, saved and restored by q/Q.
type gstate struct {
	ctm       layout.Matrix
	lineWidth float64
	font      *fontInfo
	tfs       float64
	tc, tw    float64
	th        float64
	tl        float64
	trise     float64
}

type walker struct {
	page  *layout.Page
	p     pdf.Page
	fonts map[string]*fontInfo

	gs    gstate
	stack []gstate
	tm    layout.Matrix
	tlm   layout.Matrix

	// current path
	px, py    float64
	ex, ey    float64
	segments  int
	complex   bool
	undefined int
}

func newWalker(p pdf.Page, page *layout.Page) *walker {
	return &walker{
		page:  page,
		p:     p,
		fonts: make(map[string]*fontInfo),
		gs:    gstate{ctm: identity, lineWidth: 1, th: 1},
		tm:    identity,
		tlm:   identity,
	}
}

func pop(stk *pdf.Stack, n int) []pdf.Value {
	args := make([]pdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	return args
}

func floats(args []pdf.Value) []float64 {
	out := make([]float64, len(args))
	for i, a := range args {
		out[i] = a.Float64()
	}
	return out
}

func (w *walker) do(stk *pdf.Stack, op string) {
	switch op {
	case "q":
		w.stack = append(w.stack, w.gs)
	case "Q":
		if n := len(w.stack); n > 0 {
			w.gs = w.stack[n-1]
			w.stack = w.stack[:n-1]
		}
	case "cm":
		a := floats(pop(stk, 6))
		w.gs.ctm = mul(layout.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}, w.gs.ctm)
	case "w":
		w.gs.lineWidth = pop(stk, 1)[0].Float64()

	case "m":
		a := floats(pop(stk, 2))
		w.px, w.py = apply(w.gs.ctm, a[0], a[1])
		w.segments, w.complex = 0, false
	case "l":
		a := floats(pop(stk, 2))
		w.ex, w.ey = apply(w.gs.ctm, a[0], a[1])
		w.segments++
	case "c", "v", "y", "h", "re":
		w.complex = true
	case "S":
		if w.segments == 1 && !w.complex {
			det := math.Abs(w.gs.ctm[0]*w.gs.ctm[3] - w.gs.ctm[1]*w.gs.ctm[2])
			w.page.Lines = append(w.page.Lines, layout.Line{
				X0: w.px, Y0: w.py, X1: w.ex, Y1: w.ey,
				Width: w.gs.lineWidth * math.Sqrt(det),
			})
		}
		w.segments, w.complex = 0, false
	case "s", "f", "F", "f*", "B", "B*", "b", "b*", "n":
		w.segments, w.complex = 0, false

	case "BT":
		w.tm, w.tlm = identity, identity
	case "Tf":
		a := pop(stk, 2)
		name := strings.TrimPrefix(a[0].Name(), "/")
		fi, ok := w.fonts[name]
		if !ok {
			fi = loadFont(w.p, name)
			w.fonts[name] = fi
		}
		w.gs.font = fi
		w.gs.tfs = a[1].Float64()
	case "Tc":
		w.gs.tc = pop(stk, 1)[0].Float64()
	case "Tw":
		w.gs.tw = pop(stk, 1)[0].Float64()
	case "Tz":
		w.gs.th = pop(stk, 1)[0].Float64() / 100
	case "TL":
		w.gs.tl = pop(stk, 1)[0].Float64()
	case "Ts":
		w.gs.trise = pop(stk, 1)[0].Float64()
	case "Td":
		a := floats(pop(stk, 2))
		w.moveLine(a[0], a[1])
	case "TD":
		a := floats(pop(stk, 2))
		w.gs.tl = -a[1]
		w.moveLine(a[0], a[1])
	case "Tm":
		a := floats(pop(stk, 6))
		w.tm = layout.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}
		w.tlm = w.tm
	case "T*":
		w.moveLine(0, -w.gs.tl)
	case "Tj":
		w.show(pop(stk, 1)[0].RawString())
	case "'":
		s := pop(stk, 1)[0].RawString()
		w.moveLine(0, -w.gs.tl)
		w.show(s)
	case "\"":
		a := pop(stk, 3)
		w.gs.tw = a[0].Float64()
		w.gs.tc = a[1].Float64()
		w.moveLine(0, -w.gs.tl)
		w.show(a[2].RawString())
	case "TJ":
		arr := pop(stk, 1)[0]
		for i := 0; i < arr.Len(); i++ {
			v := arr.Index(i)
			if v.Kind() == pdf.String {
				w.show(v.RawString())
				continue
			}
			tx := -v.Float64() / 1000 * w.gs.tfs * w.gs.th
			w.tm = mul(layout.Matrix{1, 0, 0, 1, tx, 0}, w.tm)
		}
	}
}

func (w *walker) moveLine(tx, ty float64) {
	w.tlm = mul(layout.Matrix{1, 0, 0, 1, tx, ty}, w.tlm)
	w.tm = w.tlm
}

// show emits one glyph per character code of s and advances Tm.
func (w *walker) show(s string) {
	fi := w.gs.font
	if fi == nil {
		return
	}
	n := 1
	if fi.ref.Addressing == layout.Composite {
		n = 2
	}
	gs := &w.gs
	for i := 0; i+n <= len(s); i += n {
		code := int(s[i])
		if n == 2 {
			code = code<<8 | int(s[i+1])
		}
		w0 := fi.width(code)

		trm := mul(mul(layout.Matrix{gs.tfs * gs.th, 0, 0, gs.tfs, 0, gs.trise}, w.tm), gs.ctm)
		size := math.Hypot(trm[2], trm[3])
		adv := w0 / 1000 * trm[0]
		text, ok := fi.decode(s[i : i+n])
		if !ok {
			w.undefined++
		}
		w.page.Glyphs = append(w.page.Glyphs, layout.Glyph{
			CID:     code,
			Text:    text,
			Defined: ok,
			Matrix:  trm,
			Font:    fi.ref,
			Size:    size,
			Advance: adv,
			X0:      trm[4],
			Y0:      trm[5],
			X1:      trm[4] + adv,
			Y1:      trm[5] + size,
		})

		tx := w0/1000*gs.tfs + gs.tc
		if n == 1 && code == ' ' {
			tx += gs.tw
		}
		w.tm = mul(layout.Matrix{1, 0, 0, 1, tx * gs.th, 0}, w.tm)
	}
}
