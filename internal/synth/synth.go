package synth

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/paragraph"
)

// PlaceholderError reports a translation whose tokens do not match the
// spans its paragraph owns.
type PlaceholderError struct {
	Paragraph  int
	Missing    []int
	Duplicated []int
	Foreign    []int
}

func (e *PlaceholderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %v", e.Missing))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated %v", e.Duplicated))
	}
	if len(e.Foreign) > 0 {
		parts = append(parts, fmt.Sprintf("foreign %v", e.Foreign))
	}
	return fmt.Sprintf("paragraph %d placeholder mismatch: %s", e.Paragraph, strings.Join(parts, ", "))
}

// CheckPlaceholders verifies that translated holds each of owned exactly
// once and no other token.
func CheckPlaceholders(index int, owned []int, translated string) error {
	want := make(map[int]bool, len(owned))
	for _, n := range owned {
		want[n] = true
	}
	seen := make(map[int]int)
	for _, tok := range paragraph.FindPlaceholders(translated) {
		seen[tok.Span]++
	}

	e := &PlaceholderError{Paragraph: index}
	for _, n := range owned {
		switch seen[n] {
		case 0:
			e.Missing = append(e.Missing, n)
		case 1:
		default:
			e.Duplicated = append(e.Duplicated, n)
		}
	}
	for n := range seen {
		if !want[n] {
			e.Foreign = append(e.Foreign, n)
		}
	}
	if len(e.Missing)+len(e.Duplicated)+len(e.Foreign) == 0 {
		return nil
	}
	sort.Ints(e.Foreign)
	return e
}

// ValidateTranslation checks translated against the tokens its source
// paragraph text carries. It fits translator.ValidateFunc, so broken
// tokens are retried like any other bad response.
func ValidateTranslation(index int, source, translated string) error {
	var owned []int
	for _, tok := range paragraph.FindPlaceholders(source) {
		owned = append(owned, tok.Span)
	}
	return CheckPlaceholders(index, owned, translated)
}

// OverflowTolerance is the fraction of the font size a run may exceed the
// right bound before wrapping.
const OverflowTolerance = 0.1

type opKind int

const (
	opText opKind = iota
	opLine
)

// op is one pending draw; y is resolved once the line index is known.
type op struct {
	kind opKind
	font string
	size float64
	x    float64
	dy   float64
	lidx int
	hex  string
	// line
	xlen, ylen, width float64
}

// Synthesizer emits the content of translated pages. It is stateless; all
// per-page state lives in PageContext.
type Synthesizer struct{}

// New returns a Synthesizer.
func New() *Synthesizer { return &Synthesizer{} }

// Page renders res with translated text. translated must align with
// res.Paragraphs. The output is one BT/ET block.
func (s *Synthesizer) Page(pc *PageContext, res *paragraph.Result, translated []string) ([]byte, error) {
	if len(translated) != len(res.Paragraphs) {
		return nil, fmt.Errorf("got %d translations for %d paragraphs", len(translated), len(res.Paragraphs))
	}
	for i, p := range res.Paragraphs {
		if err := CheckPlaceholders(i, p.Spans, translated[i]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString("BT ")
	for i, p := range res.Paragraphs {
		ops := s.paragraph(pc, res, p, translated[i])
		for _, o := range ops {
			y := p.Y + o.dy - float64(o.lidx)*p.Size*pc.LineHeight
			switch o.kind {
			case opText:
				writeText(&buf, o.font, o.size, o.x, y, o.hex)
			case opLine:
				writeLine(&buf, o.x, y, o.xlen, o.ylen, o.width)
			}
		}
	}
	for _, l := range res.Furniture {
		writeLine(&buf, l.X0, l.Y0, l.X1-l.X0, l.Y1-l.Y0, l.Width)
	}
	buf.WriteString("ET")
	return buf.Bytes(), nil
}

// paragraph walks one translated string. Text is accumulated into runs
// that break on font changes, placeholders, and overflow past X1.
func (s *Synthesizer) paragraph(pc *PageContext, res *paragraph.Result, p *paragraph.Paragraph, text string) []op {
	var (
		ops     []op
		x       = p.X
		lidx    int
		run     strings.Builder
		runX    float64
		runFace fonts.Face
		cur     fonts.Face
		size    = p.Size
	)

	flush := func() {
		if run.Len() == 0 {
			return
		}
		ops = append(ops, op{kind: opText, font: pc.ResourceName(runFace), size: size, x: runX, lidx: lidx, hex: run.String()})
		run.Reset()
	}

	for ptr := 0; ptr < len(text); {
		var (
			adv  float64
			span *paragraph.FormulaSpan
			face fonts.Face
			ch   rune
		)

		if n, length, ok := paragraph.MatchPlaceholder(text[ptr:]); ok {
			ptr += length
			if n < 0 || n >= len(res.Spans) {
				continue
			}
			span = res.Spans[n]
			adv = span.Width
		} else {
			r, n := utf8.DecodeRuneInString(text[ptr:])
			ptr += n
			face, ch = pc.Resolver.Resolve(r)
			adv = pc.Measurer.Width(face, string(ch), size)
		}

		overflow := x+adv > p.X1+OverflowTolerance*size
		if span != nil || (run.Len() > 0 && face != runFace) || overflow {
			flush()
		}
		if overflow && x > p.X0 {
			x = p.X0
			lidx++
		}

		if span != nil {
			ops = append(ops, spanOps(pc, span, x, lidx, cur != nil)...)
		} else {
			if run.Len() == 0 {
				runX = x
				runFace = face
				if x == p.X0 && ch == ' ' {
					adv = 0
				} else {
					run.WriteString(encode(face, ch))
					pc.use(face, ch)
				}
			} else {
				run.WriteString(encode(face, ch))
				pc.use(face, ch)
			}
		}

		if span == nil {
			cur = face
		}
		x += adv
	}
	flush()
	return ops
}

// spanOps re-emits a formula span at cursor x. The vertical fix applies
// only when the span follows text on the same line.
func spanOps(pc *PageContext, span *paragraph.FormulaSpan, x float64, lidx int, afterText bool) []op {
	if len(span.Glyphs) == 0 {
		return nil
	}
	first := span.Glyphs[0]
	fix := 0.0
	if afterText {
		fix = span.VFix
	}

	var ops []op
	for _, g := range span.Glyphs {
		ops = append(ops, op{
			kind: opText,
			font: g.Font.ID,
			size: g.Size,
			x:    x + g.X0 - first.X0,
			dy:   fix + g.Y0 - first.Y0,
			lidx: lidx,
			hex:  glyphHex(g),
		})
	}
	for _, l := range span.Lines {
		ops = append(ops, op{
			kind:  opLine,
			x:     x + l.X0 - first.X0,
			dy:    fix + l.Y0 - first.Y0,
			lidx:  lidx,
			xlen:  l.X1 - l.X0,
			ylen:  l.Y1 - l.Y0,
			width: l.Width,
		})
	}
	return ops
}

// encode renders r as hex by the face's addressing: one byte for simple
// fonts, a two-byte glyph id for the embedded fallback.
func encode(f fonts.Face, r rune) string {
	return hex.EncodeToString(f.Encode(r))
}

// glyphHex renders the original code of a verbatim glyph.
func glyphHex(g layout.Glyph) string {
	if g.Font.Addressing == layout.Composite {
		return fmt.Sprintf("%04x", g.CID&0xffff)
	}
	return fmt.Sprintf("%02x", g.CID&0xff)
}

func writeText(buf *bytes.Buffer, font string, size, x, y float64, hexText string) {
	fmt.Fprintf(buf, "/%s %f Tf 1 0 0 1 %f %f Tm [<%s>] TJ ", font, size, x, y, hexText)
}

func writeLine(buf *bytes.Buffer, x, y, xlen, ylen, width float64) {
	fmt.Fprintf(buf, "ET q 1 0 0 1 %f %f cm [] 0 d 0 J %f w 0 0 m %f %f l S Q BT ", x, y, width, xlen, ylen)
}
