// Package paragraph groups a page's glyph stream into translatable
// paragraphs and verbatim formula spans.
package paragraph

import (
	"math"
	"strings"
	"unicode/utf8"

	"pdf-layout-translator/internal/layout"
)

// Paragraph is translatable text with {vN} tokens standing in for spans.
type Paragraph struct {
	Text string
	// X, Y anchor the first line's baseline origin.
	X, Y   float64
	X0, Y0 float64
	X1, Y1 float64
	// Size is the dominant font size.
	Size   float64
	Brk    bool
	Region int
	Spans  []int
}

// FormulaSpan is a run of glyphs re-emitted verbatim.
type FormulaSpan struct {
	Index  int
	Region int
	Glyphs []layout.Glyph
	Lines  []layout.Line
	// VFix is the baseline correction relative to the paragraph text.
	VFix  float64
	Width float64
}

// Bounds returns the span's bounding box.
func (s *FormulaSpan) Bounds() (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, g := range s.Glyphs {
		x0, y0 = math.Min(x0, g.X0), math.Min(y0, g.Y0)
		x1, y1 = math.Max(x1, g.X1), math.Max(y1, g.Y1)
	}
	return
}

// Result is the grouping of one page.
type Result struct {
	Paragraphs []*Paragraph
	Spans      []*FormulaSpan
	// Furniture holds lines not absorbed by any span.
	Furniture []layout.Line
}

// Texts returns the paragraph texts in stream order.
func (r *Result) Texts() []string {
	out := make([]string, len(r.Paragraphs))
	for i, p := range r.Paragraphs {
		out[i] = p.Text
	}
	return out
}

// State is the grouper's position relative to an open formula run.
type State int

const (
	Scanning State = iota
	InFormula
	InParenBracket
)

func (s State) String() string {
	switch s {
	case InFormula:
		return "InFormula"
	case InParenBracket:
		return "InParenBracket"
	default:
		return "Scanning"
	}
}

type event int

const (
	evText event = iota
	evFormula
	evOpenParen
	evCloseParen
)

// transitions lists every legal move. Events missing for a state do not
// occur there: bracket events require an open run.
var transitions = map[State]map[event]State{
	Scanning: {
		evText:    Scanning,
		evFormula: InFormula,
	},
	InFormula: {
		evText:      Scanning,
		evFormula:   InFormula,
		evOpenParen: InParenBracket,
	},
	InParenBracket: {
		evText:       Scanning,
		evFormula:    InParenBracket,
		evOpenParen:  InParenBracket,
		evCloseParen: InParenBracket, // drops to InFormula at depth 0
	},
}

// Options tune the grouping heuristics.
type Options struct {
	Classifier *Classifier
	// SizeRatio flags glyphs smaller than this fraction of the paragraph
	// size as sub/superscripts.
	SizeRatio float64
	// GapFraction of the page width ends a formula run.
	GapFraction float64
	// VerticalMargin, in multiples of the dominant size, starts a new
	// paragraph when no mask is available.
	VerticalMargin float64
	// LineTolerance expands span bounds when attaching lines.
	LineTolerance float64
	// MaxSpanLineWidth keeps strokes at least this thick out of spans;
	// they are rules, not formula parts, and stay page furniture. Zero
	// attaches any width.
	MaxSpanLineWidth float64
}

// DefaultOptions returns the standard heuristics.
func DefaultOptions() Options {
	c, _ := NewClassifier("", "")
	return Options{
		Classifier:       c,
		SizeRatio:        0.79,
		GapFraction:      0.25,
		VerticalMargin:   0.8,
		LineTolerance:    1,
		MaxSpanLineWidth: 5,
	}
}

// Grouper walks one page. It is not safe for concurrent use; create one
// per page.
type Grouper struct {
	opts  Options
	mask  *layout.Mask
	width float64

	state State
	depth int

	res   *Result
	cur   *Paragraph
	text  strings.Builder
	run   []layout.Glyph
	vfix  float64
	prev  *layout.Glyph
	prevR int
	// detach forces the next glyph into a new paragraph after a
	// formula-only paragraph closes.
	detach bool
}

// NewGrouper creates a grouper for a page of the given width. mask may be nil.
func NewGrouper(opts Options, mask *layout.Mask, pageWidth float64) *Grouper {
	if opts.Classifier == nil {
		opts.Classifier, _ = NewClassifier("", "")
	}
	return &Grouper{opts: opts, mask: mask, width: pageWidth, res: &Result{}}
}

// Group runs the whole page.
func Group(opts Options, page *layout.Page, mask *layout.Mask) *Result {
	g := NewGrouper(opts, mask, page.Width)
	for _, gl := range page.Glyphs {
		g.Feed(gl)
	}
	return g.Finish(page.Lines)
}

// State returns the current state.
func (g *Grouper) State() State { return g.state }

// Feed consumes the next glyph in stream order.
func (g *Grouper) Feed(gl layout.Glyph) {
	region := g.mask.Region(gl.X0, gl.Y0)
	char := gl.Char()
	formula := g.isFormula(gl, char, region)

	ev := evText
	switch {
	case formula:
		ev = evFormula
	case g.state != Scanning && char == "(":
		ev = evOpenParen
	case g.state == InParenBracket && char == ")":
		ev = evCloseParen
	}

	// a run ends on text, on a region change, or across a wide gap
	if g.state != Scanning {
		gap := g.text.Len() > 0 && math.Abs(gl.X0-g.prev.X0) > g.width*g.opts.GapFraction
		if ev == evText || region != g.prevR || gap {
			if ev == evText && region == g.prevR && gl.X0 > g.runMaxX0() {
				g.vfix = g.run[0].Y0 - gl.Y0
			}
			g.flush()
			if ev != evText {
				ev = evFormula
			}
		}
	}

	next, ok := transitions[g.state][ev]
	if !ok {
		next = Scanning
	}

	if g.state == Scanning {
		g.boundary(gl, region)
	}

	switch ev {
	case evText:
		g.appendText(gl, char)
	case evFormula, evOpenParen, evCloseParen:
		if len(g.run) == 0 && g.prev != nil && region == g.prevR && gl.X0 > g.prev.X0 {
			g.vfix = gl.Y0 - g.prev.Y0
		}
		g.run = append(g.run, gl)
	}

	switch ev {
	case evOpenParen:
		g.depth++
	case evCloseParen:
		g.depth--
		if g.depth == 0 {
			next = InFormula
		}
	}
	g.state = next

	g.extend(gl)
	p := gl
	g.prev = &p
	g.prevR = region
}

func (g *Grouper) isFormula(gl layout.Glyph, char string, region int) bool {
	if region == layout.RegionIgnore {
		return true
	}
	if g.opts.Classifier.Match(gl.Font.Name, char) {
		return true
	}
	if g.cur != nil && g.prev != nil && region == g.prevR &&
		utf8.RuneCountInString(strings.TrimSpace(g.text.String())) > 1 &&
		gl.Size < g.cur.Size*g.opts.SizeRatio {
		return true
	}
	return gl.Matrix.Degenerate()
}

// boundary starts a new paragraph or inserts a word space.
func (g *Grouper) boundary(gl layout.Glyph, region int) {
	if g.cur == nil || g.detach || region != g.prevR || g.verticalBreak(gl, region) {
		g.startParagraph(gl, region)
		return
	}

	switch {
	case gl.X0 > g.prev.X1+1:
		g.space()
	case gl.X0 < g.prev.X0:
		g.space()
		g.cur.Brk = true
	}
}

func (g *Grouper) verticalBreak(gl layout.Glyph, region int) bool {
	if region != layout.RegionNone || g.opts.VerticalMargin <= 0 {
		return false
	}
	margin := g.opts.VerticalMargin * g.cur.Size
	return gl.Y1 < g.prev.Y0-margin || gl.Y0 > g.prev.Y1+margin
}

func (g *Grouper) space() {
	s := g.text.String()
	if s != "" && !strings.HasSuffix(s, " ") {
		g.text.WriteByte(' ')
	}
}

func (g *Grouper) startParagraph(gl layout.Glyph, region int) {
	g.closeParagraph()
	g.cur = &Paragraph{
		X: gl.X0, Y: gl.Y0,
		X0: gl.X0, Y0: gl.Y0, X1: gl.X1, Y1: gl.Y1,
		Size:   gl.Size,
		Region: region,
	}
	g.res.Paragraphs = append(g.res.Paragraphs, g.cur)
	g.detach = false
}

func (g *Grouper) closeParagraph() {
	if g.cur != nil {
		g.cur.Text = g.text.String()
	}
	g.text.Reset()
}

func (g *Grouper) appendText(gl layout.Glyph, char string) {
	if char != " " && (gl.Size > g.cur.Size || utf8.RuneCountInString(strings.TrimSpace(g.text.String())) == 1) {
		g.cur.Y -= gl.Size - g.cur.Size
		g.cur.Size = gl.Size
	}
	g.text.WriteString(char)
}

func (g *Grouper) extend(gl layout.Glyph) {
	p := g.cur
	p.X0 = math.Min(p.X0, gl.X0)
	p.Y0 = math.Min(p.Y0, gl.Y0)
	p.X1 = math.Max(p.X1, gl.X1)
	p.Y1 = math.Max(p.Y1, gl.Y1)
}

func (g *Grouper) runMaxX0() float64 {
	m := math.Inf(-1)
	for _, r := range g.run {
		m = math.Max(m, r.X0)
	}
	return m
}

// flush closes the open run into a span and appends its token.
func (g *Grouper) flush() {
	if len(g.run) == 0 {
		g.state = Scanning
		g.depth = 0
		return
	}
	if strings.TrimSpace(g.text.String()) == "" {
		g.detach = true
	}

	span := &FormulaSpan{
		Index:  len(g.res.Spans),
		Region: g.prevR,
		Glyphs: g.run,
		VFix:   g.vfix,
	}
	maxX := math.Inf(-1)
	for _, r := range g.run {
		maxX = math.Max(maxX, r.X1)
	}
	span.Width = maxX - g.run[0].X0

	g.res.Spans = append(g.res.Spans, span)
	g.cur.Spans = append(g.cur.Spans, span.Index)
	g.text.WriteString(Placeholder(span.Index))

	g.run = nil
	g.vfix = 0
	g.depth = 0
	g.state = Scanning
}

// Finish flushes any open run and distributes lines between spans and
// page furniture.
func (g *Grouper) Finish(lines []layout.Line) *Result {
	g.flush()
	g.closeParagraph()

	for _, l := range lines {
		if s := g.spanFor(l); s != nil {
			s.Lines = append(s.Lines, l)
			continue
		}
		g.res.Furniture = append(g.res.Furniture, l)
	}
	return g.res
}

// spanFor finds a span whose bounds contain both endpoints of l.
func (g *Grouper) spanFor(l layout.Line) *FormulaSpan {
	if max := g.opts.MaxSpanLineWidth; max > 0 && l.Width >= max {
		return nil
	}
	tol := g.opts.LineTolerance
	for _, s := range g.res.Spans {
		x0, y0, x1, y1 := s.Bounds()
		in := func(x, y float64) bool {
			return x >= x0-tol && x <= x1+tol && y >= y0-tol && y <= y1+tol
		}
		if in(l.X0, l.Y0) && in(l.X1, l.Y1) {
			return s
		}
	}
	return nil
}
