package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdf-layout-translator/internal/layout"
)

// Block grouping thresholds, in multiples of the font size.
const (
	blockLineGap    = 1.6
	blockSizeChange = 0.25
	blockIndent     = 4.0
	// descentRatio approximates how far glyphs reach below the baseline.
	descentRatio = 0.25
)

// garbleMarker shows up when an extractor fails to map glyphs.
const garbleMarker = "·"

// textRow is one extracted line of text.
type textRow struct {
	text   string
	x0, x1 float64
	y      float64
	size   float64
}

// ExtractBlocks reads the text rows of page index (zero-based) and groups
// them into blocks.
func ExtractBlocks(r *pdf.Reader, index int) (blocks []BlockInfo, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			blocks = nil
			err = NewPDFErrorWithPage(ErrDecodeFailed, "malformed page content", index, nil)
		}
	}()

	p := r.Page(index + 1)
	if p.V.IsNull() || p.V.Key("Contents").Kind() == pdf.Null {
		return nil, nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, NewPDFErrorWithPage(ErrDecodeFailed, "failed to extract text rows", index, err)
	}

	var out []textRow
	for _, row := range rows {
		tr, ok := convertRow(row)
		if ok {
			out = append(out, tr)
		}
	}
	blocks = groupRows(out)
	for i := range blocks {
		blocks[i].Page = index
	}
	return blocks, nil
}

func convertRow(row *pdf.Row) (textRow, bool) {
	var (
		sb    strings.Builder
		tr    = textRow{x0: math.Inf(1), x1: math.Inf(-1)}
		sizes float64
		n     int
	)
	for _, t := range row.Content {
		if t.S == "" {
			continue
		}
		sb.WriteString(t.S)
		tr.x0 = math.Min(tr.x0, t.X)
		tr.x1 = math.Max(tr.x1, t.X+t.W)
		tr.y = t.Y
		sizes += t.FontSize
		n++
	}
	tr.text = strings.TrimSpace(sb.String())
	if n == 0 || tr.text == "" {
		return textRow{}, false
	}
	tr.size = sizes / float64(n)
	if tr.size <= 0 {
		tr.size = 10
	}
	return tr, true
}

// groupRows merges consecutive rows into blocks. A block ends at a large
// vertical gap, a font size change, or a jump in the left edge.
func groupRows(rows []textRow) []BlockInfo {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var (
		blocks []BlockInfo
		cur    *BlockInfo
		lines  []string
		prev   textRow
	)
	closeBlock := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(lines, "\n")
		if isPostScriptCode(cur.Text) || hasExcessiveNonPrintable(cur.Text) {
			cur.Type = BlockOther
		}
		blocks = append(blocks, *cur)
		cur, lines = nil, nil
	}

	for _, r := range rows {
		if cur != nil {
			size := math.Max(prev.size, r.size)
			switch {
			case prev.y-r.y > blockLineGap*size,
				math.Abs(prev.size-r.size) > blockSizeChange*size,
				math.Abs(prev.x0-r.x0) > blockIndent*size:
				closeBlock()
			}
		}
		if cur == nil {
			cur = &BlockInfo{
				No:       len(blocks),
				Type:     BlockText,
				X0:       r.x0,
				X1:       r.x1,
				Y1:       r.y + r.size,
				FontSize: r.size,
			}
		}
		cur.X0 = math.Min(cur.X0, r.x0)
		cur.X1 = math.Max(cur.X1, r.x1)
		cur.Y0 = r.y - descentRatio*r.size
		cur.FontSize = math.Max(cur.FontSize, r.size)
		lines = append(lines, r.text)
		prev = r
	}
	closeBlock()
	return blocks
}

// NeedsBackfill reports whether a block's extracted text is missing or
// visibly garbled.
func NeedsBackfill(b *BlockInfo) bool {
	return strings.TrimSpace(b.Text) == "" || strings.Contains(b.Text, garbleMarker)
}

// BackfillText replaces the text of blocks flagged by NeedsBackfill with
// the defined glyphs of page that fall inside the block. Glyph rows are
// separated by newlines. It returns the number of blocks changed.
func BackfillText(blocks []BlockInfo, page *layout.Page) int {
	changed := 0
	for i := range blocks {
		b := &blocks[i]
		if b.Type != BlockText || !NeedsBackfill(b) {
			continue
		}
		var (
			sb    strings.Builder
			lastY = math.NaN()
		)
		for _, g := range page.Glyphs {
			if !g.Defined {
				continue
			}
			cx, cy := (g.X0+g.X1)/2, g.Y0+g.Size/2
			if cx < b.X0 || cx > b.X1 || cy < b.Y0 || cy > b.Y1 {
				continue
			}
			if !math.IsNaN(lastY) && math.Abs(g.Y0-lastY) > g.Size/2 {
				sb.WriteByte('\n')
			}
			sb.WriteString(g.Text)
			lastY = g.Y0
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			b.Text = text
			changed++
		}
	}
	return changed
}

// isPostScriptCode checks if text looks like PostScript/PDF operator code
// leaked into the text layer.
func isPostScriptCode(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)

	if (strings.Contains(text, " def ") || strings.HasSuffix(text, " def")) && strings.Contains(text, "/") {
		return true
	}
	if strings.Contains(lower, "null def") || strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}
	for _, pattern := range []string{
		"currentpoint", "gsave", "grestore", "newpath", "closepath",
		"setrgbcolor", "setgray", "setlinewidth", "showpage",
	} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// hasExcessiveNonPrintable checks if more than 10% of text is control
// characters.
func hasExcessiveNonPrintable(text string) bool {
	if text == "" {
		return false
	}
	bad, total := 0, 0
	for _, r := range text {
		total++
		if (r < 32 && r != '\n' && r != '\r' && r != '\t') || (r >= 0x7F && r <= 0x9F) {
			bad++
		}
	}
	return float64(bad)/float64(total) > 0.1
}
