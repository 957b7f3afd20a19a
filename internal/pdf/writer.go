package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/synth"
)

// PageSink receives synthesized pages and writes the final document.
type PageSink interface {
	WritePage(index int, pc *synth.PageContext, graphics, text []byte) error
	Save(path string) error
}

// PageWriter substitutes page content streams in a document loaded with
// pdfcpu. Pages never passed to WritePage keep their original content.
type PageWriter struct {
	ctx *model.Context

	core     map[string]*types.IndirectRef
	programs map[*fonts.TrueTypeFace]*types.IndirectRef
}

// OpenPageWriter loads the document at path.
func OpenPageWriter(path string) (*PageWriter, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "failed to load PDF for writing", err)
	}
	return &PageWriter{
		ctx:      ctx,
		core:     make(map[string]*types.IndirectRef),
		programs: make(map[*fonts.TrueTypeFace]*types.IndirectRef),
	}, nil
}

// WritePage replaces the content of page index (zero-based) with the
// original graphics followed by text, and registers the fonts text uses.
func (w *PageWriter) WritePage(index int, pc *synth.PageContext, graphics, text []byte) error {
	pageDict, _, _, err := w.ctx.PageDict(index+1, false)
	if err != nil || pageDict == nil {
		return NewPDFErrorWithPage(ErrWriteFailed, "page dictionary not found", index, err)
	}

	added := types.Dict{}
	for _, f := range pc.UsedFaces() {
		ref, err := w.fontRef(f, pc.Used(f))
		if err != nil {
			return NewPDFErrorWithPage(ErrWriteFailed, "failed to add font", index, err)
		}
		added[pc.ResourceName(f)] = *ref
	}

	res, err := w.pageResources(pageDict, added)
	if err != nil {
		return NewPDFErrorWithPage(ErrWriteFailed, "failed to update page resources", index, err)
	}

	var content bytes.Buffer
	content.WriteString("q\n")
	content.Write(graphics)
	content.WriteString("\nQ\n")
	content.Write(text)

	ref, err := w.newStream(content.Bytes())
	if err != nil {
		return NewPDFErrorWithPage(ErrWriteFailed, "failed to create content stream", index, err)
	}
	pageDict["Contents"] = *ref
	pageDict["Resources"] = res

	logger.Debug("page content replaced",
		logger.Page(index),
		logger.Int("bytes", content.Len()),
		logger.Int("fonts", len(added)))
	return nil
}

// Save writes the document.
func (w *PageWriter) Save(path string) error {
	if err := api.WriteContextFile(w.ctx, path); err != nil {
		return NewPDFError(ErrWriteFailed, "failed to write output PDF", err)
	}
	return nil
}

// pageResources returns a fresh resource dictionary for the page: a
// shallow copy of the effective (possibly inherited) one with fonts added.
// Shared dictionaries are never mutated.
func (w *PageWriter) pageResources(pageDict types.Dict, added types.Dict) (types.Dict, error) {
	var src types.Dict
	d := pageDict
	for depth := 0; d != nil && depth < 32; depth++ {
		if obj, ok := d["Resources"]; ok {
			r, err := w.ctx.DereferenceDict(obj)
			if err != nil {
				return nil, err
			}
			src = r
			break
		}
		parent, ok := d["Parent"]
		if !ok {
			break
		}
		p, err := w.ctx.DereferenceDict(parent)
		if err != nil {
			return nil, err
		}
		d = p
	}

	res := types.Dict{}
	for k, v := range src {
		res[k] = v
	}
	fontDict := types.Dict{}
	if obj, ok := src["Font"]; ok {
		existing, err := w.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		for k, v := range existing {
			fontDict[k] = v
		}
	}
	for k, v := range added {
		fontDict[k] = v
	}
	res["Font"] = fontDict
	return res, nil
}

func (w *PageWriter) newStream(data []byte) (*types.IndirectRef, error) {
	sd, err := w.ctx.NewStreamDictForBuf(data)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return w.ctx.IndRefForNewObject(*sd)
}

func (w *PageWriter) fontRef(f fonts.Face, used []rune) (*types.IndirectRef, error) {
	switch face := f.(type) {
	case *fonts.CoreFace:
		if ref, ok := w.core[face.Name()]; ok {
			return ref, nil
		}
		ref, err := w.ctx.IndRefForNewObject(types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name(face.Name()),
			"Encoding": types.Name("WinAnsiEncoding"),
		})
		if err != nil {
			return nil, err
		}
		w.core[face.Name()] = ref
		return ref, nil
	case *fonts.TrueTypeFace:
		return w.compositeFont(face, used)
	}
	return nil, fmt.Errorf("unsupported face %T", f)
}

// compositeFont adds a Type0 font over face with widths and a ToUnicode
// map for the runes this page draws. The font program is shared.
func (w *PageWriter) compositeFont(face *fonts.TrueTypeFace, used []rune) (*types.IndirectRef, error) {
	descriptor, ok := w.programs[face]
	if !ok {
		sd, err := w.ctx.NewStreamDictForBuf(face.Data())
		if err != nil {
			return nil, err
		}
		sd.Dict["Length1"] = types.Integer(len(face.Data()))
		if err := sd.Encode(); err != nil {
			return nil, err
		}
		program, err := w.ctx.IndRefForNewObject(*sd)
		if err != nil {
			return nil, err
		}
		descriptor, err = w.ctx.IndRefForNewObject(types.Dict{
			"Type":        types.Name("FontDescriptor"),
			"FontName":    types.Name(face.Name()),
			"Flags":       types.Integer(32),
			"FontBBox":    types.Array{types.Integer(0), types.Float(face.Descent()), types.Integer(1000), types.Float(face.Ascent())},
			"ItalicAngle": types.Integer(0),
			"Ascent":      types.Float(face.Ascent()),
			"Descent":     types.Float(face.Descent()),
			"CapHeight":   types.Float(face.Ascent()),
			"StemV":       types.Integer(80),
			"FontFile2":   *program,
		})
		if err != nil {
			return nil, err
		}
		w.programs[face] = descriptor
	}

	toUnicode, err := w.newStream(toUnicodeCMap(face, used))
	if err != nil {
		return nil, err
	}
	cid, err := w.ctx.IndRefForNewObject(types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("CIDFontType2"),
		"BaseFont": types.Name(face.Name()),
		"CIDSystemInfo": types.Dict{
			"Registry":   types.StringLiteral("Adobe"),
			"Ordering":   types.StringLiteral("Identity"),
			"Supplement": types.Integer(0),
		},
		"FontDescriptor": *descriptor,
		"DW":             types.Integer(1000),
		"W":              cidWidths(face, used),
		"CIDToGIDMap":    types.Name("Identity"),
	})
	if err != nil {
		return nil, err
	}
	return w.ctx.IndRefForNewObject(types.Dict{
		"Type":            types.Name("Font"),
		"Subtype":         types.Name("Type0"),
		"BaseFont":        types.Name(face.Name()),
		"Encoding":        types.Name("Identity-H"),
		"DescendantFonts": types.Array{*cid},
		"ToUnicode":       *toUnicode,
	})
}

type glyphUse struct {
	gid uint16
	r   rune
}

func glyphUses(face *fonts.TrueTypeFace, used []rune) []glyphUse {
	seen := make(map[uint16]bool, len(used))
	out := make([]glyphUse, 0, len(used))
	for _, r := range used {
		gid := face.GlyphID(r)
		if gid == 0 || seen[gid] {
			continue
		}
		seen[gid] = true
		out = append(out, glyphUse{gid: gid, r: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].gid < out[j].gid })
	return out
}

// cidWidths builds a W array with one "gid [w]" entry per glyph.
func cidWidths(face *fonts.TrueTypeFace, used []rune) types.Array {
	var w types.Array
	for _, u := range glyphUses(face, used) {
		w = append(w, types.Integer(u.gid), types.Array{types.Float(face.GlyphAdvance(u.gid))})
	}
	return w
}

// bfcharLimit is the maximum number of entries in one bfchar section.
const bfcharLimit = 100

// toUnicodeCMap maps the glyph ids of used back to their text.
func toUnicodeCMap(face *fonts.TrueTypeFace, used []rune) []byte {
	uses := glyphUses(face, used)

	var b bytes.Buffer
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for start := 0; start < len(uses); start += bfcharLimit {
		end := min(start+bfcharLimit, len(uses))
		fmt.Fprintf(&b, "%d beginbfchar\n", end-start)
		for _, u := range uses[start:end] {
			fmt.Fprintf(&b, "<%04X> <", u.gid)
			for _, unit := range utf16.Encode([]rune{u.r}) {
				fmt.Fprintf(&b, "%04X", unit)
			}
			b.WriteString(">\n")
		}
		b.WriteString("endbfchar\n")
	}
	b.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return b.Bytes()
}
