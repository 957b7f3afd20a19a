// Package synth turns translated paragraphs back into page content: text
// runs in the body or fallback font, formula spans re-emitted verbatim,
// and furniture lines at their original positions.
package synth

import (
	"sort"

	"pdf-layout-translator/internal/fonts"
)

// Resource names under which the page writer registers the added fonts.
const (
	BodyResource     = "PLTBody"
	FallbackResource = "PLTFallback"
)

// PageContext carries the per-page font state. Build one per page and
// hand it to the writer once synthesis is done.
type PageContext struct {
	Resolver   *fonts.Resolver
	Measurer   *fonts.Measurer
	LineHeight float64

	names map[fonts.Face]string
	used  map[fonts.Face]map[rune]struct{}
}

// NewPageContext creates a context. measurer may be shared across pages.
func NewPageContext(resolver *fonts.Resolver, measurer *fonts.Measurer, lineHeight float64) *PageContext {
	if measurer == nil {
		measurer = fonts.NewMeasurer(nil)
	}
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	pc := &PageContext{
		Resolver:   resolver,
		Measurer:   measurer,
		LineHeight: lineHeight,
		names:      make(map[fonts.Face]string),
		used:       make(map[fonts.Face]map[rune]struct{}),
	}
	if resolver.Body != nil {
		pc.names[resolver.Body] = BodyResource
	}
	if resolver.Fallback != nil {
		pc.names[resolver.Fallback] = FallbackResource
	}
	return pc
}

// ResourceName returns the font resource key for an added face.
func (pc *PageContext) ResourceName(f fonts.Face) string {
	return pc.names[f]
}

func (pc *PageContext) use(f fonts.Face, r rune) {
	set, ok := pc.used[f]
	if !ok {
		set = make(map[rune]struct{})
		pc.used[f] = set
	}
	set[r] = struct{}{}
}

// Used returns the runes drawn with f, sorted.
func (pc *PageContext) Used(f fonts.Face) []rune {
	out := make([]rune, 0, len(pc.used[f]))
	for r := range pc.used[f] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UsedFaces returns the added faces that were drawn with, body first.
func (pc *PageContext) UsedFaces() []fonts.Face {
	var out []fonts.Face
	for _, f := range []fonts.Face{pc.Resolver.Body, pc.Resolver.Fallback} {
		if f != nil && len(pc.used[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}
