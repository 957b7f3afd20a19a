package fonts

// Tofu is drawn when no font covers a character.
const Tofu = '�'

// Resolver picks the font for each character: the body font when it
// covers the character, otherwise the fallback.
type Resolver struct {
	Body     Face
	Fallback Face
}

// NewResolver creates a resolver. fallback may be nil.
func NewResolver(body, fallback Face) *Resolver {
	return &Resolver{Body: body, Fallback: fallback}
}

// Resolve returns the face to draw r with and the rune to actually draw.
// Uncovered characters become Tofu, or '?' in the body font when even the
// fallback lacks a replacement glyph.
func (res *Resolver) Resolve(r rune) (Face, rune) {
	if res.Body != nil && res.Body.Has(r) {
		return res.Body, r
	}
	if res.Fallback != nil {
		if res.Fallback.Has(r) {
			return res.Fallback, r
		}
		if res.Fallback.Has(Tofu) {
			return res.Fallback, Tofu
		}
	}
	return res.Body, '?'
}
