package paragraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"none", "plain text", []int{}},
		{"ordered", "a {v0} b {v1}", []int{0, 1}},
		{"padded", "a { v 1 } b {V0}", []int{1, 0}},
		{"multi digit", "{v12}", []int{12}},
		{"split digits", "{v 1 2}", []int{12}},
		{"not a token", "{x1} {v} {va}", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := FindPlaceholders(tt.text)
			got := make([]int, len(tokens))
			for i, tok := range tokens {
				got[i] = tok.Span
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindPlaceholders(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestMatchPlaceholder(t *testing.T) {
	span, n, ok := MatchPlaceholder("{ v3 } rest")
	if !ok || span != 3 || n != len("{ v3 }") {
		t.Errorf("MatchPlaceholder = (%d, %d, %v)", span, n, ok)
	}

	if _, _, ok := MatchPlaceholder("x {v3}"); ok {
		t.Error("token not at start must not match")
	}
}

func TestIsOnlyPlaceholder(t *testing.T) {
	tests := map[string]bool{
		"{v0}":      true,
		"  {v7}\n":  true,
		"{ v 2 }":   true,
		"{v0}{v1}":  false,
		"see {v0}":  false,
		"":          false,
		"plain":     false,
	}
	for in, want := range tests {
		if got := IsOnlyPlaceholder(in); got != want {
			t.Errorf("IsOnlyPlaceholder(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPlaceholderRoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		tok := FindPlaceholders(Placeholder(i))
		if len(tok) != 1 || tok[0].Span != i {
			t.Fatalf("Placeholder(%d) did not round trip: %+v", i, tok)
		}
	}
}
