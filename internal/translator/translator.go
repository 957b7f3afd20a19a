// Package translator sends paragraph texts to a translation backend with
// bounded concurrency and retries.
package translator

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a backend reply that cannot be mapped back to
// its inputs, such as a wrong result count or an empty translation.
var ErrMalformedResponse = errors.New("malformed translation response")

// Translator translates a batch of texts. Results are index-aligned with
// the input.
type Translator interface {
	Translate(ctx context.Context, texts []string, src, tgt string) ([]string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, texts []string, src, tgt string) ([]string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	return f(ctx, texts, src, tgt)
}

// ParagraphError reports a paragraph whose retries were exhausted.
type ParagraphError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *ParagraphError) Error() string {
	return fmt.Sprintf("paragraph %d failed after %d attempt(s): %v", e.Index, e.Attempts, e.Err)
}

func (e *ParagraphError) Unwrap() error { return e.Err }

// Identity returns its input unchanged. It is useful for layout checks
// without a backend.
var Identity = Func(func(_ context.Context, texts []string, _, _ string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	return out, nil
})
