package generator

import "context"

// Fallback asks each generator in turn and returns the first non-empty
// answer.
type Fallback []Generator

func (f Fallback) Generate(ctx context.Context, prompt, seed string) string {
	for _, g := range f {
		if out := g.Generate(ctx, prompt, seed); out != "" {
			return out
		}
	}
	return ""
}
