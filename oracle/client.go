// Package oracle abstracts the external text-generation service used to
// propose field mappings. The deterministic validation and repair logic
// downstream never depends on a concrete provider, only on Client.
package oracle

import "context"

// GenerateOptions controls a single generation request. Temperature stays
// low for mapping proposals so repeated runs converge.
type GenerateOptions struct {
	Temperature     float64
	MaxOutputTokens int
}

// Client generates free text for a prompt. Implementations must honour
// the context deadline; a request must never hang past it.
type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
