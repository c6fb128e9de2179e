// Package generator abstracts the text backend that turns an assembled
// prompt into a reply. Which model does the work is this package's business;
// the engine only sees prompt in, text out.
package generator

import (
	"context"
	"fmt"

	"github.com/bahromoov/aytchi/internal/config"
)

// Generator produces a completion for one prompt. An empty result with a
// nil error means the backend had nothing to say; the engine treats both
// empty output and errors as a silent abort for that message.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close()
}

// New selects a backend from config. Gemini is the default; "anthropic" and
// "openai" run through the agent runtime.
func New(cfg *config.Config) (Generator, error) {
	switch cfg.Generator.Provider {
	case "", "gemini":
		return NewGemini(cfg.Generator), nil
	case "anthropic", "openai":
		return NewRuntimeGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}
}
