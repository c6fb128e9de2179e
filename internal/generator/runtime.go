package generator

import (
	"context"
	"fmt"

	"github.com/cexll/agentsdk-go/pkg/api"
	"github.com/cexll/agentsdk-go/pkg/model"

	"github.com/bahromoov/aytchi/internal/config"
)

// RuntimeGenerator runs prompts through the agentsdk-go runtime, for the
// anthropic and openai providers. Each call is a single completion; the
// conversational context travels inside the prompt, so no session state is
// kept in the runtime.
type RuntimeGenerator struct {
	rt *api.Runtime
}

func NewRuntimeGenerator(cfg *config.Config) (*RuntimeGenerator, error) {
	var provider api.ModelFactory
	switch cfg.Generator.Provider {
	case "openai":
		provider = &model.OpenAIProvider{
			APIKey:    cfg.Generator.APIKey,
			BaseURL:   cfg.Generator.BaseURL,
			ModelName: cfg.Generator.Model,
			MaxTokens: cfg.Generator.MaxTokens,
		}
	default: // "anthropic"
		provider = &model.AnthropicProvider{
			APIKey:    cfg.Generator.APIKey,
			BaseURL:   cfg.Generator.BaseURL,
			ModelName: cfg.Generator.Model,
			MaxTokens: cfg.Generator.MaxTokens,
		}
	}

	rt, err := api.New(context.Background(), api.Options{
		ProjectRoot:  config.DataDir(),
		ModelFactory: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	return &RuntimeGenerator{rt: rt}, nil
}

func (r *RuntimeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.rt.Run(ctx, api.Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Result == nil {
		return "", nil
	}
	return resp.Result.Output, nil
}

func (r *RuntimeGenerator) Close() {
	r.rt.Close()
}
