package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/vawk"
	"github.com/fwojciec/vawk/anthropic"
	"github.com/fwojciec/vawk/gemini"
	"github.com/fwojciec/vawk/stub"
	vyaml "github.com/fwojciec/vawk/yaml"
)

// resolveModel selects and constructs the chat model. The provider comes from
// the flag, then the VAWK_PROVIDER value, then config. All env var values are
// passed in through e; env is only read in main().
func resolveModel(ctx context.Context, providerFlag, modelFlag string, cfg vyaml.Config, e env) (vawk.Model, error) {
	provider := providerFlag
	if provider == "" {
		provider = e.provider
	}
	if provider == "" {
		provider = cfg.Model.Provider
	}
	name := modelFlag
	if name == "" {
		name = cfg.Model.Name
	}

	switch provider {
	case "", "stub":
		return stub.New(stub.WithTemplates(cfg.Templates())), nil
	case "anthropic":
		if e.anthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return anthropic.New(e.anthropicKey,
			anthropic.WithModel(name),
			anthropic.WithMaxTokens(cfg.Model.MaxTokens),
		), nil
	case "gemini":
		if e.geminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		client, err := gemini.New(ctx, e.geminiKey,
			gemini.WithModel(name),
			gemini.WithMaxTokens(cfg.Model.MaxTokens),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be \"stub\", \"anthropic\" or \"gemini\"", provider)
	}
}
