// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/config"
	"github.com/jeranaias/cardchat-tui/internal/ollama"
)

// newClient builds the completion backend named by the provider section.
func newClient(cfg *config.Config, logger *zerolog.Logger) (completion.Client, error) {
	p := cfg.Provider
	switch p.Kind {
	case config.ProviderOllama:
		return ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      p.OllamaURL,
			Timeout:      time.Duration(p.TimeoutSecs) * time.Second,
			DefaultModel: p.Model,
			Logger:       logger,
		}), nil

	case config.ProviderOpenAI, "":
		c, err := completion.NewOpenAIClient(completion.OpenAIConfig{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.Kind)
}

// checkBackend checks an Ollama backend so a stopped server or a missing
// model is reported before the first turn. Other backends are not checked;
// their failures surface on the first request.
func checkBackend(ctx context.Context, client completion.Client, model string) error {
	oc, ok := client.(*ollama.Client)
	if !ok {
		return nil
	}
	cfg := oc.GetConfig()
	if model == "" {
		model = cfg.DefaultModel
	}

	err := oc.CheckModel(ctx, model)
	switch {
	case err == nil:
		return nil
	case ollama.IsNotRunning(err):
		return fmt.Errorf("%w at %s: start it with 'ollama serve'", ollama.ErrNotRunning, cfg.BaseURL)
	case ollama.IsModelNotFound(err):
		return fmt.Errorf("%w: install it with 'ollama pull %s'", err, model)
	case ollama.IsTimeout(err):
		return fmt.Errorf("%w: no answer from %s within %s", ollama.ErrTimeout, cfg.BaseURL, cfg.Timeout)
	}
	return fmt.Errorf("ollama check: %w", err)
}
