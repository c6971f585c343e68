// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when neither the request nor the config names one.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAIConfig configures an OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint (OpenRouter, a local server, ...).
	BaseURL string
	Model   string
	Logger  *zerolog.Logger
}

// OpenAIClient streams chat completions through go-openai.
// It is safe for concurrent use.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIClient creates a client. An API key is required unless a custom
// base URL is set, since local OpenAI-compatible servers often need none.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: %w: api key is empty", ErrNotConfigured)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		logger: logger.With().Str("component", "completion").Str("backend", "openai").Logger(),
	}, nil
}

// Name implements Client.
func (c *OpenAIClient) Name() string { return "openai" }

// Model returns the default model.
func (c *OpenAIClient) Model() string { return c.model }

// ListModels returns the model IDs the endpoint offers, sorted.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stream implements Client.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	model := req.Model
	if model == "" {
		model = c.Model()
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	c.logger.Debug().Str("model", model).Int("messages", len(msgs)).Msg("opening stream")

	s, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
		Stream:   req.Stream,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create stream: %w", err)
	}
	return &openAIStream{stream: s}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (Fragment, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return Fragment{}, io.EOF
	}
	if err != nil {
		return Fragment{}, fmt.Errorf("openai: recv: %w", err)
	}

	frag := Fragment{Deltas: make([]Delta, 0, len(resp.Choices))}
	for _, ch := range resp.Choices {
		frag.Deltas = append(frag.Deltas, Delta{Index: ch.Index, Content: ch.Delta.Content})
	}
	return frag, nil
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}
