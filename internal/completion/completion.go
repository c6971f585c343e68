// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotConfigured is returned when a backend is missing required settings.
var ErrNotConfigured = errors.New("completion backend not configured")

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is one role/content pair sent to the completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	Model    string
	Messages []Message
	// Stream asks the backend for incremental delivery.
	Stream bool
}

// =============================================================================
// STREAM TYPES
// =============================================================================

// Delta is one incremental piece of text for a single choice.
type Delta struct {
	Index   int
	Content string
}

// Fragment is one unit of a streamed response.
type Fragment struct {
	Deltas []Delta
}

// Text returns the first choice's delta text, or "" when the fragment
// carries no delta.
func (f Fragment) Text() string {
	if len(f.Deltas) == 0 {
		return ""
	}
	return f.Deltas[0].Content
}

// Stream yields fragments of one response in order.
// Recv returns io.EOF once the response is complete.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Usage is the generation accounting some backends report once a stream
// has ended.
type Usage struct {
	CompletionTokens int
	TokensPerSecond  float64
}

// UsageReporter is implemented by streams that know their usage after
// Recv has returned io.EOF.
type UsageReporter interface {
	Usage() (Usage, bool)
}

// StreamUsage returns the usage stream reports, if any.
func StreamUsage(stream Stream) (Usage, bool) {
	if r, ok := stream.(UsageReporter); ok {
		return r.Usage()
	}
	return Usage{}, false
}

// Client opens streaming completion requests.
type Client interface {
	// Name identifies the backend in logs and the status bar.
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// =============================================================================
// HELPERS
// =============================================================================

// Drain reads stream to completion, calling onText for every non-empty
// fragment, and returns the concatenated text. The stream is not closed.
func Drain(ctx context.Context, stream Stream, onText func(string)) (string, error) {
	var sb strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		text := frag.Text()
		if text == "" {
			continue
		}
		sb.WriteString(text)
		if onText != nil {
			onText(text)
		}
	}
}
