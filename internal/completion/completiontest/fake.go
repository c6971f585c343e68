// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completiontest provides a scripted completion.Client for tests.
package completiontest

import (
	"context"
	"io"
	"sync"

	"github.com/jeranaias/cardchat-tui/internal/completion"
)

// Client replays a fixed list of fragments for every request.
type Client struct {
	// Fragments are yielded in order by each opened stream.
	Fragments []string
	// OpenErr, when set, is returned by Stream instead of a stream.
	OpenErr error
	// RecvErr, when set, is returned after the fragments instead of io.EOF.
	RecvErr error
	// Usage, when set, is reported by streams that have ended cleanly.
	Usage *completion.Usage

	mu       sync.Mutex
	requests []completion.Request
}

// New returns a client that streams the given fragments.
func New(fragments ...string) *Client {
	return &Client{Fragments: fragments}
}

// Name implements completion.Client.
func (c *Client) Name() string { return "fake" }

// Stream implements completion.Client.
func (c *Client) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	frags := make([]string, len(c.Fragments))
	copy(frags, c.Fragments)
	return &Stream{ctx: ctx, fragments: frags, err: c.RecvErr, usage: c.Usage}, nil
}

// Requests returns a copy of every request received so far.
func (c *Client) Requests() []completion.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]completion.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Stream is the scripted stream returned by Client.
type Stream struct {
	ctx       context.Context
	fragments []string
	err       error
	usage     *completion.Usage
	pos       int
	eof       bool
}

// Recv implements completion.Stream.
func (s *Stream) Recv() (completion.Fragment, error) {
	if err := s.ctx.Err(); err != nil {
		return completion.Fragment{}, err
	}
	if s.pos < len(s.fragments) {
		text := s.fragments[s.pos]
		s.pos++
		return completion.Fragment{Deltas: []completion.Delta{{Content: text}}}, nil
	}
	if s.err != nil {
		return completion.Fragment{}, s.err
	}
	s.eof = true
	return completion.Fragment{}, io.EOF
}

// Usage implements completion.UsageReporter.
func (s *Stream) Usage() (completion.Usage, bool) {
	if !s.eof || s.usage == nil {
		return completion.Usage{}, false
	}
	return *s.usage, true
}

// Close implements completion.Stream.
func (s *Stream) Close() error { return nil }
