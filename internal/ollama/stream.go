// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/util"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	reader *bufio.Reader
	model  string
	done   bool
	last   *ChatResponse
	// err is sticky: once the stream has failed every call returns it.
	err error
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Next returns the next decoded response object, skipping blank lines. It
// returns io.EOF only after the object with done=true. A read error, a line
// that is not a response object, or a body that ends before done=true is a
// failure, never a clean end.
func (s *StreamReader) Next() (*ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	for {
		if s.done {
			return nil, io.EOF
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, s.fail(readError(err))
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				return nil, s.fail(&ClientError{
					Type:    ErrTypeConnection,
					Message: "stream ended before completion",
					Cause:   io.ErrUnexpectedEOF,
				})
			}
			continue
		}

		var resp ChatResponse
		if jerr := json.Unmarshal(line, &resp); jerr != nil {
			return nil, s.fail(&ClientError{
				Type:    ErrTypeInvalidResponse,
				Message: "malformed stream line " + strconv.Quote(util.TruncateWidth(string(line), 40)),
				Cause:   jerr,
			})
		}

		if resp.Error != "" {
			return nil, s.fail(&ClientError{Type: ErrTypeInvalidResponse, Message: resp.Error})
		}
		if resp.Model != "" {
			s.model = resp.Model
		}
		if resp.Done {
			s.done = true
			s.last = &resp
		}
		// A final line without a newline and without done=true is still
		// delivered; the next call reports the truncation.
		return &resp, nil
	}
}

func (s *StreamReader) fail(err error) error {
	s.err = err
	return err
}

// readError keeps cancellation recognizable and reports anything else as a
// broken connection.
func readError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}

// Final returns the last response object, which carries timing totals.
// It is nil until the stream has finished.
func (s *StreamReader) Final() *ChatResponse {
	return s.last
}

// =============================================================================
// COMPLETION ADAPTER
// =============================================================================

// chatStream adapts a streaming /api/chat body to completion.Stream.
type chatStream struct {
	body   io.ReadCloser
	reader *StreamReader
}

func newChatStream(body io.ReadCloser) *chatStream {
	return &chatStream{body: body, reader: NewStreamReader(body)}
}

// Recv implements completion.Stream. Every response object becomes one
// fragment; the terminating object is delivered before io.EOF so trailing
// content is never lost.
func (s *chatStream) Recv() (completion.Fragment, error) {
	resp, err := s.reader.Next()
	if err != nil {
		return completion.Fragment{}, err
	}
	if resp.Message.Content == "" {
		return completion.Fragment{}, nil
	}
	return completion.Fragment{
		Deltas: []completion.Delta{{Content: resp.Message.Content}},
	}, nil
}

// Usage implements completion.UsageReporter from the final response
// object's eval counters.
func (s *chatStream) Usage() (completion.Usage, bool) {
	final := s.reader.Final()
	if final == nil || final.EvalCount == 0 {
		return completion.Usage{}, false
	}
	return completion.Usage{
		CompletionTokens: final.EvalCount,
		TokensPerSecond:  final.TokensPerSecond(),
	}, true
}

func (s *chatStream) Close() error {
	return s.body.Close()
}
