// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/model"
)

// Submit rejections. Both mean "nothing happened".
var (
	ErrEmptyInput = errors.New("input is empty")
	ErrBusy       = errors.New("a reply is still streaming")
)

// Turn is one accepted submission and the request it produced.
type Turn struct {
	ID      string
	Request completion.Request
}

// Options configures a Session.
type Options struct {
	// Model is passed through on every request; empty lets the backend choose.
	Model  string
	Logger *zerolog.Logger
}

// Session is the conversation state machine.
type Session struct {
	conv  *model.Conversation
	acc   model.Accumulator
	busy  bool
	turn  string
	stats *model.Statistics

	model  string
	logger zerolog.Logger
}

// New creates an empty session.
func New(opts Options) *Session {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Session{
		conv:   model.NewConversation(),
		model:  opts.Model,
		logger: logger.With().Str("component", "conversation").Logger(),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns the finalized messages in display order.
func (s *Session) Messages() []*model.Message { return s.conv.Messages }

// Conversation returns the underlying conversation.
func (s *Session) Conversation() *model.Conversation { return s.conv }

// Busy reports whether a reply is in flight.
func (s *Session) Busy() bool { return s.busy }

// TurnID returns the active turn's ID, or "" when idle.
func (s *Session) TurnID() string { return s.turn }

// Streaming returns the partial reply received so far.
func (s *Session) Streaming() string { return s.acc.String() }

// Stats returns timing for the active turn, or nil when idle.
func (s *Session) Stats() *model.Statistics { return s.stats }

// Model returns the model name sent with requests.
func (s *Session) Model() string { return s.model }

// SetModel changes the model for subsequent turns. The turn in flight keeps
// the model it was sent with.
func (s *Session) SetModel(m string) { s.model = m }

// =============================================================================
// EVENTS
// =============================================================================

// Submit starts a turn. Whitespace-only text and submissions while busy are
// rejected with ErrEmptyInput and ErrBusy and leave the state untouched.
// Otherwise exactly one user message is appended before the request is
// returned. The request carries only that message; earlier turns are not
// sent.
func (s *Session) Submit(text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if s.busy {
		s.logger.Debug().Str("turn", s.turn).Msg("submit ignored while busy")
		return nil, ErrBusy
	}

	msg := model.NewUserMessage(text)
	s.conv.Append(msg)

	s.busy = true
	s.turn = "turn_" + uuid.NewString()
	s.acc.Reset()
	s.stats = model.NewStatistics()

	s.logger.Debug().Str("turn", s.turn).Str("message_id", msg.ID).Int("chars", len(text)).Msg("turn started")

	return &Turn{
		ID: s.turn,
		Request: completion.Request{
			Model:    s.model,
			Messages: []completion.Message{{Role: string(model.RoleUser), Content: text}},
			Stream:   true,
		},
	}, nil
}

// Fragment appends streamed text to the accumulator. It returns false when
// the event belongs to a stale turn and was ignored.
func (s *Session) Fragment(turnID, text string) bool {
	if !s.active(turnID) {
		return false
	}
	s.stats.RecordFragment()
	s.acc.Append(text)
	return true
}

// RecordUsage attaches backend token accounting to the active turn. It
// returns false for a stale turn.
func (s *Session) RecordUsage(turnID string, u completion.Usage) bool {
	if !s.active(turnID) {
		return false
	}
	s.stats.RecordUsage(u.CompletionTokens, u.TokensPerSecond)
	return true
}

// Complete finalizes the active turn: the accumulated text becomes an
// assistant message, the accumulator is reset and busy is cleared. It
// returns nil for a stale turn.
func (s *Session) Complete(turnID string) *model.Message {
	if !s.active(turnID) {
		return nil
	}
	s.stats.Finalize()

	msg := model.NewAssistantMessage(s.acc.Take())
	msg.Stats = s.stats
	s.conv.Append(msg)

	s.logger.Debug().
		Str("turn", turnID).
		Str("message_id", msg.ID).
		Int("fragments", s.stats.Fragments).
		Dur("duration", s.stats.TotalDuration).
		Msg("turn complete")
	if msg.IsEmpty() {
		s.logger.Warn().Str("turn", turnID).Msg("stream completed without content")
	}

	s.endTurn()
	return msg
}

// Fail ends the active turn without appending anything. Partial text is
// discarded and nothing is retried. It returns false for a stale turn.
func (s *Session) Fail(turnID string, err error) bool {
	if !s.active(turnID) {
		return false
	}

	ev := s.logger.Error()
	if errors.Is(err, context.Canceled) {
		ev = s.logger.Info()
	}
	ev.Err(err).
		Str("turn", turnID).
		Int("discarded_bytes", s.acc.Len()).
		Msg("turn ended without a reply")

	s.acc.Reset()
	s.endTurn()
	return true
}

func (s *Session) active(turnID string) bool {
	return s.busy && turnID != "" && turnID == s.turn
}

func (s *Session) endTurn() {
	s.busy = false
	s.turn = ""
	s.stats = nil
}

// =============================================================================
// SYNCHRONOUS TURN
// =============================================================================

// Exchange runs one complete turn against client on the calling goroutine.
// onText, if set, sees every non-empty fragment as it arrives. The returned
// message is the finalized assistant reply.
func (s *Session) Exchange(ctx context.Context, client completion.Client, text string, onText func(string)) (*model.Message, error) {
	turn, err := s.Submit(text)
	if err != nil {
		return nil, err
	}

	if client == nil {
		s.Fail(turn.ID, completion.ErrNotConfigured)
		return nil, fmt.Errorf("open stream: %w", completion.ErrNotConfigured)
	}
	stream, err := client.Stream(ctx, turn.Request)
	if err != nil {
		s.Fail(turn.ID, err)
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	_, err = completion.Drain(ctx, stream, func(frag string) {
		s.Fragment(turn.ID, frag)
		if onText != nil {
			onText(frag)
		}
	})
	if err != nil {
		s.Fail(turn.ID, err)
		return nil, fmt.Errorf("stream: %w", err)
	}
	if u, ok := completion.StreamUsage(stream); ok {
		s.RecordUsage(turn.ID, u)
	}
	return s.Complete(turn.ID), nil
}
