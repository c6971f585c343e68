// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/completion/completiontest"
	"github.com/jeranaias/cardchat-tui/internal/model"
	"github.com/jeranaias/cardchat-tui/internal/ollama"
)

func TestSubmit_EmptyInputIsNoOp(t *testing.T) {
	s := New(Options{})
	for _, in := range []string{"", "   ", "\n\t "} {
		turn, err := s.Submit(in)
		assert.ErrorIs(t, err, ErrEmptyInput, "input %q", in)
		assert.Nil(t, turn)
	}
	assert.Empty(t, s.Messages())
	assert.False(t, s.Busy())
}

func TestSubmit_AppendsOneUserMessageAndSendsOnlyIt(t *testing.T) {
	s := New(Options{Model: "m1"})

	turn, err := s.Submit("hi")
	require.NoError(t, err)
	require.NotNil(t, turn)

	require.Len(t, s.Messages(), 1)
	assert.Equal(t, model.RoleUser, s.Messages()[0].Role)
	assert.Equal(t, "hi", s.Messages()[0].Content)
	assert.True(t, s.Busy())
	assert.Equal(t, turn.ID, s.TurnID())

	assert.Equal(t, "m1", turn.Request.Model)
	assert.True(t, turn.Request.Stream)
	require.Len(t, turn.Request.Messages, 1)
	assert.Equal(t, "user", turn.Request.Messages[0].Role)
	assert.Equal(t, "hi", turn.Request.Messages[0].Content)
}

func TestSubmit_HistoryIsNotSent(t *testing.T) {
	s := New(Options{})
	first, err := s.Submit("one")
	require.NoError(t, err)
	s.Fragment(first.ID, "reply")
	s.Complete(first.ID)

	second, err := s.Submit("two")
	require.NoError(t, err)
	require.Len(t, second.Request.Messages, 1)
	assert.Equal(t, "two", second.Request.Messages[0].Content)
}

func TestSubmit_WhileBusyIsNoOp(t *testing.T) {
	s := New(Options{})
	turn, err := s.Submit("first")
	require.NoError(t, err)
	s.Fragment(turn.ID, "partial")

	again, err := s.Submit("second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, again)

	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, "partial", s.Streaming(), "accumulator must survive a rejected submit")
	assert.Equal(t, turn.ID, s.TurnID())
}

func TestFragments_ConcatenateIntoAssistantMessage(t *testing.T) {
	s := New(Options{})
	turn, err := s.Submit("hi")
	require.NoError(t, err)

	assert.True(t, s.Fragment(turn.ID, "Hel"))
	assert.True(t, s.Fragment(turn.ID, "lo"))
	assert.Equal(t, "Hello", s.Streaming())

	msg := s.Complete(turn.ID)
	require.NotNil(t, msg)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	require.NotNil(t, msg.Stats)
	assert.Equal(t, 2, msg.Stats.Fragments)

	assert.Len(t, s.Messages(), 2)
	assert.Equal(t, "", s.Streaming())
	assert.False(t, s.Busy())
	assert.Nil(t, s.Stats())
}

func TestComplete_WithNoFragmentsAppendsEmptyReply(t *testing.T) {
	s := New(Options{})
	turn, err := s.Submit("hi")
	require.NoError(t, err)

	msg := s.Complete(turn.ID)
	require.NotNil(t, msg)
	assert.Equal(t, "", msg.Content)
	assert.Len(t, s.Messages(), 2)
}

func TestStaleTurnEventsAreIgnored(t *testing.T) {
	s := New(Options{})
	old, err := s.Submit("one")
	require.NoError(t, err)
	require.True(t, s.Fail(old.ID, context.Canceled))

	cur, err := s.Submit("two")
	require.NoError(t, err)

	assert.False(t, s.Fragment(old.ID, "late"))
	assert.Nil(t, s.Complete(old.ID))
	assert.False(t, s.Fail(old.ID, errors.New("late")))
	assert.True(t, s.Busy())
	assert.Equal(t, "", s.Streaming())

	assert.True(t, s.Fragment(cur.ID, "ok"))
	assert.Equal(t, "ok", s.Complete(cur.ID).Content)
}

func TestEventsWhileIdleAreIgnored(t *testing.T) {
	s := New(Options{})
	assert.False(t, s.Fragment("", "x"))
	assert.Nil(t, s.Complete(""))
	assert.False(t, s.Fail("", errors.New("x")))
	assert.Empty(t, s.Messages())
}

func TestFail_DiscardsPartialAndAppendsNothing(t *testing.T) {
	s := New(Options{})
	turn, err := s.Submit("hi")
	require.NoError(t, err)
	s.Fragment(turn.ID, "half a rep")

	assert.True(t, s.Fail(turn.ID, errors.New("connection reset")))
	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, "", s.Streaming())
	assert.False(t, s.Busy())

	// A fresh submit works after a failure.
	_, err = s.Submit("again")
	assert.NoError(t, err)
}

func TestExchange_Success(t *testing.T) {
	client := completiontest.New("Hel", "", "lo")
	s := New(Options{Model: "m"})

	var seen []string
	msg, err := s.Exchange(context.Background(), client, "hi", func(text string) {
		seen = append(seen, text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Content)
	assert.Equal(t, []string{"Hel", "lo"}, seen)
	assert.Len(t, s.Messages(), 2)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "m", reqs[0].Model)
}

func TestExchange_OpenError(t *testing.T) {
	client := completiontest.New()
	client.OpenErr = errors.New("refused")
	s := New(Options{})

	msg, err := s.Exchange(context.Background(), client, "hi", nil)
	assert.Nil(t, msg)
	assert.ErrorContains(t, err, "refused")
	assert.Len(t, s.Messages(), 1)
	assert.False(t, s.Busy())
}

func TestExchange_MidStreamError(t *testing.T) {
	client := completiontest.New("par", "tial")
	client.RecvErr = errors.New("reset")
	s := New(Options{})

	msg, err := s.Exchange(context.Background(), client, "hi", nil)
	assert.Nil(t, msg)
	assert.ErrorContains(t, err, "reset")
	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, "", s.Streaming())
}

func TestExchange_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(Options{})

	_, err := s.Exchange(ctx, completiontest.New("x"), "hi", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Busy())
}

func TestExchange_EmptyInput(t *testing.T) {
	client := completiontest.New("x")
	s := New(Options{})

	_, err := s.Exchange(context.Background(), client, "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, client.Requests())
}

func TestExchange_NilClient(t *testing.T) {
	s := New(Options{})

	_, err := s.Exchange(context.Background(), nil, "hi", nil)
	assert.ErrorIs(t, err, completion.ErrNotConfigured)
	assert.False(t, s.Busy())
	assert.Len(t, s.Messages(), 1)
}

func TestExchange_RecordsUsage(t *testing.T) {
	client := completiontest.New("ok")
	client.Usage = &completion.Usage{CompletionTokens: 7, TokensPerSecond: 21.5}
	s := New(Options{})

	msg, err := s.Exchange(context.Background(), client, "hi", nil)
	require.NoError(t, err)
	require.NotNil(t, msg.Stats)
	assert.Equal(t, 7, msg.Stats.Tokens)
	assert.Contains(t, msg.Stats.Format(), "21.5 tok/s")
}

func TestRecordUsage_StaleTurnIgnored(t *testing.T) {
	s := New(Options{})
	assert.False(t, s.RecordUsage("turn_old", completion.Usage{CompletionTokens: 1}))

	turn, err := s.Submit("hi")
	require.NoError(t, err)
	assert.False(t, s.RecordUsage("turn_old", completion.Usage{CompletionTokens: 1}))
	assert.True(t, s.RecordUsage(turn.ID, completion.Usage{CompletionTokens: 3}))
	assert.Equal(t, 3, s.Complete(turn.ID).Stats.Tokens)
}

func TestSetModel_AppliesToNextTurn(t *testing.T) {
	client := completiontest.New("x")
	s := New(Options{Model: "a"})

	_, err := s.Exchange(context.Background(), client, "one", nil)
	require.NoError(t, err)
	s.SetModel("b")
	_, err = s.Exchange(context.Background(), client, "two", nil)
	require.NoError(t, err)

	reqs := client.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "a", reqs[0].Model)
	assert.Equal(t, "b", reqs[1].Model)
	assert.Equal(t, "b", s.Model())
}

// Broken Ollama bodies must end the turn as a failure with nothing appended.
func TestExchange_BrokenOllamaStreamAppendsNothing(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated before done", `{"message":{"content":"Hel"},"done":false}` + "\n"},
		{"cut mid line", `{"message":{"content":"Hel"},"done":false}` + "\n" + `{"message":{"content":"lo wor`},
		{"not ndjson", `<html>502 Bad Gateway</html>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL})
			s := New(Options{})

			msg, err := s.Exchange(context.Background(), client, "hi", nil)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.Len(t, s.Messages(), 1, "only the user message remains")
			assert.False(t, s.Busy())
		})
	}
}
