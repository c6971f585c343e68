// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/completion/completiontest"
	"github.com/jeranaias/cardchat-tui/internal/config"
	"github.com/jeranaias/cardchat-tui/internal/model"
	"github.com/jeranaias/cardchat-tui/internal/render"
	"github.com/jeranaias/cardchat-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestModel(client completion.Client) Model {
	theme := styles.NewTheme(styles.ModeDark)
	return New(Options{
		Client:   client,
		Theme:    theme,
		Renderer: render.New(render.Options{Theme: theme, MarkdownStyle: "ascii"}),
		Model:    "test-model",
	})
}

// collect runs cmd and returns the messages it produces, expanding batches.
// Commands that do not return quickly (blink and status timers) are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// drive sends msg to m and keeps feeding back stream events until the
// stream settles.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 1000, "stream did not settle")
		next := queue[0]
		queue = queue[1:]

		updated, cmd := m.Update(next)
		m = updated.(Model)
		for _, out := range collect(cmd) {
			switch out.(type) {
			case FragmentMsg, CompleteMsg, FailedMsg:
				queue = append(queue, out)
			}
		}
	}
	return m
}

func typeAndSend(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	return drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func resize(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestSubmit_EmptyInputIsIgnored(t *testing.T) {
	client := completiontest.New("unused")
	m := newTestModel(client)

	m = typeAndSend(t, m, "   ")

	assert.Empty(t, m.Session().Messages())
	assert.False(t, m.Session().Busy())
	assert.Empty(t, client.Requests())
	assert.Equal(t, "   ", m.InputValue())
}

func TestSubmit_StreamsReplyIntoConversation(t *testing.T) {
	client := completiontest.New("Hel", "lo")
	m := newTestModel(client)

	m = typeAndSend(t, m, "hi")

	msgs := m.Session().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.False(t, m.Session().Busy())
	assert.Empty(t, m.InputValue())

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []completion.Message{{Role: "user", Content: "hi"}}, reqs[0].Messages)
	assert.Equal(t, "test-model", reqs[0].Model)
	assert.True(t, reqs[0].Stream)
}

func TestSubmit_OnlyLatestMessageIsSent(t *testing.T) {
	client := completiontest.New("ok")
	m := newTestModel(client)

	m = typeAndSend(t, m, "first")
	m = typeAndSend(t, m, "second")

	require.Len(t, m.Session().Messages(), 4)
	reqs := client.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []completion.Message{{Role: "user", Content: "second"}}, reqs[1].Messages)
}

func TestSubmit_UserMessageAppendedBeforeRequest(t *testing.T) {
	client := completiontest.New("reply")
	m := newTestModel(client)
	m.input.SetValue("question")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	require.NotNil(t, cmd)
	assert.Empty(t, client.Requests(), "request is issued by the command, not by Update")
	require.Len(t, m.Session().Messages(), 1)
	assert.Equal(t, "question", m.Session().Messages()[0].Content)
	assert.True(t, m.Session().Busy())
}

func TestSubmit_WhileStreamingIsNoOp(t *testing.T) {
	client := completiontest.New("Hel", "lo")
	m := newTestModel(client)
	m.input.SetValue("hi")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	var frag FragmentMsg
	for _, out := range collect(cmd) {
		if f, ok := out.(FragmentMsg); ok {
			frag = f
		}
	}
	require.Equal(t, "Hel", frag.Text)
	updated, _ = m.Update(frag)
	m = updated.(Model)

	m.input.SetValue("again")
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Nil(t, cmd)
	assert.Equal(t, "again", m.InputValue())
	assert.Equal(t, "Hel", m.Session().Streaming())
	assert.Len(t, m.Session().Messages(), 1)
	assert.Len(t, client.Requests(), 1)
}

// =============================================================================
// CANCEL AND FAILURE TESTS
// =============================================================================

func TestCancel_EndsTurnImmediately(t *testing.T) {
	client := completiontest.New("never", "shown")
	m := newTestModel(client)
	m.input.SetValue("hi")

	updated, streamCmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.True(t, m.Session().Busy())

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	assert.False(t, m.Session().Busy())
	assert.Equal(t, "Reply cancelled", m.Status())
	assert.False(t, m.cancelMgr.active())

	// The pump sees the cancelled context and reports a failure that is
	// now stale.
	for _, out := range collect(streamCmd) {
		switch out.(type) {
		case FragmentMsg, CompleteMsg, FailedMsg:
			updated, _ = m.Update(out)
			m = updated.(Model)
		}
	}
	assert.Len(t, m.Session().Messages(), 1)
	assert.Equal(t, "Reply cancelled", m.Status())
}

func TestCancel_IdleIsNoOp(t *testing.T) {
	m := newTestModel(completiontest.New())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	assert.Nil(t, cmd)
	assert.Empty(t, m.Status())
}

func TestFailure_ShowsNoticeAndDiscardsPartialReply(t *testing.T) {
	client := completiontest.New("par", "tial")
	client.RecvErr = errors.New("connection reset\nstack details")
	m := newTestModel(client)

	m = typeAndSend(t, m, "hi")

	msgs := m.Session().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.False(t, m.Session().Busy())
	assert.Empty(t, m.Session().Streaming())
	assert.Equal(t, "Request failed: connection reset", m.Status())
	assert.Equal(t, statusError, m.statusLevel)
	assert.Len(t, client.Requests(), 1, "failed requests are not retried")
}

func TestFailure_OpenError(t *testing.T) {
	client := completiontest.New()
	client.OpenErr = errors.New("401 unauthorized")
	m := newTestModel(client)

	m = typeAndSend(t, m, "hi")

	assert.Len(t, m.Session().Messages(), 1)
	assert.Equal(t, "Request failed: 401 unauthorized", m.Status())
}

func TestFailure_NoClient(t *testing.T) {
	m := newTestModel(nil)

	m = typeAndSend(t, m, "hi")

	assert.False(t, m.Session().Busy())
	assert.Contains(t, m.Status(), completion.ErrNotConfigured.Error())
}

func TestStaleFragmentIgnored(t *testing.T) {
	m := newTestModel(completiontest.New())

	updated, cmd := m.Update(FragmentMsg{Turn: "turn_old", Text: "ghost"})
	m = updated.(Model)

	assert.Nil(t, cmd)
	assert.Empty(t, m.Session().Messages())
	assert.Empty(t, m.Session().Streaming())

	updated, _ = m.Update(CompleteMsg{Turn: "turn_old"})
	m = updated.(Model)
	assert.Empty(t, m.Session().Messages())
}

// =============================================================================
// KEY TESTS
// =============================================================================

func TestKeys_NewlineDoesNotSubmit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"alt+enter", tea.KeyMsg{Type: tea.KeyEnter, Alt: true}},
		{"ctrl+j", tea.KeyMsg{Type: tea.KeyCtrlJ}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := completiontest.New("x")
			m := newTestModel(client)
			m.input.SetValue("line one")

			updated, _ := m.Update(tc.msg)
			m = updated.(Model)

			assert.Equal(t, "line one\n", m.InputValue())
			assert.Empty(t, m.Session().Messages())
			assert.Empty(t, client.Requests())
		})
	}
}

func TestKeys_ToggleTheme(t *testing.T) {
	m := newTestModel(completiontest.New())
	require.True(t, m.Theme().IsDark)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)
	assert.False(t, m.Theme().IsDark)
	assert.Equal(t, "light theme", m.Status())

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)
	assert.True(t, m.Theme().IsDark)
}

func TestKeys_QuitCancelsInFlight(t *testing.T) {
	m := newTestModel(completiontest.New("x"))
	m.input.SetValue("hi")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.True(t, m.cancelMgr.active())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.cancelMgr.active())
}

func TestKeys_HelpTogglesFullHelp(t *testing.T) {
	m := resize(newTestModel(completiontest.New()))
	short := m.viewport.Height

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyF1})
	m = updated.(Model)

	assert.True(t, m.help.ShowAll)
	assert.Less(t, m.viewport.Height, short, "full help takes rows from the viewport")
}

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestStatusClear_OnlyClearsMatchingNotice(t *testing.T) {
	m := newTestModel(completiontest.New())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)
	first := m.statusSeq
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)

	updated, _ = m.Update(statusClearMsg{seq: first})
	m = updated.(Model)
	assert.Equal(t, "dark theme", m.Status(), "older timer must not clear a newer notice")

	updated, _ = m.Update(statusClearMsg{seq: m.statusSeq})
	m = updated.(Model)
	assert.Empty(t, m.Status())
}

// =============================================================================
// CONFIG RELOAD TESTS
// =============================================================================

func TestConfigChanged_AppliesTheme(t *testing.T) {
	m := newTestModel(completiontest.New())
	cfg := config.Default()
	cfg.UI.Theme = "light"
	cfg.UI.ShowStats = true

	updated, _ := m.Update(ConfigChangedMsg{Change: config.Change{Config: cfg}})
	m = updated.(Model)

	assert.False(t, m.Theme().IsDark)
	assert.True(t, m.ui.ShowStats)
	assert.Equal(t, "Config reloaded", m.Status())
}

func TestConfigChanged_AutoKeepsCurrentTheme(t *testing.T) {
	m := newTestModel(completiontest.New())
	cfg := config.Default()
	cfg.UI.Theme = "auto"

	updated, _ := m.Update(ConfigChangedMsg{Change: config.Change{Config: cfg}})
	m = updated.(Model)

	assert.True(t, m.Theme().IsDark)
}

func TestConfigChanged_ErrorKeepsSettings(t *testing.T) {
	m := newTestModel(completiontest.New())
	m.ui.WordWrap = 60

	updated, _ := m.Update(ConfigChangedMsg{Change: config.Change{Err: errors.New("bad toml\nline 3")}})
	m = updated.(Model)

	assert.Equal(t, 60, m.ui.WordWrap)
	assert.Equal(t, "Config not reloaded: bad toml", m.Status())
	assert.Equal(t, statusWarn, m.statusLevel)
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestView_EmptyState(t *testing.T) {
	m := resize(newTestModel(completiontest.New()))

	view := m.View()
	assert.Contains(t, view, "Welcome to cardchat")
	assert.Contains(t, view, "test-model")
	assert.Contains(t, view, "Ready")
}

func TestView_CardReply(t *testing.T) {
	card := `{"type":"AdaptiveCard","version":"1.5","body":[{"type":"TextBlock","text":"Card title"}]}`
	client := completiontest.New(card[:20], card[20:])
	m := resize(newTestModel(client))

	m = typeAndSend(t, m, "show a card")

	view := m.View()
	assert.Contains(t, view, "Card title")
	assert.NotContains(t, view, `"AdaptiveCard"`)
	assert.Contains(t, view, "2 messages")
}

func TestView_ProseReply(t *testing.T) {
	client := completiontest.New("Plain ", "answer here")
	m := resize(newTestModel(client))

	m = typeAndSend(t, m, "hi")

	assert.Contains(t, m.View(), "Plain answer here")
}

func TestView_NonCardJSONRendersEmptyRegion(t *testing.T) {
	client := completiontest.New(`{"answer": 42}`)
	m := resize(newTestModel(client))

	m = typeAndSend(t, m, "hi")

	require.Len(t, m.Session().Messages(), 2)
	view := m.View()
	assert.NotContains(t, view, "answer")
	assert.Contains(t, view, "Assistant")
}

func TestView_StreamingShowsPartialText(t *testing.T) {
	client := completiontest.New("partial reply", " and more")
	m := resize(newTestModel(client))
	m.input.SetValue("hi")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Contains(t, m.View(), "Thinking...")

	for _, out := range collect(cmd) {
		if f, ok := out.(FragmentMsg); ok {
			updated, _ = m.Update(f)
			m = updated.(Model)
		}
	}

	view := m.View()
	assert.Contains(t, view, "partial reply")
	assert.Contains(t, view, "Streaming...")
	assert.NotContains(t, view, "and more")
}

func TestView_SmallWindowDoesNotPanic(t *testing.T) {
	m := newTestModel(completiontest.New("x"))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 5, Height: 3})
	m = updated.(Model)
	m = typeAndSend(t, m, "hi")

	assert.NotPanics(t, func() { _ = m.View() })
	assert.NotEmpty(t, m.View())
}

// =============================================================================
// USAGE AND NOTICE TESTS
// =============================================================================

func TestComplete_RecordsBackendUsage(t *testing.T) {
	client := completiontest.New("ok")
	client.Usage = &completion.Usage{CompletionTokens: 12, TokensPerSecond: 42}
	m := resize(newTestModel(client))
	m.ui.ShowStats = true

	m = typeAndSend(t, m, "hi")

	msgs := m.Session().Messages()
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].Stats)
	assert.Equal(t, 12, msgs[1].Stats.Tokens)
	assert.Contains(t, m.View(), "42.0 tok/s")
	assert.Contains(t, m.renderStatusBar(), "last reply")
}

func TestStatusBar_NoStatsWhenDisabled(t *testing.T) {
	client := completiontest.New("ok")
	client.Usage = &completion.Usage{CompletionTokens: 12, TokensPerSecond: 42}
	m := resize(newTestModel(client))

	m = typeAndSend(t, m, "hi")

	assert.NotContains(t, m.renderStatusBar(), "tok/s")
}

func TestNew_StartupNotice(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	m := resize(New(Options{
		Client: completiontest.New(),
		Theme:  theme,
		Notice: "Ollama is not running",
	}))

	assert.Equal(t, "Ollama is not running", m.Status())
	assert.Equal(t, statusWarn, m.statusLevel)
	assert.Contains(t, m.View(), "Ollama is not running")
}
