// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/config"
	"github.com/jeranaias/cardchat-tui/internal/conversation"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// streamCmd opens the stream for turn and reads its first fragment.
func streamCmd(ctx context.Context, client completion.Client, turn *conversation.Turn) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return FailedMsg{Turn: turn.ID, Err: completion.ErrNotConfigured}
		}
		stream, err := client.Stream(ctx, turn.Request)
		if err != nil {
			return FailedMsg{Turn: turn.ID, Err: err}
		}
		return recvNext(turn.ID, stream)
	}
}

// nextFragmentCmd reads the next fragment of an open stream.
func nextFragmentCmd(turnID string, stream completion.Stream) tea.Cmd {
	return func() tea.Msg {
		return recvNext(turnID, stream)
	}
}

// recvNext blocks until the stream yields text, ends or fails. Fragments
// without text are skipped. The stream is closed on any terminal result.
func recvNext(turnID string, stream completion.Stream) tea.Msg {
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			done := CompleteMsg{Turn: turnID}
			if u, ok := completion.StreamUsage(stream); ok {
				done.Usage = &u
			}
			stream.Close()
			return done
		}
		if err != nil {
			stream.Close()
			return FailedMsg{Turn: turnID, Err: err}
		}
		if text := frag.Text(); text != "" {
			return FragmentMsg{Turn: turnID, Text: text, stream: stream}
		}
	}
}

// closeStreamCmd releases a stream whose turn is no longer current.
func closeStreamCmd(stream completion.Stream) tea.Cmd {
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		stream.Close()
		return nil
	}
}

// waitForConfigCmd blocks until the watcher reports a reload.
func waitForConfigCmd(w *config.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		change, ok := <-w.Changes()
		if !ok {
			return nil
		}
		return ConfigChangedMsg{Change: change}
	}
}

// clearStatusCmd schedules removal of the notice with sequence seq.
func clearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}
