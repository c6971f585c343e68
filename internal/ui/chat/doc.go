// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the conversation view of the cardchat TUI.

The view is a Bubble Tea model wrapped around a conversation.Session. It
shows the finalized messages in a scrollable viewport, the reply that is
still streaming in below them, and a multi-line input at the bottom.

# Streaming

A submit starts a turn. The stream is consumed by a pump of commands: each
command blocks on one Recv and returns a FragmentMsg, CompleteMsg or
FailedMsg tagged with the turn ID. Update applies the event to the session
and, for a fragment, schedules the next read. Events from a turn that was
cancelled are ignored.

# Files

  - model.go: Model, New, Init, Update and the event handlers
  - update.go: command creators (stream pump, config watch, status timers)
  - view.go: header, message list, input area, status bar
  - keys.go: key bindings and help
  - cancel.go: mutex-guarded cancel function shared by model copies
  - messages.go: Bubble Tea message types

# Usage

	m := chat.New(chat.Options{
		Client:   client,
		Renderer: render.New(render.Options{Theme: theme}),
		Theme:    theme,
		Model:    "gpt-4o-mini",
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
*/
package chat
