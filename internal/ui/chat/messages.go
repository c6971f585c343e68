// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/config"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// FragmentMsg delivers one non-empty piece of the reply for a turn.
type FragmentMsg struct {
	Turn string
	Text string

	// stream is read again for the next fragment.
	stream completion.Stream
}

// CompleteMsg signals that the stream for a turn ended normally.
type CompleteMsg struct {
	Turn string
	// Usage is set when the backend reported token accounting.
	Usage *completion.Usage
}

// FailedMsg signals that the request or stream for a turn failed. This
// includes cancellation.
type FailedMsg struct {
	Turn string
	Err  error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigChangedMsg carries a reload of the config file.
type ConfigChangedMsg struct {
	Change config.Change
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// statusLevel selects the style of the transient status notice.
type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
)

// statusTimeout is how long a transient notice stays on screen.
const statusTimeout = 5 * time.Second

// statusClearMsg clears the notice it was scheduled for. Newer notices
// bump the sequence number and so survive older timers.
type statusClearMsg struct {
	seq int
}
