// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// isTerminal reports whether w is an *os.File attached to a terminal.
// Rendered output and cursor movement are only written to terminals;
// pipes get the raw reply text.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// isStdinTerminal reports whether stdin is interactive.
func isStdinTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// defaultTerminalWidth is the fallback width when detection fails
	defaultTerminalWidth = 80

	// minTerminalWidth is the minimum width we'll render at
	minTerminalWidth = 40
)

// terminalWidth returns the width of the terminal behind w, or
// defaultTerminalWidth when w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	if width < minTerminalWidth {
		return minTerminalWidth
	}
	return width
}
