// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the cardchat TUI.

Colors are declared once as Lip Gloss AdaptiveColor pairs (colors.go). A Theme
resolves every pair to its light or dark half up front, so switching between
light and dark at runtime is a matter of building the other Theme; nothing
depends on the terminal's reported background after startup.

# Modes

	ModeAuto  - follow the terminal background (termenv detection)
	ModeDark  - force the dark palette
	ModeLight - force the light palette

# Usage

	theme := styles.NewTheme(styles.ModeAuto)
	bubble := theme.UserBubble.Render("hello")
	theme = theme.Toggle() // dark <-> light, not persisted

The theme also supplies the matching card palette and glamour style name so
cards and Markdown follow the same mode.
*/
package styles
