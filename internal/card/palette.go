// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import "github.com/charmbracelet/lipgloss"

// Palette maps the card's semantic colors onto terminal colors.
type Palette struct {
	Text      lipgloss.TerminalColor
	Subtle    lipgloss.TerminalColor
	Accent    lipgloss.TerminalColor
	Good      lipgloss.TerminalColor
	Warning   lipgloss.TerminalColor
	Attention lipgloss.TerminalColor
	Light     lipgloss.TerminalColor
	Dark      lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
	Highlight lipgloss.TerminalColor

	// CodeStyle is a chroma style name used for CodeBlock elements.
	CodeStyle string
}

// DefaultPalette follows the terminal background via adaptive colors.
func DefaultPalette() Palette {
	return Palette{
		Text:      lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"},
		Subtle:    lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"},
		Accent:    lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"},
		Good:      lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"},
		Warning:   lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"},
		Attention: lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"},
		Light:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#F5F5F5"},
		Dark:      lipgloss.AdaptiveColor{Light: "#111827", Dark: "#45475A"},
		Border:    lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"},
		Highlight: lipgloss.AdaptiveColor{Light: "#FEF3C7", Dark: "#78350F"},
		CodeStyle: "monokai",
	}
}

func (p Palette) named(color string) lipgloss.TerminalColor {
	switch color {
	case "accent":
		return p.Accent
	case "good":
		return p.Good
	case "warning":
		return p.Warning
	case "attention":
		return p.Attention
	case "light":
		return p.Light
	case "dark":
		return p.Dark
	default:
		return p.Text
	}
}
