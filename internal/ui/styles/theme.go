// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/cardchat-tui/internal/card"
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects the light or dark palette.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// ParseMode parses a config or flag value. The empty string means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeDark:
		return ModeDark, nil
	case ModeLight:
		return ModeLight, nil
	}
	return "", fmt.Errorf("unknown theme %q (want dark, light or auto)", s)
}

// =============================================================================
// THEME
// =============================================================================

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Messages
	UserBubble     lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Streaming      lipgloss.Style
	Timestamp      lipgloss.Style
	EmptyRegion    lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	SendEnabled    lipgloss.Style
	SendDisabled   lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StatusError lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusOK    lipgloss.Style
	Spinner     lipgloss.Style
	ShortcutKey lipgloss.Style
	ShortcutDsc lipgloss.Style

	cardPalette card.Palette
}

// NewTheme creates a theme. ModeAuto asks termenv whether the terminal
// background is dark.
func NewTheme(mode Mode) *Theme {
	dark := true
	switch mode {
	case ModeLight:
		dark = false
	case ModeAuto, "":
		dark = termenv.HasDarkBackground()
	}
	return newTheme(dark, termenv.ColorProfile())
}

// Toggle returns the theme for the opposite background.
func (t *Theme) Toggle() *Theme {
	return newTheme(!t.IsDark, t.ColorProfile)
}

// Mode returns the concrete mode of this theme.
func (t *Theme) Mode() Mode {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

// GlamourStyle returns the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// CardPalette returns the card colors for this background.
func (t *Theme) CardPalette() card.Palette {
	return t.cardPalette
}

func newTheme(dark bool, profile termenv.Profile) *Theme {
	c := func(ac lipgloss.AdaptiveColor) lipgloss.Color { return Pick(ac, dark) }

	t := &Theme{IsDark: dark, ColorProfile: profile}

	t.Header = lipgloss.NewStyle().Background(c(SurfaceDim)).Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(c(Purple)).Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(c(TextMuted))

	t.UserBubble = lipgloss.NewStyle().
		Foreground(c(UserBubbleFg)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c(UserBubbleBorder)).
		Padding(0, 1)
	t.UserLabel = lipgloss.NewStyle().Foreground(c(Cyan)).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(c(Purple)).Bold(true)
	t.Streaming = lipgloss.NewStyle().Foreground(c(TextSecondary))
	t.Timestamp = lipgloss.NewStyle().Foreground(c(TextMuted))
	t.EmptyRegion = lipgloss.NewStyle().Foreground(c(TextMuted)).Faint(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c(OverlayDim)).
		Padding(0, 1)
	t.SendEnabled = lipgloss.NewStyle().Foreground(c(Cyan)).Bold(true)
	t.SendDisabled = lipgloss.NewStyle().Foreground(c(TextMuted)).Faint(true)

	t.StatusBar = lipgloss.NewStyle().Foreground(c(TextSecondary)).Background(c(SurfaceDim)).Padding(0, 1)
	t.StatusError = lipgloss.NewStyle().Foreground(c(Rose)).Bold(true)
	t.StatusWarn = lipgloss.NewStyle().Foreground(c(Amber))
	t.StatusOK = lipgloss.NewStyle().Foreground(c(Emerald))
	t.Spinner = lipgloss.NewStyle().Foreground(c(Purple))
	t.ShortcutKey = lipgloss.NewStyle().Foreground(c(Cyan))
	t.ShortcutDsc = lipgloss.NewStyle().Foreground(c(TextMuted))

	codeStyle := "monokai"
	if !dark {
		codeStyle = "github"
	}
	t.cardPalette = card.Palette{
		Text:      c(TextPrimary),
		Subtle:    c(TextSecondary),
		Accent:    c(Cyan),
		Good:      c(Emerald),
		Warning:   c(Amber),
		Attention: c(Rose),
		Light:     c(TextMuted),
		Dark:      c(TextStrong),
		Border:    c(AssistantBubbleBorder),
		Highlight: c(Highlight),
		CodeStyle: codeStyle,
	}

	return t
}
