// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownConverter converts Markdown text into terminal markup.
type MarkdownConverter interface {
	Convert(text string, width int) (string, error)
}

// GlamourConverter renders Markdown with glamour. Renderers are built
// lazily per word-wrap width and reused. Safe for concurrent use: a
// glamour TermRenderer keeps per-render state, so conversions are
// serialized under mu.
type GlamourConverter struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewGlamourConverter creates a converter for a glamour standard style
// ("dark", "light", "ascii", "notty", "dracula", ...). "auto" follows the
// terminal background.
func NewGlamourConverter(style string) *GlamourConverter {
	if style == "" {
		style = "auto"
	}
	return &GlamourConverter{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
	}
}

// Style returns the glamour style name in use.
func (g *GlamourConverter) Style() string {
	return g.style
}

// Convert implements MarkdownConverter.
func (g *GlamourConverter) Convert(text string, width int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.renderer(width)
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("markdown: render: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// renderer returns the cached renderer for width. g.mu must be held.
func (g *GlamourConverter) renderer(width int) (*glamour.TermRenderer, error) {
	if width < 1 {
		width = 1
	}

	if r, ok := g.renderers[width]; ok {
		return r, nil
	}

	styleOpt := glamour.WithStandardStyle(g.style)
	if g.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("markdown: new renderer: %w", err)
	}
	g.renderers[width] = r
	return r, nil
}
