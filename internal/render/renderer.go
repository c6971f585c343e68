// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cardchat-tui/internal/card"
	"github.com/jeranaias/cardchat-tui/internal/model"
	"github.com/jeranaias/cardchat-tui/internal/ui/styles"
)

// Displayable is the rendered form of one message.
type Displayable struct {
	Kind Kind
	// View is the terminal string; empty for KindEmpty.
	View string
	// Err is the card validation error behind a KindEmpty result.
	Err error
}

// Options configures a Renderer.
type Options struct {
	Theme *styles.Theme
	// MarkdownStyle overrides the glamour style; empty follows the theme.
	MarkdownStyle string
	// Markdown replaces the glamour converter, mainly for tests.
	Markdown MarkdownConverter
	Logger   *zerolog.Logger
}

// Renderer renders messages. It never modifies the messages it is given.
// Safe for concurrent use.
type Renderer struct {
	mu            sync.RWMutex
	theme         *styles.Theme
	markdownStyle string
	md            MarkdownConverter
	customMD      bool
	gen           uint64

	cache  *Cache
	logger zerolog.Logger
}

// New creates a renderer.
func New(opts Options) *Renderer {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	r := &Renderer{
		theme:         theme,
		markdownStyle: opts.MarkdownStyle,
		md:            opts.Markdown,
		customMD:      opts.Markdown != nil,
		cache:         NewCache(),
		logger:        logger.With().Str("component", "render").Logger(),
	}
	if r.md == nil {
		r.md = NewGlamourConverter(r.glamourStyle())
	}
	return r
}

// SetTheme switches light/dark. Every message re-renders on next use.
func (r *Renderer) SetTheme(theme *styles.Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.theme = theme
	if !r.customMD {
		r.md = NewGlamourConverter(r.glamourStyle())
	}
	r.gen++
}

// SetMarkdownStyle changes the glamour style override; empty follows the
// theme. Ignored when a custom converter was supplied.
func (r *Renderer) SetMarkdownStyle(style string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if style == r.markdownStyle {
		return
	}
	r.markdownStyle = style
	if !r.customMD {
		r.md = NewGlamourConverter(r.glamourStyle())
	}
	r.gen++
}

// Theme returns the current theme.
func (r *Renderer) Theme() *styles.Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.theme
}

// Cache exposes the render cache for statistics.
func (r *Renderer) Cache() *Cache {
	return r.cache
}

func (r *Renderer) glamourStyle() string {
	if r.markdownStyle != "" {
		return r.markdownStyle
	}
	return r.theme.GlamourStyle()
}

// Render produces the displayable for msg at the given width.
func (r *Renderer) Render(msg *model.Message, width int) Displayable {
	r.mu.RLock()
	theme, md, gen := r.theme, r.md, r.gen
	r.mu.RUnlock()

	if d, ok := r.cache.Get(msg.ID, msg.Content, width, gen); ok {
		return d
	}
	d := r.render(msg, width, theme, md)
	r.cache.Put(msg.ID, msg.Content, width, gen, d)
	return d
}

func (r *Renderer) render(msg *model.Message, width int, theme *styles.Theme, md MarkdownConverter) Displayable {
	if msg.Role == model.RoleUser {
		return Displayable{Kind: KindPlain, View: userBubble(msg.Content, width, theme)}
	}

	cls := Classify(msg.Content)
	if cls.IsDocument {
		c, err := card.Parse(cls.Doc)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("message_id", msg.ID).
				Str("content", msg.Preview(80)).
				Msg("card validation failed; rendering empty region")
			return Displayable{Kind: KindEmpty, Err: err}
		}
		return Displayable{Kind: KindCard, View: c.Render(width, theme.CardPalette())}
	}

	out, err := md.Convert(msg.Content, width)
	if err != nil {
		r.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("markdown conversion failed; showing raw text")
		out = msg.Content
	}
	return Displayable{Kind: KindProse, View: out}
}

// RenderStreaming renders the partial text of a reply still streaming in.
// The text is not classified until the reply is complete.
func (r *Renderer) RenderStreaming(text string, width int) string {
	theme := r.Theme()
	return theme.Streaming.Width(max(width, 1)).Render(text)
}

// userBubble wraps text in the user bubble and pushes it to the right edge.
// The bubble takes at most three quarters of the width.
func userBubble(text string, width int, theme *styles.Theme) string {
	if width < 8 {
		width = 8
	}
	maxInner := width*3/4 - 4
	if maxInner < 1 {
		maxInner = 1
	}

	inner := 0
	for _, line := range strings.Split(text, "\n") {
		if w := lipgloss.Width(line); w > inner {
			inner = w
		}
	}
	if inner > maxInner {
		inner = maxInner
	}
	if inner < 1 {
		inner = 1
	}

	bubble := theme.UserBubble.Width(inner + 2).Render(text)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
}
