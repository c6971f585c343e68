// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// MinWidth is the narrowest width a card is laid out at.
const MinWidth = 16

// Render lays the card out in a rounded frame exactly width cells wide.
func (c *Card) Render(width int, p Palette) string {
	if width < MinWidth {
		width = MinWidth
	}
	r := renderer{p: p}
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1).
		Width(width - 2)
	return frame.Render(r.card(c, width-4))
}

type renderer struct {
	p Palette
}

func (r renderer) card(c *Card, width int) string {
	if len(c.Body) == 0 && len(c.Actions) == 0 && c.FallbackText != "" {
		return strings.Join(r.wrap([]span{{text: c.FallbackText, style: r.text()}}, width), "\n")
	}
	out := r.elements(c.Body, width)
	if len(c.Actions) > 0 {
		if out != "" {
			out += "\n"
		}
		out += r.actions(c.Actions, width)
	}
	return out
}

// elements renders a vertical stack, honouring visibility, separators and
// spacing between siblings.
func (r renderer) elements(els []Element, width int) string {
	var b strings.Builder
	first := true
	for _, el := range els {
		base := el.base()
		if !base.Visible {
			continue
		}
		if !first {
			b.WriteString("\n")
			switch {
			case base.Separator:
				b.WriteString(r.rule(width))
				b.WriteString("\n")
			case wideSpacing(base.Spacing):
				b.WriteString("\n")
			}
		}
		b.WriteString(r.element(el, width))
		first = false
	}
	return b.String()
}

func (r renderer) element(el Element, width int) string {
	switch e := el.(type) {
	case *TextBlock:
		return r.textBlock(e, width)
	case *RichTextBlock:
		return r.richText(e, width)
	case *Image:
		return r.image(e, width)
	case *FactSet:
		return r.factSet(e, width)
	case *Container:
		return r.container(e.Style, e.Items, width)
	case *Column:
		return r.container(e.Style, e.Items, width)
	case *ColumnSet:
		return r.columnSet(e, width)
	case *ActionSet:
		return r.actions(e.Actions, width)
	case *CodeBlock:
		return r.renderCode(e, width)
	case *InputText:
		return r.inputText(e, width)
	case *InputNumber:
		return r.inputNumber(e, width)
	case *InputDate:
		return r.inputDate(e, width)
	case *InputToggle:
		return r.inputToggle(e, width)
	case *InputChoiceSet:
		return r.inputChoiceSet(e, width)
	}
	return ""
}

// =============================================================================
// TEXT
// =============================================================================

func (r renderer) text() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(r.p.Text)
}

func (r renderer) subtle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(r.p.Subtle)
}

func (r renderer) textStyle(size, weight, color string, subtle bool) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(r.p.named(strings.ToLower(color)))
	if subtle {
		st = st.Foreground(r.p.Subtle)
	}
	switch strings.ToLower(size) {
	case "large", "extralarge":
		st = st.Bold(true)
	case "small":
		st = st.Faint(true)
	}
	switch strings.ToLower(weight) {
	case "bolder":
		st = st.Bold(true)
	case "lighter":
		st = st.Faint(true)
	}
	return st
}

func (r renderer) textBlock(e *TextBlock, width int) string {
	st := r.textStyle(e.Size, e.Weight, e.Color, e.IsSubtle)

	var lines []string
	if e.Wrap {
		lines = r.wrap([]span{{text: e.Text, style: st}}, width)
	} else {
		first, _, _ := strings.Cut(e.Text, "\n")
		lines = []string{st.Render(runewidth.Truncate(first, width, "…"))}
	}
	lines = clampLines(lines, e.MaxLines)
	return alignLines(lines, width, e.HorizontalAlignment)
}

func (r renderer) richText(e *RichTextBlock, width int) string {
	spans := make([]span, 0, len(e.Inlines))
	for _, run := range e.Inlines {
		st := r.textStyle(run.Size, run.Weight, run.Color, run.IsSubtle).
			Italic(run.Italic).
			Strikethrough(run.Strikethrough).
			Underline(run.Underline)
		if run.Highlight {
			st = st.Background(r.p.Highlight)
		}
		spans = append(spans, span{text: run.Text, style: st})
	}
	return alignLines(r.wrap(spans, width), width, e.HorizontalAlignment)
}

func (r renderer) rule(width int) string {
	return r.subtle().Render(strings.Repeat("─", width))
}

// =============================================================================
// IMAGE & FACTS
// =============================================================================

func (r renderer) image(e *Image, width int) string {
	label := "[image]"
	if e.AltText != "" {
		label = "[image: " + e.AltText + "]"
	}
	lines := []string{
		r.text().Render(runewidth.Truncate(label, width, "…")),
		r.subtle().Render(runewidth.Truncate(e.URL, width, "…")),
	}
	return alignLines(lines, width, e.HorizontalAlignment)
}

func (r renderer) factSet(e *FactSet, width int) string {
	titleW := 0
	for _, f := range e.Facts {
		if w := runewidth.StringWidth(f.Title); w > titleW {
			titleW = w
		}
	}
	if limit := width / 3; titleW > limit {
		titleW = limit
	}
	if titleW < 1 {
		titleW = 1
	}
	valueW := width - titleW - 2
	if valueW < 1 {
		valueW = 1
	}

	title := lipgloss.NewStyle().Foreground(r.p.Text).Bold(true)
	indent := strings.Repeat(" ", titleW+2)

	var out []string
	for _, f := range e.Facts {
		t := runewidth.FillRight(runewidth.Truncate(f.Title, titleW, "…"), titleW)
		values := r.wrap([]span{{text: f.Value, style: r.text()}}, valueW)
		for i, v := range values {
			if i == 0 {
				out = append(out, title.Render(t)+"  "+v)
			} else {
				out = append(out, indent+v)
			}
		}
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// CONTAINERS
// =============================================================================

func (r renderer) container(style string, items []Element, width int) string {
	var bar lipgloss.TerminalColor
	switch strings.ToLower(style) {
	case "emphasis", "accent":
		bar = r.p.Accent
	case "good":
		bar = r.p.Good
	case "warning":
		bar = r.p.Warning
	case "attention":
		bar = r.p.Attention
	}
	if bar == nil {
		return r.elements(items, width)
	}
	inner := r.elements(items, width-2)
	if inner == "" {
		inner = " "
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(bar).
		PaddingLeft(1).
		Render(inner)
}

func (r renderer) columnSet(e *ColumnSet, width int) string {
	cols := make([]*Column, 0, len(e.Columns))
	for _, c := range e.Columns {
		if c.Visible {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return ""
	}

	// An auto column measured at its share keeps that rendering: its final
	// width is never narrower, so rendering it again would only repeat the
	// work at every nesting level.
	measured := make(map[*Column]string)
	widths := columnWidths(cols, width, func(c *Column, limit int) int {
		body := r.container(c.Style, c.Items, limit)
		measured[c] = body
		return lipgloss.Width(body)
	})

	parts := make([]string, 0, len(cols)*2)
	for i, c := range cols {
		if i > 0 {
			parts = append(parts, " ")
		}
		body, ok := measured[c]
		if !ok {
			body = r.container(c.Style, c.Items, widths[i])
		}
		parts = append(parts, lipgloss.NewStyle().Width(widths[i]).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// columnWidths splits width between columns separated by one-cell gaps.
// "auto" columns take their natural width (capped at an even share),
// pixel widths map to one cell per 8px, and the rest is divided by weight
// with "stretch" and empty widths counting as weight 1.
func columnWidths(cols []*Column, width int, natural func(c *Column, limit int) int) []int {
	n := len(cols)
	avail := width - (n - 1)
	if avail < n {
		avail = n
	}
	share := avail / n

	widths := make([]int, n)
	weights := make([]float64, n)
	used := 0
	var totalWeight float64

	for i, c := range cols {
		w := strings.ToLower(strings.TrimSpace(c.Width))
		switch {
		case w == "auto":
			widths[i] = clamp(natural(c, share), 1, share)
			used += widths[i]
		case strings.HasSuffix(w, "px"):
			px, err := strconv.Atoi(strings.TrimSuffix(w, "px"))
			if err != nil {
				px = 8
			}
			widths[i] = clamp((px+7)/8, 1, share)
			used += widths[i]
		default:
			weight := 1.0
			if f, err := strconv.ParseFloat(w, 64); err == nil && f > 0 {
				weight = f
			}
			weights[i] = weight
			totalWeight += weight
		}
	}

	remaining := avail - used
	last := -1
	given := 0
	for i := range cols {
		if weights[i] == 0 {
			continue
		}
		widths[i] = int(float64(remaining) * weights[i] / totalWeight)
		if widths[i] < 1 {
			widths[i] = 1
		}
		given += widths[i]
		last = i
	}
	if last >= 0 && given < remaining {
		widths[last] += remaining - given
	}
	return widths
}

// =============================================================================
// ACTIONS
// =============================================================================

func (r renderer) actions(actions []Action, width int) string {
	var rows []string
	var row []string
	rowW := 0

	flush := func() {
		if len(row) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
		}
		row, rowW = nil, 0
	}

	for _, a := range actions {
		btn := r.button(a, width)
		w := lipgloss.Width(btn)
		if rowW > 0 && rowW+1+w > width {
			flush()
		}
		if rowW > 0 {
			row = append(row, " ")
			rowW++
		}
		row = append(row, btn)
		rowW += w
	}
	flush()

	for _, a := range actions {
		switch a.Type {
		case ActionOpenURL:
			rows = append(rows, r.subtle().Render(runewidth.Truncate("↗ "+a.URL, width, "…")))
		case ActionShowCard:
			if a.Card != nil {
				nested := r.card(a.Card, width-2)
				rows = append(rows, lipgloss.NewStyle().
					BorderStyle(lipgloss.NormalBorder()).
					BorderLeft(true).
					BorderForeground(r.p.Border).
					PaddingLeft(1).
					Render(nested))
			}
		}
	}
	return strings.Join(rows, "\n")
}

func (r renderer) button(a Action, width int) string {
	title := a.Title
	if title == "" {
		title = strings.TrimPrefix(a.Type, "Action.")
	}
	switch a.Type {
	case ActionOpenURL:
		title += " ↗"
	case ActionShowCard:
		title += " ▾"
	}

	color := r.p.Accent
	switch strings.ToLower(a.Style) {
	case "positive":
		color = r.p.Good
	case "destructive":
		color = r.p.Attention
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color).
		Padding(0, 1).
		Render(runewidth.Truncate(title, max(width-4, 1), "…"))
}

// =============================================================================
// INPUTS
// =============================================================================

func (r renderer) label(label string, width int) string {
	if label == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(r.p.Text).Bold(true).
		Render(runewidth.Truncate(label, width, "…")) + "\n"
}

func (r renderer) field(value, placeholder string, width, height int) string {
	inner := width - 4
	if inner < 1 {
		inner = 1
	}
	var lines []string
	if value != "" {
		lines = r.wrap([]span{{text: value, style: r.text()}}, inner)
	} else {
		lines = []string{r.subtle().Render(runewidth.Truncate(placeholder, inner, "…"))}
	}
	lines = clampLines(lines, max(height, 1))
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(r.p.Subtle).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}

func (r renderer) inputText(e *InputText, width int) string {
	height := 1
	if e.IsMultiline {
		height = 3
	}
	return r.label(e.Label, width) + r.field(e.Value, e.Placeholder, width, height)
}

func (r renderer) inputNumber(e *InputNumber, width int) string {
	value := ""
	if e.Value != nil {
		value = strconv.FormatFloat(*e.Value, 'f', -1, 64)
	}
	placeholder := e.Placeholder
	if e.Min != nil || e.Max != nil {
		lo, hi := "", ""
		if e.Min != nil {
			lo = strconv.FormatFloat(*e.Min, 'f', -1, 64)
		}
		if e.Max != nil {
			hi = strconv.FormatFloat(*e.Max, 'f', -1, 64)
		}
		placeholder = strings.TrimSpace(fmt.Sprintf("%s (%s..%s)", placeholder, lo, hi))
	}
	return r.label(e.Label, width) + r.field(value, placeholder, width, 1)
}

func (r renderer) inputDate(e *InputDate, width int) string {
	placeholder := e.Placeholder
	if placeholder == "" {
		placeholder = "YYYY-MM-DD"
	}
	return r.label(e.Label, width) + r.field(e.Value, placeholder, width, 1)
}

func (r renderer) inputToggle(e *InputToggle, width int) string {
	box := "[ ] "
	if e.Checked() {
		box = "[x] "
	}
	lines := r.wrap([]span{{text: box + e.Title, style: r.text()}}, width)
	return r.label(e.Label, width) + strings.Join(lines, "\n")
}

func (r renderer) inputChoiceSet(e *InputChoiceSet, width int) string {
	if !e.IsMultiSelect && strings.ToLower(e.Style) != "expanded" {
		shown := ""
		for _, c := range e.Choices {
			if e.Selected(c.Value) {
				shown = c.Title
				break
			}
		}
		placeholder := e.Placeholder
		if placeholder == "" {
			placeholder = "Select"
		}
		if shown == "" {
			return r.label(e.Label, width) + r.field("", placeholder+" ▾", width, 1)
		}
		return r.label(e.Label, width) + r.field(shown+" ▾", "", width, 1)
	}

	on, off := "(•) ", "( ) "
	if e.IsMultiSelect {
		on, off = "[x] ", "[ ] "
	}
	var lines []string
	for _, c := range e.Choices {
		mark := off
		if e.Selected(c.Value) {
			mark = on
		}
		lines = append(lines, r.wrap([]span{{text: mark + c.Title, style: r.text()}}, width)...)
	}
	return r.label(e.Label, width) + strings.Join(lines, "\n")
}

// =============================================================================
// LAYOUT HELPERS
// =============================================================================

func wideSpacing(spacing string) bool {
	switch spacing {
	case "medium", "large", "extralarge", "padding":
		return true
	}
	return false
}

func clampLines(lines []string, maxLines int) []string {
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	lines[maxLines-1] += "…"
	return lines
}

func alignLines(lines []string, width int, align string) string {
	var pos lipgloss.Position
	switch align {
	case "center":
		pos = lipgloss.Center
	case "right":
		pos = lipgloss.Right
	default:
		return strings.Join(lines, "\n")
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = lipgloss.PlaceHorizontal(width, pos, l)
	}
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
