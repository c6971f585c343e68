// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cardchat-tui/internal/model"
	"github.com/jeranaias/cardchat-tui/internal/render"
	"github.com/jeranaias/cardchat-tui/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header + messages (viewport) + input + status bar + help.
// The viewport height is fixed by layout() from the same components.
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
		m.renderHelp(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	const title = "cardchat"

	var parts []string
	if m.client != nil {
		parts = append(parts, m.client.Name())
	}
	if name := m.session.Model(); name != "" {
		parts = append(parts, name)
	}
	subtitle := ""
	if len(parts) > 0 {
		subtitle = util.TruncateWidth(" | "+strings.Join(parts, " / "), m.width-2-len(title))
	}

	line := m.theme.HeaderTitle.Render(title) + m.theme.HeaderSubtitle.Render(subtitle)
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders every finalized message followed by the reply in
// progress. Finalized messages go through the renderer cache.
func (m Model) renderMessages() string {
	msgs := m.session.Messages()
	if m.session.Conversation().IsEmpty() && !m.session.Busy() {
		return m.renderEmptyState()
	}

	width := m.contentWidth()
	blocks := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	if m.session.Busy() {
		blocks = append(blocks, m.renderStreaming(width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	d := m.renderer.Render(msg, width)

	if msg.Role == model.RoleUser {
		label := m.theme.UserLabel.Render(msg.Role.DisplayName())
		if m.ui.ShowTimestamps {
			label = m.theme.Timestamp.Render(formatTimestamp(msg.Timestamp)+" ") + label
		}
		header := lipgloss.PlaceHorizontal(width, lipgloss.Right, label)
		return header + "\n" + d.View
	}

	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	if m.ui.ShowTimestamps {
		label += m.theme.Timestamp.Render(" " + formatTimestamp(msg.Timestamp))
	}

	body := d.View
	if d.Kind == render.KindEmpty {
		// Invalid cards occupy a blank region.
		body = m.theme.EmptyRegion.Render("")
	}

	out := label + "\n" + body
	if m.ui.ShowStats && msg.Stats != nil {
		out += "\n" + m.theme.Timestamp.Render(msg.Stats.Format())
	}
	return out
}

// renderStreaming shows the raw accumulated reply. It is only classified
// and rendered once the stream completes.
func (m Model) renderStreaming(width int) string {
	label := m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()) + " " + m.spinner.View()

	text := m.session.Streaming()
	if text == "" {
		return label + "\n" + m.theme.Timestamp.Render("Thinking...")
	}
	return label + "\n" + m.renderer.RenderStreaming(text, width)
}

func (m Model) renderEmptyState() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var sb strings.Builder
	sb.WriteString(center.Render(m.theme.HeaderTitle.Render("Welcome to cardchat")))
	sb.WriteString("\n\n")
	sb.WriteString(center.Render(m.theme.HeaderSubtitle.Render("Replies that are Adaptive Cards render as cards; everything else as Markdown.")))
	sb.WriteString("\n\n")

	tips := []struct {
		key  string
		desc string
	}{
		{"Enter", "send the message"},
		{"Alt+Enter", "insert a new line"},
		{"Esc", "stop a reply"},
		{"Ctrl+T", "switch light/dark"},
	}
	for _, tip := range tips {
		line := fmt.Sprintf("%s  %s",
			m.theme.ShortcutKey.Render(fmt.Sprintf("%-10s", tip.key)),
			m.theme.ShortcutDsc.Render(tip.desc))
		sb.WriteString(center.Render(line))
		sb.WriteString("\n")
	}

	return lipgloss.NewStyle().Padding(1, 0).Render(sb.String())
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInput renders the input box with the send hint under it. The hint
// is dimmed while the box is empty or a reply is streaming.
func (m Model) renderInput() string {
	box := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())

	hintStyle := m.theme.SendEnabled
	if m.session.Busy() || strings.TrimSpace(m.input.Value()) == "" {
		hintStyle = m.theme.SendDisabled
	}
	hint := lipgloss.PlaceHorizontal(m.width, lipgloss.Right, hintStyle.Render("Enter to send "))

	return box + "\n" + hint
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	n := len(m.session.Messages())
	right := fmt.Sprintf("%d %s | %s", n, plural(n, "message"), m.theme.Mode())

	inner := m.width - 2
	room := inner - lipgloss.Width(right) - 1

	var left string
	switch {
	case m.status != "":
		style := m.theme.StatusOK
		switch m.statusLevel {
		case statusWarn:
			style = m.theme.StatusWarn
		case statusError:
			style = m.theme.StatusError
		}
		left = style.Render(util.TruncateWidth(m.status, room))
	case m.session.Busy():
		left = m.spinner.View() + " " + util.TruncateWidth("Streaming...", room-2)
	default:
		ready := "Ready"
		if m.ui.ShowStats {
			if last := m.session.Conversation().LastByRole(model.RoleAssistant); last != nil && last.Stats != nil {
				ready += " | last reply " + last.Stats.Format()
			}
		}
		left = util.TruncateWidth(ready, room)
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	return m.help.View(m.keyMap)
}
