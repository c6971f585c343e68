// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// renderCode draws a CodeBlock as a bordered, line-numbered snippet.
func (r renderer) renderCode(e *CodeBlock, width int) string {
	code := strings.TrimRight(e.CodeSnippet, "\n")
	lines := strings.Split(highlightCode(code, e.Language, r.p.CodeStyle), "\n")

	start := e.StartLineNumber
	if start < 1 {
		start = 1
	}
	numWidth := len(fmt.Sprint(start + len(lines) - 1))
	lineNum := lipgloss.NewStyle().Foreground(r.p.Subtle).Width(numWidth).Align(lipgloss.Right).MarginRight(1)

	var b strings.Builder
	if e.Language != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(r.p.Subtle).Bold(true).Render(e.Language))
		b.WriteString("\n")
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(lineNum.Render(fmt.Sprint(start + i)))
		b.WriteString(line)
	}

	inner := width - 4
	if inner < 1 {
		inner = 1
	}
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(r.p.Border).
		Padding(0, 1)

	// Code is not wrapped; long lines are clipped to the card width.
	return box.Render(lipgloss.NewStyle().MaxWidth(inner).Render(b.String()))
}

// highlightCode applies syntax highlighting using chroma. It returns the
// code unchanged when no highlighting can be applied.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
