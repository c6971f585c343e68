// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package card

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// span is a run of text sharing one style.
type span struct {
	text  string
	style lipgloss.Style
}

// wrap word-wraps styled spans to width display cells. Words wider than
// the line are broken. Explicit newlines start a new line. Trailing spaces
// are dropped at line breaks.
func (r renderer) wrap(spans []span, width int) []string {
	if width < 1 {
		width = 1
	}

	var lines []string
	var cur strings.Builder
	curW := 0
	var pending []span // whitespace waiting for the next word
	pendingW := 0

	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curW = 0
		pending, pendingW = nil, 0
	}
	emit := func(s span, w int) {
		for _, p := range pending {
			cur.WriteString(p.style.Render(p.text))
		}
		curW += pendingW
		pending, pendingW = nil, 0
		cur.WriteString(s.style.Render(s.text))
		curW += w
	}

	for _, s := range spans {
		for _, tok := range tokenize(s.text) {
			switch {
			case tok == "\n":
				flush()
			case isSpace(tok):
				if curW > 0 {
					pending = append(pending, span{text: tok, style: s.style})
					pendingW += runewidth.StringWidth(tok)
				}
			default:
				w := runewidth.StringWidth(tok)
				if curW > 0 && curW+pendingW+w > width {
					flush()
				}
				for w > width {
					head := runewidth.Truncate(tok, width, "")
					if head == "" {
						break
					}
					if curW > 0 {
						flush()
					}
					emit(span{text: head, style: s.style}, runewidth.StringWidth(head))
					flush()
					tok = strings.TrimPrefix(tok, head)
					w = runewidth.StringWidth(tok)
				}
				if tok != "" {
					emit(span{text: tok, style: s.style}, w)
				}
			}
		}
	}
	if curW > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

// tokenize splits s into words, whitespace runs and single newlines.
func tokenize(s string) []string {
	var toks []string
	start := 0
	kind := 0 // 0 none, 1 word, 2 space
	for i, ch := range s {
		if ch == '\n' {
			if kind != 0 {
				toks = append(toks, s[start:i])
			}
			toks = append(toks, "\n")
			kind = 0
			start = i + 1
			continue
		}
		k := 1
		if unicode.IsSpace(ch) {
			k = 2
		}
		if k != kind {
			if kind != 0 {
				toks = append(toks, s[start:i])
			}
			start = i
			kind = k
		}
	}
	if kind != 0 {
		toks = append(toks, s[start:])
	}
	return toks
}

func isSpace(tok string) bool {
	return strings.TrimSpace(tok) == ""
}
