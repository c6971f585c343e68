// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/jeranaias/cardchat-tui/internal/render"
)

// replyPrinter streams raw reply text as it arrives. On a terminal the raw
// text is erased once the reply is complete and replaced by its rendered
// form; elsewhere the raw text is the final output.
type replyPrinter struct {
	out   io.Writer
	tty   bool
	width int
	raw   strings.Builder
}

func newReplyPrinter(out io.Writer, tty bool, width int) *replyPrinter {
	if width <= 0 {
		width = defaultTerminalWidth
	}
	return &replyPrinter{out: out, tty: tty, width: width}
}

// Text writes one fragment.
func (p *replyPrinter) Text(s string) {
	p.raw.WriteString(s)
	fmt.Fprint(p.out, s)
}

// Finish ends the reply with its rendered form.
func (p *replyPrinter) Finish(d render.Displayable) {
	if !p.tty {
		p.endLine()
		return
	}

	if p.raw.Len() > 0 {
		o := termenv.NewOutput(p.out)
		o.ClearLines(rows(p.raw.String(), p.width) - 1)
		fmt.Fprint(p.out, "\r")
	}
	if view := strings.TrimRight(d.View, "\n"); view != "" {
		fmt.Fprintln(p.out, view)
	}
	p.raw.Reset()
}

// Abort ends a reply that failed part way. The partial text stays visible.
func (p *replyPrinter) Abort() {
	p.endLine()
}

func (p *replyPrinter) endLine() {
	if p.raw.Len() > 0 && !strings.HasSuffix(p.raw.String(), "\n") {
		fmt.Fprintln(p.out)
	}
	p.raw.Reset()
}

// rows counts the terminal rows s occupies when wrapped at width.
func rows(s string, width int) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		w := runewidth.StringWidth(line)
		if w == 0 {
			n++
			continue
		}
		n += (w + width - 1) / width
	}
	return n
}
