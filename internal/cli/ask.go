// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/conversation"
	"github.com/jeranaias/cardchat-tui/internal/render"
)

// maxStdinPrompt caps a prompt piped through stdin (1MB).
const maxStdinPrompt = 1 << 20

func newAskCmd(g *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask a single question",
		Long: `Send one message and print the reply. The reply streams as it arrives;
on a terminal it is then redrawn as a card or as rendered Markdown.

With no arguments the prompt is read from stdin.`,
		Example: `  cardchat ask "What is an Adaptive Card?"
  git diff | cardchat ask
  cardchat ask --raw "Reply with a card" > card.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := askPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			env, err := setup(cmd.Context(), g, outputStderr)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireClient(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			tty := !raw && isTerminal(out)
			return runAsk(ctx, askOptions{
				client:   env.client,
				renderer: env.renderer,
				model:    env.cfg.Provider.Model,
				out:      out,
				tty:      tty,
				width:    wrapWidth(terminalWidth(out), env.cfg.UI.WordWrap),
				logger:   &env.logger,
			}, prompt)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the reply text only, never rendered")
	return cmd
}

// askPrompt joins the arguments, or reads stdin when there are none.
func askPrompt(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok && f == os.Stdin && isStdinTerminal() {
		return "", errors.New("no prompt: pass it as an argument or pipe it on stdin")
	}
	data, err := io.ReadAll(io.LimitReader(in, maxStdinPrompt))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

type askOptions struct {
	client   completion.Client
	renderer *render.Renderer
	model    string
	out      io.Writer
	tty      bool
	width    int
	logger   *zerolog.Logger
}

// runAsk performs one stateless turn.
func runAsk(ctx context.Context, opts askOptions, prompt string) error {
	s := conversation.New(conversation.Options{Model: opts.model, Logger: opts.logger})
	p := newReplyPrinter(opts.out, opts.tty, opts.width)

	reply, err := s.Exchange(ctx, opts.client, prompt, p.Text)
	if err != nil {
		p.Abort()
		if errors.Is(err, conversation.ErrEmptyInput) {
			return errors.New("empty prompt")
		}
		return err
	}
	p.Finish(opts.renderer.Render(reply, opts.width))
	return nil
}

// wrapWidth applies the configured word wrap to the terminal width.
func wrapWidth(cols, wordWrap int) int {
	if wordWrap > 0 && wordWrap < cols {
		return wordWrap
	}
	return cols
}
