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

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/conversation"
	"github.com/jeranaias/cardchat-tui/internal/model"
	"github.com/jeranaias/cardchat-tui/internal/render"
	"github.com/jeranaias/cardchat-tui/internal/ui/styles"
	"github.com/jeranaias/cardchat-tui/internal/util"
)

const replPrompt = "you> "

const replHelp = `Commands:
  /help     show this help
  /theme    switch between light and dark rendering
  /model    show the model, or /model NAME to switch for the next turns
  /quit     leave (also: exit, quit, Ctrl+D)

Ctrl+C while a reply is streaming stops the reply.`

// lineReader is the subset of *liner.State the loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

func newREPLCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"chat"},
		Short:   "Line-mode conversation",
		Long: `Start a conversation without the full-screen interface. Each reply
streams as it arrives and is redrawn as a card or rendered Markdown when
complete. History is kept in memory for the session only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd.Context(), g, outputStderr)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireClient(); err != nil {
				return err
			}

			line := liner.NewLiner()
			line.SetCtrlCAborts(true)

			out := cmd.OutOrStdout()
			return runREPL(cmd.Context(), replOptions{
				client:    env.client,
				renderer:  env.renderer,
				model:     env.cfg.Provider.Model,
				out:       out,
				tty:       isTerminal(out),
				width:     wrapWidth(terminalWidth(out), env.cfg.UI.WordWrap),
				showStats: env.cfg.UI.ShowStats,
				logger:    &env.logger,
			}, line)
		},
	}
}

type replOptions struct {
	client    completion.Client
	renderer  *render.Renderer
	model     string
	out       io.Writer
	tty       bool
	width     int
	showStats bool
	logger    *zerolog.Logger
}

// runREPL reads lines until EOF, Ctrl+C at the prompt or /quit. Failed
// turns are reported and the loop continues; nothing is retried.
func runREPL(ctx context.Context, opts replOptions, in lineReader) error {
	defer in.Close()

	s := conversation.New(conversation.Options{Model: opts.model, Logger: opts.logger})
	theme := opts.renderer.Theme()
	out := opts.out

	fmt.Fprintf(out, "%s %s\n", theme.HeaderTitle.Render("cardchat"),
		theme.HeaderSubtitle.Render("| "+opts.client.Name()+" / "+opts.model+" | /help for commands"))

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := in.Prompt(replPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				printSummary(out, theme, s)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		in.AppendHistory(input)

		switch strings.ToLower(input) {
		case "/quit", "/exit", "exit", "quit":
			printSummary(out, theme, s)
			return nil
		case "/help":
			fmt.Fprintln(out, replHelp)
			continue
		case "/theme":
			theme = theme.Toggle()
			opts.renderer.SetTheme(theme)
			fmt.Fprintln(out, theme.StatusOK.Render(string(theme.Mode())+" theme"))
			continue
		}
		if name, ok := modelCommand(input); ok {
			if name == "" {
				fmt.Fprintln(out, s.Model())
			} else {
				s.SetModel(name)
				fmt.Fprintln(out, theme.StatusOK.Render("model "+name))
			}
			continue
		}
		if strings.HasPrefix(input, "/") {
			fmt.Fprintf(out, "%s unknown command %s (try /help)\n", theme.StatusWarn.Render("[?]"), input)
			continue
		}

		p := newReplyPrinter(out, opts.tty, opts.width)
		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		reply, err := s.Exchange(turnCtx, opts.client, input, p.Text)
		stop()
		if err != nil {
			p.Abort()
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, theme.StatusWarn.Render("[Cancelled]"))
			} else {
				fmt.Fprintf(out, "%s %s\n", theme.StatusError.Render("[Error]"), util.FirstLine(err.Error()))
			}
			continue
		}

		p.Finish(opts.renderer.Render(reply, opts.width))
		if opts.showStats && reply.Stats != nil {
			fmt.Fprintln(out, theme.Timestamp.Render(reply.Stats.Format()))
		}
	}
}

// modelCommand parses "/model" and "/model NAME".
func modelCommand(input string) (name string, ok bool) {
	fields := strings.Fields(input)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "/model") || len(fields) > 2 {
		return "", false
	}
	if len(fields) == 2 {
		name = fields[1]
	}
	return name, true
}

func printSummary(out io.Writer, theme *styles.Theme, s *conversation.Session) {
	conv := s.Conversation()
	n := conv.Len()
	if n == 0 {
		return
	}
	replies := conv.CountByRole(model.RoleAssistant)
	fmt.Fprintln(out, theme.Timestamp.Render(fmt.Sprintf("%d %s this session (%d %s)",
		n, pluralize(n, "message"), replies, pluralize(replies, "reply", "replies"))))
}

func pluralize(n int, one string, many ...string) string {
	if n == 1 {
		return one
	}
	if len(many) > 0 {
		return many[0]
	}
	return one + "s"
}
