// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cardchat-tui/internal/config"
	"github.com/jeranaias/cardchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	provider   string
	model      string
	theme      string
	logFile    string
	logLevel   string
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the full-screen chat.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "cardchat",
		Short: "Terminal chat that renders replies as Adaptive Cards or Markdown",
		Long: `cardchat streams replies from an OpenAI-compatible service or a local
Ollama server. A reply that is an Adaptive Card JSON document is drawn as a
card; anything else is rendered as Markdown.

Examples:
  cardchat                                # full-screen chat
  cardchat ask "Summarize RFC 9110"       # one question
  cardchat --provider ollama -m llama3    # chat against a local model
  cardchat config set ui.theme light`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), g)
		},
	}
	root.SetVersionTemplate("cardchat {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (default ~/.cardchat/config.toml)")
	pf.StringVar(&g.provider, "provider", "", "Completion backend: openai or ollama")
	pf.StringVarP(&g.model, "model", "m", "", "Model name sent with every request")
	pf.StringVar(&g.theme, "theme", "", "Color theme: dark, light or auto")
	pf.StringVar(&g.logFile, "log-file", "", "Write logs to this file")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(newAskCmd(g))
	root.AddCommand(newREPLCmd(g))
	root.AddCommand(newModelsCmd(g))
	root.AddCommand(newConfigCmd(g))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// runTUI starts the Bubble Tea program. The TUI owns the terminal, so logs
// always go to a file.
func runTUI(ctx context.Context, g *globalFlags) error {
	env, err := setup(ctx, g, outputFile)
	if err != nil {
		return err
	}
	defer env.Close()

	watcher := env.watchConfig()
	if watcher != nil {
		defer watcher.Close()
	}

	m := chat.New(chat.Options{
		Client:   env.client,
		Renderer: env.renderer,
		Theme:    env.theme,
		Model:    env.cfg.Provider.Model,
		UI:       env.cfg.UI,
		Watcher:  watcher,
		Logger:   &env.logger,
		Notice:   env.notice(),
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// watchConfig starts a watcher on the active config file. Failure only
// disables live reload.
func (e *appEnv) watchConfig() *config.Watcher {
	if e.cfgPath == "" {
		return nil
	}
	w, err := config.Watch(e.cfgPath, config.DefaultDebounce, &e.logger)
	if err != nil {
		e.logger.Warn().Err(err).Str("path", e.cfgPath).Msg("config watch disabled")
		return nil
	}
	return w
}
