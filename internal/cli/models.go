// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/ollama"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured backend offers",
		Long: `List the models the configured backend offers. The model cardchat
sends requests to is marked with *.`,
		Example: `  cardchat models
  cardchat --provider ollama models`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd.Context(), g, outputStderr)
			if err != nil {
				return err
			}
			defer env.Close()
			// A missing model is exactly when the list is wanted, so only
			// a missing backend stops here.
			if env.client == nil {
				return env.requireClient()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(env.cfg.Provider.TimeoutSecs)*time.Second)
			defer cancel()
			return listModels(ctx, env.client, env.cfg.Provider.Model, cmd.OutOrStdout())
		},
	}
}

// listModels prints one row per model, marking current.
func listModels(ctx context.Context, client completion.Client, current string, out io.Writer) error {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				s = s.Bold(true)
			}
			return s
		})

	mark := func(name string) string {
		if name == current || name == current+":latest" {
			return "*"
		}
		return ""
	}

	n := 0
	switch c := client.(type) {
	case *ollama.Client:
		models, err := c.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("list models from %s: %w", c.GetConfig().BaseURL, err)
		}
		t.Headers("", "NAME", "SIZE", "PARAMS", "MODIFIED")
		for _, m := range models {
			modified := ""
			if !m.ModifiedAt.IsZero() {
				modified = m.ModifiedAt.Format("2006-01-02")
			}
			t.Row(mark(m.Name), m.Name, m.FormatSize(), m.Details.ParameterSize, modified)
		}
		n = len(models)

	case *completion.OpenAIClient:
		ids, err := c.ListModels(ctx)
		if err != nil {
			return err
		}
		t.Headers("", "ID")
		for _, id := range ids {
			t.Row(mark(id), id)
		}
		n = len(ids)

	default:
		return fmt.Errorf("the %s backend cannot list models", client.Name())
	}

	if n == 0 {
		fmt.Fprintln(out, "No models available.")
		return nil
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
