// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cardchat-tui/internal/completion"
	"github.com/jeranaias/cardchat-tui/internal/config"
	"github.com/jeranaias/cardchat-tui/internal/logging"
	"github.com/jeranaias/cardchat-tui/internal/render"
	"github.com/jeranaias/cardchat-tui/internal/ui/styles"
	"github.com/jeranaias/cardchat-tui/internal/util"
)

// logOutput selects where a command's logs go when the config names no
// log file.
type logOutput int

const (
	// outputFile writes to ~/.cardchat/cardchat.log; the TUI owns the screen.
	outputFile logOutput = iota
	// outputStderr writes warnings and worse to stderr.
	outputStderr
)

// appEnv is everything a front end needs, built once per command.
type appEnv struct {
	cfg *config.Config
	// cfgPath is the config file in use, or "" when running on defaults.
	cfgPath string

	logger zerolog.Logger
	closer io.Closer

	// client is nil when the backend is not configured.
	client completion.Client
	// backendErr is set when the backend failed its startup check.
	backendErr error

	theme    *styles.Theme
	renderer *render.Renderer
}

// setup loads config, opens the log and builds the backend and renderer.
// A backend that fails its startup check is kept; the failure is recorded
// in backendErr for the front end to report.
func setup(ctx context.Context, g *globalFlags, out logOutput) (*appEnv, error) {
	cfg, path, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logger, closer, err := newLogger(cfg, g, out)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	log := logging.Component(logger, "cli")

	client, err := newClient(cfg, &logger)
	if errors.Is(err, completion.ErrNotConfigured) {
		log.Warn().Err(err).Str("provider", cfg.Provider.Kind).Msg("completion backend not configured")
		client = nil
	} else if err != nil {
		closer.Close()
		return nil, err
	}

	var backendErr error
	if client != nil {
		checkCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Provider.TimeoutSecs)*time.Second)
		backendErr = checkBackend(checkCtx, client, cfg.Provider.Model)
		cancel()
		if backendErr != nil {
			log.Warn().Err(backendErr).Str("provider", cfg.Provider.Kind).Msg("backend check failed")
		}
	}

	// Validated by loadConfig.
	mode, _ := styles.ParseMode(cfg.UI.Theme)
	theme := styles.NewTheme(mode)

	renderer := render.New(render.Options{
		Theme:         theme,
		MarkdownStyle: cfg.UI.MarkdownStyle,
		Logger:        &logger,
	})

	log.Info().
		Str("provider", cfg.Provider.Kind).
		Str("model", cfg.Provider.Model).
		Str("config", path).
		Msg("starting")

	return &appEnv{
		cfg:        cfg,
		cfgPath:    path,
		logger:     logger,
		closer:     closer,
		client:     client,
		backendErr: backendErr,
		theme:      theme,
		renderer:   renderer,
	}, nil
}

// Close releases the log file.
func (e *appEnv) Close() error {
	return e.closer.Close()
}

// requireClient fails with a hint when no backend could be built or the
// backend failed its startup check.
func (e *appEnv) requireClient() error {
	if e.client == nil {
		return fmt.Errorf("%w: set OPENAI_API_KEY or use --provider ollama", completion.ErrNotConfigured)
	}
	return e.backendErr
}

// notice is the startup warning for the TUI, or "".
func (e *appEnv) notice() string {
	if e.client == nil {
		return "No backend configured: set OPENAI_API_KEY or use --provider ollama"
	}
	if e.backendErr != nil {
		return util.FirstLine(e.backendErr.Error())
	}
	return ""
}

// loadConfig reads --config or the default location and applies the
// global flags on top. It returns the path of the file in use, or "" when
// no file exists.
func loadConfig(g *globalFlags) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if g.configPath != "" {
		path = g.configPath
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		if err == nil {
			path, err = config.ActivePath()
			if _, statErr := os.Stat(path); statErr != nil {
				path = ""
			}
		}
	}
	if err != nil {
		return nil, "", err
	}

	if applyFlags(cfg, g) {
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid flags: %w", err)
		}
	}
	return cfg, path, nil
}

// applyFlags copies set flags into cfg and reports whether any were set.
// Switching provider without --model drops the old provider's default
// model so SetDefaults picks the new one's.
func applyFlags(cfg *config.Config, g *globalFlags) bool {
	if g.provider != "" && g.model == "" && cfg.Provider.Model == config.DefaultModelFor(cfg.Provider.Kind) {
		cfg.Provider.Model = ""
	}
	changed := false
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
			changed = true
		}
	}
	set(&cfg.Provider.Kind, g.provider)
	set(&cfg.Provider.Model, g.model)
	set(&cfg.UI.Theme, g.theme)
	set(&cfg.Log.Level, g.logLevel)
	set(&cfg.Log.File, g.logFile)
	return changed
}

func newLogger(cfg *config.Config, g *globalFlags, out logOutput) (zerolog.Logger, io.Closer, error) {
	opts := logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.Log.File,
	}
	if opts.Path == "" {
		switch out {
		case outputFile:
			path, err := config.DefaultLogPath()
			if err != nil {
				return zerolog.Nop(), nil, err
			}
			opts.Path = path
		case outputStderr:
			opts.Writer = os.Stderr
			opts.Format = "console"
			if g.logLevel == "" {
				opts.Level = "warn"
			}
		}
	}
	return logging.New(opts)
}
