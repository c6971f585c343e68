// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog loggers used across cardchat.
//
// The TUI owns the terminal, so it logs to a file; the line-mode commands
// log to stderr. Components receive the logger by injection and tag their
// events with a "component" field.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Format is "json" or "console"; empty means json.
	Format string
	// Path appends to a file when set. Takes precedence over Writer.
	Path string
	// Writer receives output when Path is empty; nil means os.Stderr.
	Writer io.Writer
}

// New constructs a logger from opts. The returned closer releases the log
// file, if one was opened, and must be called on shutdown.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := strings.ToLower(strings.TrimSpace(opts.Level))
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("log level: %w", err)
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if opts.Writer != nil {
		out = opts.Writer
	}
	if opts.Path != "" {
		f, err := openLogFile(opts.Path)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		out, closer = f, f
	}

	var base zerolog.Logger
	switch strings.ToLower(opts.Format) {
	case "", "json":
		base = zerolog.New(out)
	case "console":
		base = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.Path != "",
		})
	default:
		closer.Close()
		return zerolog.Nop(), nopCloser{}, errors.New("unsupported log format")
	}

	return base.With().Timestamp().Logger().Level(lvl), closer, nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
