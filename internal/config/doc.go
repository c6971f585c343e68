// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for cardchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ProviderConfig: which completion backend to talk to and how
//   - UIConfig: theme and rendering settings, hot-reloadable
//   - LogConfig: zerolog level, format and destination
//   - Watcher: reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the caller through Set)
//   - Environment variables (CARDCHAT_*, OPENAI_API_KEY)
//   - ~/.cardchat/config.toml
//   - ~/.cardchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	_ = cfg.Set("provider.model", "llama3.2")
package config
