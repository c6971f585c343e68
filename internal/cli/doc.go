// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires configuration, logging, the completion backend and the
// renderer into the cardchat commands.
//
// Commands:
//
//	cardchat               full-screen chat (default)
//	cardchat ask PROMPT    one question, answer on stdout
//	cardchat repl          line-mode conversation
//	cardchat models        models the backend offers
//	cardchat config ...    path, show, get, set, init
//	cardchat version
//
// Global flags (--config, --provider, --model, --theme, --log-file,
// --log-level) override the config file and environment.
package cli
