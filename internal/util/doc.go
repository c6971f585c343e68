// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by cardchat packages.
//
//   - AtomicWriteFile: crash-safe file writes, used for config files
//   - TruncateWidth: display-width aware truncation for status lines
//   - FirstLine: one-line previews of multi-line text
package util
