// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the state machine behind a chat session: the
// ordered message list, the busy flag and the scratch accumulator for the
// reply that is streaming in.
//
// A Session is driven by events and owns no goroutines. The TUI feeds it
// from Bubble Tea's Update loop; the line-mode front ends call Exchange,
// which runs one whole turn synchronously. Either way every mutation happens
// on the caller's goroutine, so a Session is not safe for concurrent use.
//
// Each Submit starts a new turn with its own ID. Events that carry a stale
// turn ID (a stream that outlived a cancel) are ignored.
package conversation
