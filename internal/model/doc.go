// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Role: who authored a message (user or assistant)
//   - Message: one finalized entry of the conversation; never mutated after append
//   - Conversation: ordered, unbounded list of messages in display order
//   - Accumulator: scratch buffer for the assistant reply that is still streaming
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Hello!"))
//
//	var acc model.Accumulator
//	acc.Append("Hel")
//	acc.Append("lo")
//	conv.Append(model.NewAssistantMessage(acc.Take()))
package model
