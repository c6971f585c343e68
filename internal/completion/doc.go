// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion defines the streaming chat-completion contract the
// conversation core depends on, plus an OpenAI-compatible backend.
//
// A Client opens a Stream for one Request. The caller pulls Fragments with
// Recv until it returns io.EOF (clean completion) or another error. Each
// Fragment carries zero or more text deltas; Fragment.Text extracts the
// delta of the first choice and treats an absent delta as "".
//
//	stream, err := client.Stream(ctx, completion.Request{
//	    Model:    "gpt-3.5-turbo",
//	    Messages: []completion.Message{{Role: "user", Content: "Hi"}},
//	    Stream:   true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	text, err := completion.Drain(ctx, stream, func(s string) { fmt.Print(s) })
package completion
