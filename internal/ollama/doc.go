// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides a completion.Client backed by a local Ollama server.
//
// Ollama streams /api/chat responses as newline-delimited JSON objects; the
// final object carries "done": true. Client.Stream wraps that body in a
// completion.Stream so the conversation core never sees Ollama types.
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: "http://127.0.0.1:11434"})
//	if err := client.CheckModel(ctx, "llama3"); err != nil {
//	    return err
//	}
//	stream, err := client.Stream(ctx, completion.Request{Model: "llama3", Messages: msgs, Stream: true})
package ollama
