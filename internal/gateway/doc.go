// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway streams model replies from hosted LLM APIs.
//
// Every provider implements Gateway. Stream returns a pull-style sequence of
// events: text fragments in arrival order and complete tool calls. Network
// I/O is lazy, so a failure to reach the API surfaces as the first error of
// the sequence rather than from Stream itself.
//
// # Providers
//
//   - gemini: Google Gemini through google.golang.org/genai (default)
//   - anthropic: Claude through the Messages streaming API
//   - openai: any OpenAI-compatible chat-completions endpoint
//
// # Key Types
//
//   - Gateway: provider interface
//   - Event: Text fragment or ToolCall
//   - Request: model, conversation, optional tool manifest
//   - Config: provider selection and credentials
//
// # Usage
//
//	gw, err := gateway.New(ctx, gateway.Config{Provider: "gemini", APIKey: key})
//	seq, err := gw.Stream(ctx, gateway.Request{Conversation: conv, Tools: tools.Manifest()})
//	for ev, err := range seq {
//	    ...
//	}
package gateway
