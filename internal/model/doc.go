// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// A conversation is owned by the caller: the browser resends the full history
// on every request and the server never stores it beyond the request.
//
// # Key Types
//
//   - Turn: Single message attributed to the user or the model
//   - Conversation: Ordered list of turns
//   - WireTurn: JSON shape used by the chat endpoint ({role, parts:[{text}]})
//   - Role: Turn role enumeration (user, model)
//
// # Usage
//
// Decode the caller's history and build the outbound conversation:
//
//	history, err := model.FromWire(req.History)
//	if err != nil {
//	    return err
//	}
//	conv := model.Compose(persona, history, req.Message)
package model
