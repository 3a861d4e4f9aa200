// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools declares the tools offered to the model.
//
// There is exactly one: changeMood, which lets the model replace the bot's
// persona mid-conversation. Its input schema is derived from ChangeMoodInput
// with invopop/jsonschema, and each gateway converts the neutral Tool value
// into its provider's declaration type.
//
// # Key Types
//
//   - Tool: name, description and parameter list
//   - Parameter: one flattened top-level schema property
//   - ChangeMoodInput: the changeMood argument struct
//
// # Usage
//
//	manifest := tools.Manifest()
//	text, ok := tools.MoodInstruction(call.Args)
package tools
