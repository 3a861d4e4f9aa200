// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import "strings"

// =============================================================================
// CHANGE MOOD
// =============================================================================

const (
	// ChangeMoodName is the tool name the model calls.
	ChangeMoodName = "changeMood"

	// InstructionArg is the single changeMood argument.
	InstructionArg = "new_system_instruction"

	changeMoodDescription = "the bot can change his mood according to the conversation, " +
		"use it only if you need to change your mood once the conversation refer to it. " +
		"you need to pass full system instruction that instruct the bot to the new behaviour with the new mood"
)

// ChangeMoodInput is the changeMood argument object.
type ChangeMoodInput struct {
	NewSystemInstruction string `json:"new_system_instruction,omitempty" jsonschema_description:"The full new system instruction describing the bot's behaviour in the new mood."`
}

// ChangeMood is the changeMood declaration.
var ChangeMood = define[ChangeMoodInput](ChangeMoodName, changeMoodDescription)

// Manifest returns the tools offered on the first leg of every relay.
func Manifest() []Tool {
	return []Tool{ChangeMood}
}

// MoodInstruction extracts a usable instruction from changeMood arguments.
// It reports false when the argument is missing, not a string, or blank.
func MoodInstruction(args map[string]any) (string, bool) {
	raw, ok := args[InstructionArg]
	if !ok {
		return "", false
	}
	text, ok := raw.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
