// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered sequence of turns.
type Conversation []Turn

// FromWire validates and converts the caller's history. History length is
// not capped here; the server's body limit bounds it.
// Returns an error naming the offending index when a role is unknown.
func FromWire(history []WireTurn) (Conversation, error) {
	conv := make(Conversation, 0, len(history))
	for i, w := range history {
		role, err := ParseRole(w.Role)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		conv = append(conv, Turn{Role: role, Text: w.Text()})
	}
	return conv, nil
}

// Compose builds the outbound conversation: one leading user turn carrying the
// persona, the caller's history unchanged, then the new message.
// The history slice is never modified.
func Compose(persona string, history Conversation, message string) Conversation {
	conv := make(Conversation, 0, len(history)+2)
	conv = append(conv, UserTurn(persona))
	conv = append(conv, history...)
	conv = append(conv, UserTurn(message))
	return conv
}

// ToWire converts the conversation to its wire shape.
func (c Conversation) ToWire() []WireTurn {
	out := make([]WireTurn, len(c))
	for i, t := range c {
		out[i] = t.ToWire()
	}
	return out
}

// Len returns the number of turns.
func (c Conversation) Len() int {
	return len(c)
}

// Last returns the last turn, or false if the conversation is empty.
func (c Conversation) Last() (Turn, bool) {
	if len(c) == 0 {
		return Turn{}, false
	}
	return c[len(c)-1], true
}
