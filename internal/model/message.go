// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole maps a wire role onto a Role.
// "assistant" is accepted as an alias of "model" so OpenAI-style clients work unchanged.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "model", "assistant":
		return RoleModel, nil
	default:
		return "", fmt.Errorf("invalid role '%s': must be one of user, model", s)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserTurn creates a turn authored by the user.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelTurn creates a turn authored by the model.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

// Part is a single text part of a wire turn.
type Part struct {
	Text string `json:"text"`
}

// WireTurn is the JSON shape of a history entry sent by the chat UI.
type WireTurn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text joins all parts of the wire turn in order.
func (w WireTurn) Text() string {
	if len(w.Parts) == 1 {
		return w.Parts[0].Text
	}
	var sb strings.Builder
	for _, p := range w.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// ToWire converts a turn back to its wire shape.
func (t Turn) ToWire() WireTurn {
	return WireTurn{
		Role:  t.Role.String(),
		Parts: []Part{{Text: t.Text}},
	}
}
