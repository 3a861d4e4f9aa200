// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"errors"

	"github.com/jeranaias/moodchat/internal/guard"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured means the gateway has no credential.
	ErrNotConfigured = errors.New("model gateway not configured")

	// ErrGateway means the gateway failed before producing any output.
	ErrGateway = errors.New("model gateway failed")

	// ErrStream means the relay failed after output was committed.
	ErrStream = errors.New("stream failed")
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Marker is written to the client when a mood change is honored. Clients
// match it byte for byte, so it must never change.
const Marker = "🎭 *מצב הרוח השתנה!* "

// DefaultResponseMIMEType is requested from providers that support it.
const DefaultResponseMIMEType = "text/plain"

// =============================================================================
// STATE
// =============================================================================

// State is the relay state machine position.
type State int

const (
	StateStreaming State = iota
	StateToolHandled
	StateResuming
	StateDone
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateToolHandled:
		return "tool_handled"
	case StateResuming:
		return "resuming"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary describes what a finished relay did.
type Summary struct {
	// Chars forwarded from the first leg
	Chars int

	// SecondLegChars forwarded from the mood-change leg
	SecondLegChars int

	// MoodChanged is true when a changeMood call was honored
	MoodChanged bool

	// IgnoredCalls counts tool calls that were not honored
	IgnoredCalls int

	// Trip is the first leg's guard trip reason
	Trip guard.Reason

	// SecondLegTrip is the second leg's guard trip reason
	SecondLegTrip guard.Reason

	// Transitions lists every state entered, in order
	Transitions []State
}
