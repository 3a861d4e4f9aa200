// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/jeranaias/moodchat/internal/model"
	"github.com/jeranaias/moodchat/internal/tools"
)

// =============================================================================
// PROVIDERS
// =============================================================================

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Default models per provider.
const (
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// DefaultMaxTokens caps providers that require an output limit.
const DefaultMaxTokens = 1024

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderGemini, ProviderAnthropic, ProviderOpenAI}
}

// DefaultModel returns the default model id for provider.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return DefaultGeminiModel
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoCredential is returned by Stream when no API key is configured.
	ErrNoCredential = errors.New("no API key configured")
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind discriminates Event.
type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventToolCall:
		return "tool_call"
	default:
		return "unknown"
	}
}

// ToolCall is a complete tool invocation requested by the model.
// Args is nil when the model sent arguments that are not a JSON object.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Event is one item of a model stream.
type Event struct {
	Kind EventKind
	Text string
	Call ToolCall
}

// TextEvent returns a text fragment event.
func TextEvent(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// CallEvent returns a tool call event.
func CallEvent(name string, args map[string]any) Event {
	return Event{Kind: EventToolCall, Call: ToolCall{Name: name, Args: args}}
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is a single streaming generation request.
type Request struct {
	// Model overrides the gateway's configured model when set
	Model string

	// Conversation is sent in order; the persona is its first user turn
	Conversation model.Conversation

	// Tools offered to the model; empty means no tool manifest
	Tools []tools.Tool

	// ResponseMIMEType requests a response format where supported
	ResponseMIMEType string
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway streams a model reply.
type Gateway interface {
	// Stream starts a generation. The returned sequence must be consumed or
	// abandoned; breaking out of the range releases the connection.
	Stream(ctx context.Context, req Request) (iter.Seq2[Event, error], error)

	// Configured reports whether a credential is available.
	Configured() bool

	// Provider returns the provider name.
	Provider() string

	// Model returns the default model id.
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// withDefaults fills in the provider-specific defaults.
func (c Config) withDefaults() Config {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// New creates the gateway for cfg.Provider. A missing API key is not an
// error: the gateway reports Configured() == false and refuses to stream.
func New(ctx context.Context, cfg Config) (Gateway, error) {
	cfg = cfg.withDefaults()
	switch cfg.Provider {
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(Providers(), ", "))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// modelFor returns the request model or the gateway default.
func modelFor(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}

// parseArgs decodes tool arguments. Anything that is not a JSON object
// yields nil.
func parseArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}
