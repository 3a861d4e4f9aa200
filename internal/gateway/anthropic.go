// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jeranaias/moodchat/internal/model"
	"github.com/jeranaias/moodchat/internal/tools"
)

// =============================================================================
// ANTHROPIC GATEWAY
// =============================================================================

// Anthropic streams replies from the Claude Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic gateway.
func NewAnthropic(cfg Config, opts ...option.RequestOption) *Anthropic {
	cfg = cfg.withDefaults()
	a := &Anthropic{model: cfg.Model, maxTokens: int64(cfg.MaxTokens)}
	if cfg.APIKey == "" {
		return a
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	c := anthropic.NewClient(clientOpts...)
	a.client = &c
	return a
}

// Provider returns "anthropic".
func (a *Anthropic) Provider() string { return ProviderAnthropic }

// Model returns the default model id.
func (a *Anthropic) Model() string { return a.model }

// Configured reports whether a client was created.
func (a *Anthropic) Configured() bool { return a.client != nil }

// Stream implements Gateway.
func (a *Anthropic) Stream(ctx context.Context, req Request) (iter.Seq2[Event, error], error) {
	if a.client == nil {
		return nil, ErrNoCredential
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelFor(req, a.model)),
		MaxTokens: a.maxTokens,
		Messages:  anthropicMessages(req.Conversation),
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
	}

	return func(yield func(Event, error) bool) {
		stream := a.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		acc := newToolAccumulator()
		for stream.Next() {
			for _, ev := range acc.add(stream.Current()) {
				if !yield(ev, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield(Event{}, fmt.Errorf("anthropic stream: %w", err))
		}
	}, nil
}

// =============================================================================
// STREAM ASSEMBLY
// =============================================================================

// toolAccumulator assembles tool_use blocks from input_json_delta fragments.
type toolAccumulator struct {
	names map[int64]string
	input map[int64]*strings.Builder
}

func newToolAccumulator() *toolAccumulator {
	return &toolAccumulator{
		names: make(map[int64]string),
		input: make(map[int64]*strings.Builder),
	}
}

// add consumes one stream event and returns any completed events.
func (t *toolAccumulator) add(event anthropic.MessageStreamEventUnion) []Event {
	switch ev := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if ev.ContentBlock.Type == "tool_use" {
			t.names[ev.Index] = ev.ContentBlock.Name
			t.input[ev.Index] = &strings.Builder{}
		}
	case anthropic.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if delta.Text != "" {
				return []Event{TextEvent(delta.Text)}
			}
		case anthropic.InputJSONDelta:
			if b, ok := t.input[ev.Index]; ok {
				b.WriteString(delta.PartialJSON)
			}
		}
	case anthropic.ContentBlockStopEvent:
		name, ok := t.names[ev.Index]
		if !ok {
			return nil
		}
		raw := t.input[ev.Index].String()
		delete(t.names, ev.Index)
		delete(t.input, ev.Index)
		return []Event{CallEvent(name, parseArgs(raw))}
	}
	return nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// anthropicMessages converts a conversation to Messages API params.
func anthropicMessages(conv model.Conversation) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(conv))
	for _, turn := range conv {
		block := anthropic.NewTextBlock(turn.Text)
		if turn.Role == model.RoleModel {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	return msgs
}

// anthropicTools converts the tool manifest to Messages API tool params.
func anthropicTools(list []tools.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(list))
	for _, t := range list {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.PropertyMap(),
				Required:   t.RequiredNames(),
			},
		}})
	}
	return out
}
