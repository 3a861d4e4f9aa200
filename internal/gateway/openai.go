// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jeranaias/moodchat/internal/model"
	"github.com/jeranaias/moodchat/internal/tools"
)

// =============================================================================
// OPENAI GATEWAY
// =============================================================================

// OpenAI streams replies from an OpenAI-compatible chat-completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI gateway. BaseURL may point at any compatible
// endpoint.
func NewOpenAI(cfg Config, opts ...option.RequestOption) *OpenAI {
	cfg = cfg.withDefaults()
	o := &OpenAI{model: cfg.Model}
	if cfg.APIKey == "" {
		return o
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	c := openai.NewClient(clientOpts...)
	o.client = &c
	return o
}

// Provider returns "openai".
func (o *OpenAI) Provider() string { return ProviderOpenAI }

// Model returns the default model id.
func (o *OpenAI) Model() string { return o.model }

// Configured reports whether a client was created.
func (o *OpenAI) Configured() bool { return o.client != nil }

// Stream implements Gateway.
func (o *OpenAI) Stream(ctx context.Context, req Request) (iter.Seq2[Event, error], error) {
	if o.client == nil {
		return nil, ErrNoCredential
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelFor(req, o.model)),
		Messages: openaiMessages(req.Conversation),
	}
	if len(req.Tools) > 0 {
		params.Tools = openaiTools(req.Tools)
	}

	return func(yield func(Event, error) bool) {
		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if call, ok := acc.JustFinishedToolCall(); ok {
				if !yield(CallEvent(call.Name, parseArgs(call.Arguments)), nil) {
					return
				}
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(TextEvent(choice.Delta.Content), nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			yield(Event{}, fmt.Errorf("openai stream: %w", err))
		}
	}, nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// openaiMessages converts a conversation to chat-completions messages.
func openaiMessages(conv model.Conversation) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(conv))
	for _, turn := range conv {
		if turn.Role == model.RoleModel {
			msgs = append(msgs, openai.AssistantMessage(turn.Text))
		} else {
			msgs = append(msgs, openai.UserMessage(turn.Text))
		}
	}
	return msgs
}

// openaiTools converts the tool manifest to function tool params.
func openaiTools(list []tools.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(list))
	for _, t := range list {
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": t.PropertyMap(),
		}
		if required := t.RequiredNames(); len(required) > 0 {
			params["required"] = required
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		})
	}
	return out
}
