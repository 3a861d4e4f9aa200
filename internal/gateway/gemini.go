// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/jeranaias/moodchat/internal/model"
	"github.com/jeranaias/moodchat/internal/tools"
)

// =============================================================================
// GEMINI GATEWAY
// =============================================================================

// Gemini streams replies from the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini gateway. With no API key the client is not
// created and Configured reports false.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	cfg = cfg.withDefaults()
	g := &Gemini{model: cfg.Model}
	if cfg.APIKey == "" {
		return g, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	return g, nil
}

// Provider returns "gemini".
func (g *Gemini) Provider() string { return ProviderGemini }

// Model returns the default model id.
func (g *Gemini) Model() string { return g.model }

// Configured reports whether a client was created.
func (g *Gemini) Configured() bool { return g.client != nil }

// Stream implements Gateway.
func (g *Gemini) Stream(ctx context.Context, req Request) (iter.Seq2[Event, error], error) {
	if g.client == nil {
		return nil, ErrNoCredential
	}

	contents := geminiContents(req.Conversation)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: req.ResponseMIMEType,
	}
	if len(req.Tools) > 0 {
		config.Tools = geminiTools(req.Tools)
	}

	responses := g.client.Models.GenerateContentStream(ctx, modelFor(req, g.model), contents, config)

	return func(yield func(Event, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield(Event{}, fmt.Errorf("gemini stream: %w", err))
				return
			}
			for _, ev := range geminiEvents(resp) {
				if !yield(ev, nil) {
					return
				}
			}
		}
	}, nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// geminiContents converts a conversation to Gemini contents.
func geminiContents(conv model.Conversation) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conv))
	for _, turn := range conv {
		role := genai.Role(genai.RoleUser)
		if turn.Role == model.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return contents
}

// geminiTools converts the tool manifest to a single Gemini tool.
func geminiTools(list []tools.Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(list))
	for _, t := range list {
		props := make(map[string]*genai.Schema, len(t.Parameters))
		for _, p := range t.Parameters {
			props[p.Name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.RequiredNames(),
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// geminiType maps a JSON Schema type name to a Gemini type.
func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// geminiEvents extracts events from one streamed response. Only the first
// candidate is used. Thought parts are skipped.
func geminiEvents(resp *genai.GenerateContentResponse) []Event {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}

	var events []Event
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			events = append(events, CallEvent(part.FunctionCall.Name, part.FunctionCall.Args))
			continue
		}
		if part.Text != "" {
			events = append(events, TextEvent(part.Text))
		}
	}
	return events
}
