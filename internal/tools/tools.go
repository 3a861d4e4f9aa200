// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"strings"

	"github.com/invopop/jsonschema"
)

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool is a provider-neutral tool declaration.
type Tool struct {
	// Name is the tool identifier the model calls
	Name string

	// Description tells the model when to call the tool
	Description string

	// Schema is the full JSON Schema of the input object
	Schema *jsonschema.Schema

	// Parameters are the top-level properties of Schema, in declaration order
	Parameters []Parameter
}

// Parameter is a single top-level input property.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// PropertyMap returns the parameters as a JSON Schema "properties" object.
func (t Tool) PropertyMap() map[string]any {
	props := make(map[string]any, len(t.Parameters))
	for _, p := range t.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
	}
	return props
}

// RequiredNames returns the names of the required parameters.
func (t Tool) RequiredNames() []string {
	var names []string
	for _, p := range t.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// =============================================================================
// SCHEMA GENERATION
// =============================================================================

// GenerateSchema derives an inline JSON Schema from T.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// parameters flattens the top-level properties of schema.
func parameters(schema *jsonschema.Schema) []Parameter {
	if schema == nil || schema.Properties == nil {
		return nil
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var params []Parameter
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		params = append(params, Parameter{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: strings.TrimSpace(pair.Value.Description),
			Required:    required[pair.Key],
		})
	}
	return params
}

// define builds a Tool whose input schema is derived from T.
func define[T any](name, description string) Tool {
	schema := GenerateSchema[T]()
	return Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		Parameters:  parameters(schema),
	}
}
