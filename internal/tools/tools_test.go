// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangeMood_Declaration(t *testing.T) {
	require.Equal(t, "changeMood", ChangeMood.Name)
	require.Contains(t, ChangeMood.Description, "change his mood")

	require.Len(t, ChangeMood.Parameters, 1)
	p := ChangeMood.Parameters[0]
	require.Equal(t, InstructionArg, p.Name)
	require.Equal(t, "string", p.Type)
	require.False(t, p.Required)
	require.NotEmpty(t, p.Description)

	require.Empty(t, ChangeMood.RequiredNames())
}

func TestChangeMood_SchemaJSON(t *testing.T) {
	data, err := json.Marshal(ChangeMood.Schema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "object", doc["type"])
	require.Equal(t, false, doc["additionalProperties"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, InstructionArg)
	require.NotContains(t, doc, "required")
}

func TestPropertyMap(t *testing.T) {
	props := ChangeMood.PropertyMap()
	require.Len(t, props, 1)

	prop, ok := props[InstructionArg].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "string", prop["type"])
}

func TestManifest(t *testing.T) {
	m := Manifest()
	require.Len(t, m, 1)
	require.Equal(t, ChangeMoodName, m[0].Name)
}

func TestMoodInstruction(t *testing.T) {
	tests := []struct {
		name   string
		args   map[string]any
		want   string
		wantOK bool
	}{
		{name: "valid", args: map[string]any{InstructionArg: "be sad"}, want: "be sad", wantOK: true},
		{name: "missing", args: map[string]any{}},
		{name: "nil args", args: nil},
		{name: "empty", args: map[string]any{InstructionArg: ""}},
		{name: "blank", args: map[string]any{InstructionArg: "  \n"}},
		{name: "number", args: map[string]any{InstructionArg: 3.0}},
		{name: "object", args: map[string]any{InstructionArg: map[string]any{"a": "b"}}},
		{name: "wrong key", args: map[string]any{"instruction": "be sad"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MoodInstruction(tc.args)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

type sampleInput struct {
	B string `json:"b" jsonschema_description:"second"`
	A int    `json:"a,omitempty"`
}

func TestParameters_PreservesOrder(t *testing.T) {
	tool := define[sampleInput]("sample", "d")
	require.Len(t, tool.Parameters, 2)
	require.Equal(t, "b", tool.Parameters[0].Name)
	require.True(t, tool.Parameters[0].Required)
	require.Equal(t, "a", tool.Parameters[1].Name)
	require.Equal(t, "integer", tool.Parameters[1].Type)
	require.False(t, tool.Parameters[1].Required)
}
