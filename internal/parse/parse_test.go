// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `  {"a":1}  `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"prose around fence", "Here is the result:\n```json\n{\"a\":1}\n```\nLet me know.", `{"a":1}`},
		{"first of two blocks", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.raw))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Run("fenced object", func(t *testing.T) {
		got, err := ExtractJSON("```json\n{\"score\": 80}\n```")
		require.NoError(t, err)
		assert.JSONEq(t, `{"score":80}`, string(got))
	})

	t.Run("object after a sentence", func(t *testing.T) {
		got, err := ExtractJSON(`Sure! {"score": 80, "notes": ["x"]} Hope this helps.`)
		require.NoError(t, err)
		assert.JSONEq(t, `{"score":80,"notes":["x"]}`, string(got))
	})

	t.Run("array", func(t *testing.T) {
		got, err := ExtractJSON("[1, 2, 3]")
		require.NoError(t, err)
		assert.JSONEq(t, `[1,2,3]`, string(got))
	})

	t.Run("fence marker inside a string value", func(t *testing.T) {
		raw := "{\"summary\":\"wrap code in ```go blocks\",\"strengths\":[]}"
		got, err := ExtractJSON(raw)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(got))
	})

	t.Run("fenced object with a fence marker inside a string value", func(t *testing.T) {
		got, err := ExtractJSON("```json\n{\"summary\": \"use ```sql for queries\"}\n```")
		require.NoError(t, err)
		assert.JSONEq(t, "{\"summary\": \"use ```sql for queries\"}", string(got))
	})

	for _, raw := range []string{"", "```json\n```", "not json at all", `{"score": 80,`} {
		t.Run("malformed "+raw, func(t *testing.T) {
			_, err := ExtractJSON(raw)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, raw, pe.Raw, "raw completion is retained")
		})
	}
}

var testSchema = MustCompileSchema("test", map[string]any{
	"type":     "object",
	"required": []any{"score", "tags"},
	"properties": map[string]any{
		"score": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
})

type testPayload struct {
	Score float64  `json:"score"`
	Tags  []string `json:"tags"`
}

func TestDecode(t *testing.T) {
	var p testPayload
	err := Decode("```json\n{\"score\": 42, \"tags\": [\"a\"]}\n```", testSchema, &p)
	require.NoError(t, err)
	assert.Equal(t, 42.0, p.Score)
	assert.Equal(t, []string{"a"}, p.Tags)
}

func TestDecodeSchemaViolation(t *testing.T) {
	var p testPayload
	err := Decode(`{"score": 140}`, testSchema, &p)
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "test", se.Schema)
	assert.NotEmpty(t, se.Problems)
	assert.Contains(t, se.Error(), "test schema")
}

func TestDecodeNilSchema(t *testing.T) {
	var p testPayload
	require.NoError(t, Decode(`{"score": 1}`, nil, &p))
	assert.Equal(t, 1.0, p.Score)
}

func TestDecodeTypeMismatchIsParseError(t *testing.T) {
	var p testPayload
	err := Decode(`{"score": "high"}`, nil, &p)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, `{"score": "high"}`, pe.Raw)
}

func TestCompileSchemaInvalid(t *testing.T) {
	_, err := CompileSchema("bad", map[string]any{"type": 12})
	assert.Error(t, err)
}
