// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse extracts structured JSON payloads from free-text provider
// completions and validates them against stage schemas.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const fence = "```"

// ParseError reports a completion that did not contain valid JSON. Raw holds
// the unmodified completion for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing JSON from completion (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StripFences removes markdown code-fence markers around a payload and trims
// whitespace. When the fenced block is surrounded by prose, the contents of
// the first block are returned.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if !strings.HasPrefix(s, fence) {
		start := strings.Index(s, fence)
		if start < 0 {
			return s
		}
		s = s[start:]
	}

	// Drop the opening marker and its language tag.
	s = strings.TrimPrefix(s, fence)
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		tag := strings.TrimSpace(s[:nl])
		if tag == "" || isLanguageTag(tag) {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}

	if end := strings.Index(s, fence); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func isLanguageTag(tag string) bool {
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// ExtractJSON returns the JSON object or array in raw. A completion that
// is already valid JSON is returned as is, so fence markers inside string
// values are left alone. Otherwise code fences are stripped, and a payload
// preceded or followed by a sentence of prose is tolerated by falling back
// to the outermost braces.
func ExtractJSON(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	s := StripFences(raw)
	if s == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("empty completion")}
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s), nil
	}

	for _, text := range []string{s, trimmed} {
		if candidate, ok := outermost(text, '{', '}'); ok && json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		if candidate, ok := outermost(text, '[', ']'); ok && json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	var v any
	err := json.Unmarshal([]byte(s), &v)
	if err == nil {
		err = errors.New("invalid JSON")
	}
	return nil, &ParseError{Raw: raw, Err: err}
}

func outermost(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
