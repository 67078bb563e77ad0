// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports that generated text did not contain the expected JSON shape.
// Callers recover from it with a fixed fallback; it is never surfaced to end users.
type ParseError struct {
	Reason string
	Raw    string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unparseable generation output: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("unparseable generation output: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// UnavailableError reports that a generation call failed before producing output.
// Unlike ParseError it is surfaced to callers.
type UnavailableError struct {
	Operation string
	Cause     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: generation service unavailable: %v", e.Operation, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the opening fence line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ExtractStructuredPayload returns the JSON object embedded in raw generation output.
// It strips code fences, then takes the span from the first '{' to the last '}'.
func ExtractStructuredPayload(raw string) (json.RawMessage, error) {
	return extractPayload(raw, '{', '}')
}

// ExtractArrayPayload is ExtractStructuredPayload for top-level JSON arrays
func ExtractArrayPayload(raw string) (json.RawMessage, error) {
	return extractPayload(raw, '[', ']')
}

// DecodeObject extracts the JSON object from raw output and unmarshals it into v
func DecodeObject(raw string, v any) error {
	payload, err := ExtractStructuredPayload(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &ParseError{Reason: "payload does not match expected shape", Raw: raw, Cause: err}
	}
	return nil
}

// DecodeArray extracts the JSON array from raw output and unmarshals it into v
func DecodeArray(raw string, v any) error {
	payload, err := ExtractArrayPayload(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &ParseError{Reason: "payload does not match expected shape", Raw: raw, Cause: err}
	}
	return nil
}

func extractPayload(raw string, open, close byte) (json.RawMessage, error) {
	text := CleanJSONBlock(raw)
	if text == "" {
		return nil, &ParseError{Reason: "empty response", Raw: raw}
	}

	if text[0] == open && json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}

	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return nil, &ParseError{Reason: fmt.Sprintf("no %c...%c span found", open, close), Raw: raw}
	}

	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, &ParseError{Reason: "embedded span is not valid JSON", Raw: raw}
	}
	return json.RawMessage(candidate), nil
}
