package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// #region contract

// Generator is the external generation provider: opaque instructions and
// input text in, best-effort structured JSON out. Implementations may fail
// with network errors, return text that does not parse, or return JSON that
// fails downstream schema checks. All three are "no usable result" to the
// pipeline, which degrades to fallback synthesis.
type Generator interface {
	Generate(ctx context.Context, instructions, input string) (json.RawMessage, string, error)
}

// ErrUnavailable marks network or availability failures of the provider.
var ErrUnavailable = errors.New("generation provider unavailable")

// ErrMalformedOutput marks provider responses that carry no parseable JSON.
var ErrMalformedOutput = errors.New("generation provider returned malformed output")

// #endregion contract

// #region json-extraction

// ExtractJSON pulls the best-effort JSON object out of raw model text:
// a fenced ```json block wins, otherwise the span from the first '{' to the
// last '}'. Returns nil when no candidate object exists or it fails to parse.
func ExtractJSON(raw string) json.RawMessage {
	candidate := strings.TrimSpace(raw)
	if fenced := fencedBlock(candidate); fenced != "" {
		candidate = fenced
	} else {
		start := strings.IndexByte(candidate, '{')
		end := strings.LastIndexByte(candidate, '}')
		if start == -1 || end == -1 || end <= start {
			return nil
		}
		candidate = candidate[start : end+1]
	}

	var probe map[string]any
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil
	}
	return json.RawMessage(candidate)
}

func fencedBlock(raw string) string {
	const open = "```json"
	start := strings.Index(raw, open)
	if start == -1 {
		return ""
	}
	rest := raw[start+len(open):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// #endregion json-extraction
