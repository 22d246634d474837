// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package detect classifies raw response text as one of the supported
// envelope formats. All checks are single-pass scans; no regex runs on
// unbounded input.
package detect

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Marker tokens that positively identify the marker envelope.
var markerTokens = []string{
	"<!-- FILE:",
	"<!-- PLAN",
	"<!-- DELETE:",
}

// Keys whose presence inside the first balanced JSON object identify the
// JSON envelope.
var envelopeKeys = []string{
	`"files"`,
	`"diffs"`,
	`"plan"`,
	`"create"`,
	`"delete"`,
}

// Detect classifies text. Checks are order-sensitive and first match wins:
// marker tokens beat the JSON probe, which beats Unknown.
func Detect(text string) types.Format {
	if HasMarkerTokens(text) {
		return types.FormatMarker
	}
	if looksLikeJSONEnvelope(text) {
		return types.FormatJSON
	}
	return types.FormatUnknown
}

// DetectWithHint classifies text, using the caller's configured response
// format only to bias the Unknown boundary. A hint never overrides a
// positive detection of the other format.
func DetectWithHint(text string, hint types.Format) types.Format {
	f := Detect(text)
	if f != types.FormatUnknown {
		return f
	}
	switch hint {
	case types.FormatJSON, types.FormatMarker:
		return hint
	default:
		return types.FormatUnknown
	}
}

// HasMarkerTokens reports whether any marker envelope token appears in text.
func HasMarkerTokens(text string) bool {
	for _, tok := range markerTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// looksLikeJSONEnvelope locates the first top-level '{' and its matching
// '}' by brace-depth counting, then checks the slice for an envelope key.
// A truncated object (no closing brace before end of input) still counts
// when an envelope key appears after the opening brace.
func looksLikeJSONEnvelope(text string) bool {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return false
	}

	end, balanced := ScanBalanced(text, start)
	slice := text[start:]
	if balanced {
		slice = text[start : end+1]
	}

	for _, key := range envelopeKeys {
		if idx := strings.Index(slice, key); idx >= 0 {
			// Require the key to be followed by a colon so prose that
			// merely quotes the word does not trigger detection.
			rest := slice[idx+len(key):]
			if colonFollows(rest) {
				return true
			}
		}
	}
	return false
}

// ScanBalanced walks text from the opening brace at start to its matching
// closing brace, honoring string literals and escapes. Returns the index
// of the matching '}' and true, or the last index reached and false when
// the input ends before the object closes.
func ScanBalanced(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return len(text) - 1, false
}

// colonFollows reports whether the next non-whitespace byte is a colon.
func colonFollows(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}
