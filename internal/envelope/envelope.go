// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package envelope parses the JSON object envelope: a schema-shaped object
// with plan, files, create, delete, and diffs keys, possibly wrapped in
// prose or a fenced code block, and frequently truncated mid-object.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ersinkoc/fluidflow/internal/detect"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Options configures a single parse.
type Options struct {
	// DiffMode enables the diffs key. When false the key is ignored and
	// files entries are always full content.
	DiffMode bool
	// ExistingPaths disambiguates Create vs Update for paths that appear
	// only under files. Explicit create/delete arrays take precedence.
	// A nil map means no workspace knowledge: everything defaults to Update.
	ExistingPaths map[string]bool
}

// schema mirrors the envelope's loose JSON shape. Values pass through the
// validated mapping in buildResult before reaching the caller; nothing
// dynamic escapes this package.
type schema struct {
	Plan   string            `json:"plan"`
	Files  map[string]string `json:"files"`
	Create []string          `json:"create"`
	Delete []string          `json:"delete"`
	Diffs  map[string][]hunk `json:"diffs"`
}

type hunk struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// Parse extracts the JSON envelope from text and maps it to operations.
// Returns *types.MalformedJSONError when the envelope is structurally
// complete but undecodable, and *types.NoOperationsError when decoding
// succeeded but yielded nothing.
func Parse(text string, opts Options) (*types.ParseResult, error) {
	candidate, base := extractCandidate(text)

	start := strings.IndexByte(candidate, '{')
	if start < 0 {
		return nil, &types.NoOperationsError{}
	}

	end, balanced := detect.ScanBalanced(candidate, start)
	if !balanced {
		// Envelope cut mid-object: salvage complete pairs.
		return parseTruncated(text, candidate[start:], opts)
	}

	raw := candidate[start : end+1]

	var env schema
	err := json.Unmarshal([]byte(raw), &env)
	if err != nil {
		// Light-touch repair, then one retry.
		repaired := stripTrailingCommas(raw)
		if retryErr := json.Unmarshal([]byte(repaired), &env); retryErr != nil {
			return nil, malformedErr(retryErr, base+start)
		}
		raw = repaired
	}

	result := buildResult(text, raw, env, opts)
	if len(result.Operations) == 0 && result.PlanSummary == "" {
		return nil, &types.NoOperationsError{}
	}
	return result, nil
}

// buildResult maps the decoded schema to a ParseResult, preserving the
// source order of the files object and applying the precedence rules:
// explicit create/delete arrays override inference from files, and diffs
// override files content for the same path when diff mode is on.
func buildResult(rawText, raw string, env schema, opts Options) *types.ParseResult {
	result := &types.ParseResult{
		UsedFormat:  types.FormatJSON,
		PlanSummary: strings.TrimSpace(env.Plan),
		RawText:     rawText,
	}

	explicitCreate := stringSet(env.Create)
	explicitDelete := stringSet(env.Delete)

	for _, path := range filesKeyOrder(raw, env.Files) {
		if explicitDelete[path] {
			continue // delete array wins below
		}
		kind := types.OpUpdate
		if explicitCreate[path] || (opts.ExistingPaths != nil && !opts.ExistingPaths[path]) {
			kind = types.OpCreate
		}
		result.Upsert(types.FileOperation{
			Kind:    kind,
			Path:    path,
			Content: env.Files[path],
		})
	}

	// Create paths without files content become empty-file creates.
	for _, path := range env.Create {
		if path == "" || result.Operation(path) != nil || explicitDelete[path] {
			continue
		}
		result.Upsert(types.FileOperation{Kind: types.OpCreate, Path: path})
	}

	if opts.DiffMode {
		for _, path := range diffsKeyOrder(raw, env.Diffs) {
			if explicitDelete[path] {
				continue
			}
			hunks := make([]types.Hunk, 0, len(env.Diffs[path]))
			for _, h := range env.Diffs[path] {
				hunks = append(hunks, types.Hunk{Search: h.Search, Replace: h.Replace})
			}
			if len(hunks) == 0 {
				continue
			}
			result.Upsert(types.FileOperation{
				Kind:  types.OpUpdate,
				Path:  path,
				Hunks: hunks,
			})
		}
	}

	for _, path := range env.Delete {
		if path == "" {
			continue
		}
		result.Upsert(types.FileOperation{Kind: types.OpDelete, Path: path})
	}

	return result
}

// extractCandidate narrows text to the region most likely to hold the
// envelope. A ```json fenced block wins; otherwise the whole text is the
// candidate and the brace scan sorts out surrounding prose. Returns the
// candidate and its byte offset in text.
func extractCandidate(text string) (string, int) {
	for _, fence := range []string{"```json\n", "```json\r\n"} {
		open := strings.Index(text, fence)
		if open < 0 {
			continue
		}
		inner := open + len(fence)
		if close := strings.Index(text[inner:], "```"); close >= 0 {
			return text[inner : inner+close], inner
		}
		// Unterminated fence: everything after the opener, likely truncated.
		return text[inner:], inner
	}
	return text, 0
}

// stripTrailingCommas removes a comma that immediately precedes a closing
// brace or bracket, outside string literals.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false

	// Hold back a comma until we know whether the next non-whitespace
	// byte closes a container.
	var held []byte
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.Write(held)
			held = held[:0]
			b.WriteByte(c)
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
			b.Write(held)
			held = held[:0]
			b.WriteByte(c)
		case ',':
			b.Write(held)
			held = held[:0]
			held = append(held, c)
		case ' ', '\t', '\n', '\r':
			if len(held) > 0 {
				held = append(held, c)
			} else {
				b.WriteByte(c)
			}
		case '}', ']':
			// Drop the held comma (and keep its trailing whitespace).
			if len(held) > 0 && held[0] == ',' {
				b.Write(held[1:])
			} else {
				b.Write(held)
			}
			held = held[:0]
			b.WriteByte(c)
		default:
			b.Write(held)
			held = held[:0]
			b.WriteByte(c)
		}
	}
	b.Write(held)
	return b.String()
}

// malformedErr converts a json decode error to the engine's error type,
// carrying the byte offset when the standard library provides one.
func malformedErr(err error, base int) *types.MalformedJSONError {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return &types.MalformedJSONError{Offset: base + int(syn.Offset)}
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		return &types.MalformedJSONError{Offset: base + int(typ.Offset)}
	}
	return &types.MalformedJSONError{Offset: base}
}

// filesKeyOrder returns the files object's keys in source order, falling
// back to any order for keys the scan missed. Map iteration order would
// otherwise make operation order nondeterministic.
func filesKeyOrder(raw string, files map[string]string) []string {
	return objectKeyOrder(raw, "files", files)
}

func diffsKeyOrder(raw string, diffs map[string][]hunk) []string {
	present := make(map[string]string, len(diffs))
	for k := range diffs {
		present[k] = ""
	}
	return objectKeyOrder(raw, "diffs", present)
}

// objectKeyOrder extracts the source-order keys of the object under
// objKey in raw, restricted to keys present in the decoded map.
func objectKeyOrder[V any](raw, objKey string, decoded map[string]V) []string {
	var keys []string
	seen := make(map[string]bool, len(decoded))

	if inner := objectValue(raw, objKey); inner != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(inner)))
		if tok, err := dec.Token(); err == nil {
			if d, ok := tok.(json.Delim); ok && d == '{' {
				for dec.More() {
					keyTok, err := dec.Token()
					if err != nil {
						break
					}
					key, ok := keyTok.(string)
					if !ok {
						break
					}
					if _, present := decoded[key]; present && !seen[key] {
						keys = append(keys, key)
						seen[key] = true
					}
					if err := skipValue(dec); err != nil {
						break
					}
				}
			}
		}
	}

	// Any decoded keys the scan missed still get emitted.
	if len(keys) < len(decoded) {
		for k := range decoded {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// objectValue returns the raw JSON of the object value for key at the top
// level of raw, or "" when absent or not an object.
func objectValue(raw, key string) string {
	needle := `"` + key + `"`
	from := 0
	for {
		idx := strings.Index(raw[from:], needle)
		if idx < 0 {
			return ""
		}
		idx += from
		rest := raw[idx+len(needle):]
		trimmed := strings.TrimLeft(rest, " \t\n\r")
		if !strings.HasPrefix(trimmed, ":") {
			from = idx + len(needle)
			continue
		}
		trimmed = strings.TrimLeft(trimmed[1:], " \t\n\r")
		if !strings.HasPrefix(trimmed, "{") {
			return ""
		}
		objStart := len(raw) - len(trimmed)
		end, balanced := detect.ScanBalanced(raw, objStart)
		if !balanced {
			return raw[objStart:]
		}
		return raw[objStart : end+1]
	}
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		if s != "" {
			set[s] = true
		}
	}
	return set
}
