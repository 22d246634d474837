// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package envelope

import (
	"encoding/json"
	"strings"

	"github.com/ersinkoc/fluidflow/internal/detect"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// parseTruncated salvages what it can from an envelope whose closing brace
// never arrived. Complete "path": "content" pairs inside the files object
// become operations; a value string cut mid-escape or mid-content is
// dropped, never guessed.
func parseTruncated(rawText, slice string, opts Options) (*types.ParseResult, error) {
	result := &types.ParseResult{
		UsedFormat:  types.FormatJSON,
		IsTruncated: true,
		RawText:     rawText,
	}

	if plan, ok := stringValue(slice, "plan"); ok {
		result.PlanSummary = strings.TrimSpace(plan)
	}

	filesObj := objectValue(slice, "files")
	for _, p := range salvagePairs(filesObj) {
		kind := types.OpUpdate
		if opts.ExistingPaths != nil && !opts.ExistingPaths[p.key] {
			kind = types.OpCreate
		}
		result.Upsert(types.FileOperation{
			Kind:    kind,
			Path:    p.key,
			Content: p.value,
		})
	}

	if len(result.Operations) == 0 && result.PlanSummary == "" {
		return nil, &types.NoOperationsError{}
	}
	return result, nil
}

type pair struct {
	key   string
	value string
}

// salvagePairs walks a (possibly unterminated) JSON object and returns the
// string-valued pairs that are structurally complete, in source order.
func salvagePairs(obj string) []pair {
	if !strings.HasPrefix(obj, "{") {
		return nil
	}

	var pairs []pair
	i := 1
	for i < len(obj) {
		i = skipSeparators(obj, i)
		if i >= len(obj) || obj[i] == '}' {
			break
		}

		key, end, ok := scanString(obj, i)
		if !ok {
			break
		}
		i = skipSeparators(obj, end+1)
		if i >= len(obj) || obj[i] != ':' {
			break
		}
		i = skipSeparators(obj, i+1)
		if i >= len(obj) {
			break
		}

		if obj[i] == '"' {
			value, end, ok := scanString(obj, i)
			if !ok {
				break // value cut mid-string; drop it
			}
			pairs = append(pairs, pair{key: key, value: value})
			i = end + 1
			continue
		}

		// Non-string value: step over it if complete, otherwise stop.
		if obj[i] == '{' || obj[i] == '[' {
			end, balanced := scanBalancedAny(obj, i)
			if !balanced {
				break
			}
			i = end + 1
			continue
		}
		// Scalar (number, bool, null): advance to the next separator.
		j := i
		for j < len(obj) && !isSeparator(obj[j]) && obj[j] != '}' && obj[j] != ']' {
			j++
		}
		i = j
	}

	return pairs
}

// stringValue extracts the complete string value for a top-level key,
// reporting false when the key is absent or its value is unterminated.
func stringValue(raw, key string) (string, bool) {
	needle := `"` + key + `"`
	from := 0
	for {
		idx := strings.Index(raw[from:], needle)
		if idx < 0 {
			return "", false
		}
		idx += from
		i := skipSeparators(raw, idx+len(needle))
		if i >= len(raw) || raw[i] != ':' {
			from = idx + len(needle)
			continue
		}
		i = skipSeparators(raw, i+1)
		if i >= len(raw) || raw[i] != '"' {
			return "", false
		}
		value, _, ok := scanString(raw, i)
		return value, ok
	}
}

// scanString decodes the JSON string token starting at raw[i] (which must
// be '"'). Returns the decoded value, the index of the closing quote, and
// whether the token terminated before end of input.
func scanString(raw string, i int) (string, int, bool) {
	if i >= len(raw) || raw[i] != '"' {
		return "", i, false
	}
	escaped := false
	for j := i + 1; j < len(raw); j++ {
		c := raw[j]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			var s string
			if err := json.Unmarshal([]byte(raw[i:j+1]), &s); err != nil {
				return "", j, false
			}
			return s, j, true
		}
	}
	return "", len(raw) - 1, false
}

// scanBalancedAny matches detect.ScanBalanced but also handles a bracket
// opener.
func scanBalancedAny(raw string, start int) (int, bool) {
	if raw[start] == '{' {
		return detect.ScanBalanced(raw, start)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		case '{':
			end, ok := detect.ScanBalanced(raw, i)
			if !ok {
				return len(raw) - 1, false
			}
			i = end
		}
	}
	return len(raw) - 1, false
}

func skipSeparators(s string, i int) int {
	for i < len(s) && isSeparator(s[i]) {
		i++
	}
	return i
}

func isSeparator(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ','
}
