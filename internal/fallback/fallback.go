// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package fallback heuristically extracts file-like blocks from responses
// matching neither envelope: fenced code blocks with paths inferred from a
// file= annotation or a preceding path-like line. It never fails outright;
// worst case the whole text becomes the plan summary.
package fallback

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Parse scans text for fenced code blocks and returns whatever operations
// can be inferred. Blocks without an inferable path are folded into the
// plan summary instead of being dropped.
func Parse(text string) *types.ParseResult {
	result := &types.ParseResult{
		UsedFormat: types.FormatFallback,
		RawText:    text,
	}

	lines := strings.Split(text, "\n")
	var plan strings.Builder
	prev := "" // last non-empty prose line, candidate path for the next fence

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])

		if !strings.HasPrefix(trimmed, "```") {
			if trimmed != "" {
				prev = trimmed
			}
			plan.WriteString(lines[i])
			plan.WriteByte('\n')
			i++
			continue
		}

		path := pathFromFence(trimmed)
		if path == "" {
			path = inferPath(prev)
		}

		// Collect the block body up to the closing fence.
		var body []string
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) != "```" {
			body = append(body, lines[j])
			j++
		}
		closed := j < len(lines)
		if !closed {
			result.IsTruncated = true
		}

		content := strings.Join(body, "\n")
		if content != "" {
			content += "\n"
		}

		if path != "" {
			result.Upsert(types.FileOperation{
				Kind:    types.OpUpdate,
				Path:    path,
				Content: content,
			})
		} else {
			// No path: surface the block with the surrounding prose.
			plan.WriteString(lines[i])
			plan.WriteByte('\n')
			plan.WriteString(content)
			if closed {
				plan.WriteString("```\n")
			}
		}

		prev = ""
		if closed {
			i = j + 1
		} else {
			i = j
		}
	}

	result.PlanSummary = strings.TrimSpace(plan.String())
	return result
}

// pathFromFence extracts a file= annotation from a fence opener such as
// ```tsx file=src/App.tsx.
func pathFromFence(fence string) string {
	rest := strings.TrimPrefix(fence, "```")
	for _, field := range strings.Fields(rest) {
		if strings.HasPrefix(field, "file=") {
			return strings.Trim(field[len("file="):], "`\"'")
		}
	}
	return ""
}

// inferPath decides whether a prose line is actually a file path heading.
// Strips common decorations, then requires a single token that looks like
// a relative path: no spaces, and either a directory separator or a short
// extension.
func inferPath(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#*- ")
	s = strings.TrimRight(s, ":")
	s = strings.Trim(s, "`*_")
	s = strings.TrimSpace(s)

	if s == "" || strings.ContainsAny(s, " \t") {
		return ""
	}
	if strings.HasPrefix(s, "```") {
		return ""
	}
	if strings.Contains(s, "/") {
		return s
	}
	if ext := extOf(s); ext != "" {
		return s
	}
	return ""
}

// extOf returns a plausible file extension (1-5 alphanumeric characters
// after the final dot), or "".
func extOf(s string) string {
	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return ""
	}
	ext := s[dot+1:]
	if len(ext) > 5 {
		return ""
	}
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
