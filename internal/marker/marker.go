// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package marker parses the marker envelope: a flat text stream of
// <!-- FILE:path --> ... <!-- /FILE:path --> blocks, an optional
// <!-- PLAN --> block, and self-closing <!-- DELETE:path --> lines.
// The one-shot entry point is the streaming cursor run to completion.
package marker

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// tagKind identifies a recognized marker tag line.
type tagKind int

const (
	tagFileOpen tagKind = iota
	tagFileClose
	tagPlanOpen
	tagPlanClose
	tagDelete
)

// parseTag recognizes a single trimmed line as a marker tag. Tags are
// case-sensitive and must span the whole line.
func parseTag(line string) (tagKind, string, bool) {
	if !strings.HasPrefix(line, "<!--") || !strings.HasSuffix(line, "-->") || len(line) < 8 {
		return 0, "", false
	}
	inner := strings.TrimSpace(line[4 : len(line)-3])

	switch {
	case inner == "PLAN":
		return tagPlanOpen, "", true
	case inner == "/PLAN":
		return tagPlanClose, "", true
	case inner == "/FILE":
		return tagFileClose, "", true
	case strings.HasPrefix(inner, "FILE:"):
		path := strings.TrimSpace(inner[len("FILE:"):])
		if path == "" {
			return 0, "", false
		}
		return tagFileOpen, path, true
	case strings.HasPrefix(inner, "/FILE:"):
		return tagFileClose, strings.TrimSpace(inner[len("/FILE:"):]), true
	case strings.HasPrefix(inner, "DELETE:"):
		path := strings.TrimSpace(inner[len("DELETE:"):])
		if path == "" {
			return 0, "", false
		}
		return tagDelete, path, true
	default:
		return 0, "", false
	}
}

// couldBeTag reports whether a partial line, as received so far, might
// still turn out to be a marker tag once the rest of the line arrives.
// Leading whitespace is allowed before a tag.
func couldBeTag(partial string) bool {
	s := strings.TrimLeft(partial, " \t")
	if len(s) < len("<!--") {
		return strings.HasPrefix("<!--", s)
	}
	return strings.HasPrefix(s, "<!--")
}

// EmitBlock renders a file block in the marker wire convention. Content is
// written verbatim; callers must not embed marker tokens in it.
func EmitBlock(path, content string) string {
	var b strings.Builder
	b.WriteString("<!-- FILE:")
	b.WriteString(path)
	b.WriteString(" -->\n")
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("<!-- /FILE:")
	b.WriteString(path)
	b.WriteString(" -->\n")
	return b.String()
}

// Parse runs the streaming cursor over the whole text at once.
func Parse(text string) *types.ParseResult {
	c := NewCursor()
	ops := c.Feed(text)
	ops = append(ops, c.Finish()...)

	result := &types.ParseResult{
		UsedFormat:  types.FormatMarker,
		PlanSummary: c.Plan(),
		IsTruncated: c.Truncated(),
		RawText:     text,
		Errors:      c.Errors(),
	}
	for _, op := range ops {
		result.Upsert(op)
	}
	return result
}
