// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"strings"

	"github.com/ersinkoc/fluidflow/internal/marker"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Session parses a response incrementally as chunks arrive from the
// model. Completed file blocks surface immediately for live preview;
// Finish settles the final result, which matches what Parse would have
// produced on the concatenated text. One Session serves one generation
// request.
type Session struct {
	engine *Engine
	cursor *marker.Cursor
	raw    strings.Builder
	ops    []types.FileOperation
	done   bool
}

// NewSession starts a streaming parse.
func (e *Engine) NewSession() *Session {
	return &Session{
		engine: e,
		cursor: marker.NewCursor(),
	}
}

// Feed consumes one chunk and returns the operations it completed, in
// order. Returned operations are raw parser output: repair and
// create/update reclassification happen at Finish.
func (s *Session) Feed(chunk string) []types.FileOperation {
	if s.done {
		return nil
	}
	s.raw.WriteString(chunk)
	completed := s.cursor.Feed(chunk)
	s.ops = append(s.ops, completed...)
	return completed
}

// Finish flushes the stream and returns the settled result. When the
// stream carried no marker blocks at all, the accumulated text is handed
// to the one-shot path, which covers models that answered with the JSON
// envelope despite a streaming request.
func (s *Session) Finish(ctx context.Context) (*types.ParseResult, error) {
	if s.done {
		return nil, &types.NoOperationsError{}
	}
	s.done = true

	tail := s.cursor.Finish()
	s.ops = append(s.ops, tail...)

	if len(s.ops) == 0 && s.cursor.Plan() == "" {
		return s.engine.Parse(ctx, s.raw.String())
	}

	result := &types.ParseResult{
		UsedFormat:  types.FormatMarker,
		PlanSummary: s.cursor.Plan(),
		IsTruncated: s.cursor.Truncated(),
		RawText:     s.raw.String(),
		Errors:      s.cursor.Errors(),
	}
	for _, op := range s.ops {
		result.Upsert(op)
	}

	s.engine.finalize(ctx, result)
	return result, nil
}
