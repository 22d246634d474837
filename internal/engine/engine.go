// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package engine wires format detection, the three parsers, and the
// repair pipeline into the parse entry points. It owns the routing
// policy: detection picks a parser, a failed parser degrades to the
// fenced-block fallback, and repair runs over every full-content
// operation that survives.
package engine

import (
	"context"
	"strings"

	"github.com/ersinkoc/fluidflow/internal/detect"
	"github.com/ersinkoc/fluidflow/internal/envelope"
	"github.com/ersinkoc/fluidflow/internal/fallback"
	"github.com/ersinkoc/fluidflow/internal/marker"
	"github.com/ersinkoc/fluidflow/internal/repair"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Options configures an Engine.
type Options struct {
	// Hint biases detection when the text itself is ambiguous. Callers
	// that told the model which format to use pass it here.
	Hint types.Format
	// DiffMode enables search/replace hunks in the JSON envelope.
	DiffMode bool
	// ExistingPaths is the set of files already present in the workspace.
	// Operations for unknown paths become creates. A nil map means no
	// workspace knowledge; everything stays an update.
	ExistingPaths map[string]bool
	// DisableRepair skips the syntax repair pipeline entirely.
	DisableRepair bool
	// DisabledPasses names individual repair passes to skip.
	DisabledPasses []string
}

// Engine routes response text through detection, parsing, and repair.
// It is stateless across calls and safe for concurrent use.
type Engine struct {
	opts     Options
	pipeline *repair.Pipeline
}

// New creates an Engine with the given options.
func New(opts Options) *Engine {
	p := repair.NewPipeline()
	for _, name := range opts.DisabledPasses {
		if p.Disabled == nil {
			p.Disabled = make(map[string]bool)
		}
		p.Disabled[name] = true
	}
	return &Engine{opts: opts, pipeline: p}
}

// Parse extracts file operations from a complete response text. The
// detected format's parser runs first; if it fails or finds nothing, the
// fenced-block fallback takes over. Per-file problems land in the
// result's Errors, not in the returned error: only a response with no
// salvageable operations at all fails.
func (e *Engine) Parse(ctx context.Context, text string) (*types.ParseResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.NoOperationsError{}
	}

	result, err := e.route(text)
	if err != nil {
		return nil, err
	}

	e.finalize(ctx, result)
	return result, nil
}

// route picks a parser from the detected format and degrades to the
// fallback when it produces nothing usable.
func (e *Engine) route(text string) (*types.ParseResult, error) {
	var parseErr error
	var carried []types.OperationError

	switch detect.DetectWithHint(text, e.opts.Hint) {
	case types.FormatJSON:
		result, err := envelope.Parse(text, envelope.Options{
			DiffMode:      e.opts.DiffMode,
			ExistingPaths: e.opts.ExistingPaths,
		})
		if err == nil {
			return result, nil
		}
		parseErr = err

	case types.FormatMarker:
		result := marker.Parse(text)
		if len(result.Operations) > 0 || result.PlanSummary != "" {
			return result, nil
		}
		// The marker result is discarded, but blocks it dropped (e.g. a
		// mismatched closing tag) still need surfacing.
		carried = result.Errors
	}

	result := fallback.Parse(text)
	if len(result.Operations) == 0 && result.PlanSummary == "" {
		if parseErr != nil {
			return nil, parseErr
		}
		return nil, &types.NoOperationsError{}
	}

	// The structured parser's failure is still worth reporting alongside
	// whatever the fallback salvaged.
	if parseErr != nil {
		result.AddError("", parseErr)
	}
	result.Errors = append(result.Errors, carried...)
	return result, nil
}

// finalize runs the post-parse stages shared by all formats: create/update
// reclassification against the workspace, then syntax repair over every
// full-content operation. Hunks are never repaired; their text must match
// the file on disk, not an ideal of it.
func (e *Engine) finalize(ctx context.Context, result *types.ParseResult) {
	for i := range result.Operations {
		op := &result.Operations[i]
		if op.Kind == types.OpDelete {
			continue
		}

		if e.opts.ExistingPaths != nil && op.Kind == types.OpUpdate &&
			!op.IsPatch() && !e.opts.ExistingPaths[op.Path] {
			op.Kind = types.OpCreate
		}

		if e.opts.DisableRepair || op.IsPatch() {
			continue
		}

		kind := types.KindForPath(op.Path)
		repaired, trace, errs := e.pipeline.Run(ctx, op.Content, kind)
		for _, err := range errs {
			result.AddError(op.Path, err)
		}
		if trace.Changed() {
			op.Content = repaired
			result.NeededRepair = true
			if result.Traces == nil {
				result.Traces = make(map[string]types.RepairTrace)
			}
			result.Traces[op.Path] = trace
		}
	}
}
