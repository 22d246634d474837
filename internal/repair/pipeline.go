// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package repair implements the multi-pass syntax repair pipeline applied
// to every generated file content: bracket balancing, JSX tag balancing,
// import completion, and return-statement completion. Every pass is a pure
// text-to-text transform that only ever appends or trims closers; repair
// never deletes code.
package repair

import (
	"context"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Pass names, in pipeline order.
const (
	PassBrackets = "brackets"
	PassJSX      = "jsx"
	PassImports  = "imports"
	PassReturns  = "returns"
)

type passFunc func(content string, kind types.FileKind) string

type pass struct {
	name string
	fn   passFunc
}

// Pipeline runs the repair passes in fixed order. Individual passes can be
// disabled by name; order is not configurable.
type Pipeline struct {
	Disabled map[string]bool
	passes   []pass
}

// NewPipeline returns a pipeline with all passes enabled.
func NewPipeline() *Pipeline {
	return &Pipeline{
		passes: []pass{
			{PassBrackets, balanceBrackets},
			{PassJSX, balanceJSX},
			{PassImports, fixImports},
			{PassReturns, fixReturns},
		},
	}
}

// Run repairs content for the given file kind. Returns the repaired
// content, the trace of what each pass did, and any contained pass
// failures. A pass that panics is recorded as a RepairError; its input
// content is kept and the remaining passes still run. Content is never
// silently dropped.
func (p *Pipeline) Run(ctx context.Context, content string, kind types.FileKind) (string, types.RepairTrace, []error) {
	trace := types.RepairTrace{
		ErrorNodesBefore: countErrorNodes(ctx, content, kind),
		ErrorNodesAfter:  -1,
	}

	var errs []error
	current := content

	for _, ps := range p.passes {
		if p.Disabled[ps.name] {
			continue
		}
		out, err := runPass(ps, current, kind)
		if err != nil {
			errs = append(errs, err)
			trace.Passes = append(trace.Passes, types.RepairPass{Name: ps.name, Changed: false})
			continue
		}
		trace.Passes = append(trace.Passes, types.RepairPass{Name: ps.name, Changed: out != current})
		current = out
	}

	trace.ErrorNodesAfter = countErrorNodes(ctx, current, kind)
	return current, trace, errs
}

// runPass executes one pass, converting a panic into a RepairError so a
// bad input never aborts the pipeline.
func runPass(ps pass, content string, kind types.FileKind) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = content
			err = &types.RepairError{Pass: ps.name, Cause: r}
		}
	}()
	return ps.fn(content, kind), nil
}
