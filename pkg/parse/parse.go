// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package parse is the public interface to the response parsing and
// repair engine: it turns raw LLM output into validated file operations,
// in one shot or incrementally from a token stream.
package parse

import (
	"context"
	"errors"
	"fmt"

	"github.com/ersinkoc/fluidflow/internal/engine"
	"github.com/ersinkoc/fluidflow/internal/repair"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// ErrInvalidOptions is returned when the options fail validation.
var ErrInvalidOptions = errors.New("invalid options")

// Options configures parsing behavior. The zero value is valid: detect
// the format from the text, no workspace knowledge, repair enabled.
type Options struct {
	// Hint biases format detection when the text is ambiguous. Leave as
	// types.FormatUnknown to rely on detection alone.
	Hint types.Format
	// DiffMode enables search/replace hunks in the JSON envelope.
	DiffMode bool
	// ExistingPaths is the set of files already in the workspace, keyed
	// by slash-separated relative path. Operations for paths outside the
	// set become creates; nil leaves every operation an update.
	ExistingPaths map[string]bool
	// DisableRepair skips the syntax repair pipeline.
	DisableRepair bool
	// DisabledPasses names individual repair passes to skip. Valid names
	// are the repair.Pass* constants.
	DisabledPasses []string
}

// validate rejects pass names and hints that nothing recognizes, so the
// typo fails loudly instead of silently running all passes.
func (o Options) validate() error {
	switch o.Hint {
	case types.FormatUnknown, types.FormatJSON, types.FormatMarker, types.FormatFallback:
	default:
		return fmt.Errorf("%w: unknown format hint %d", ErrInvalidOptions, o.Hint)
	}
	for _, name := range o.DisabledPasses {
		switch name {
		case repair.PassBrackets, repair.PassJSX, repair.PassImports, repair.PassReturns:
		default:
			return fmt.Errorf("%w: unknown repair pass %q", ErrInvalidOptions, name)
		}
	}
	return nil
}

func (o Options) engineOptions() engine.Options {
	return engine.Options{
		Hint:           o.Hint,
		DiffMode:       o.DiffMode,
		ExistingPaths:  o.ExistingPaths,
		DisableRepair:  o.DisableRepair,
		DisabledPasses: o.DisabledPasses,
	}
}

// Parse extracts file operations from a complete response text. Per-file
// problems are contained in the result's Errors; the returned error is
// non-nil only when nothing usable could be extracted at all.
func Parse(ctx context.Context, text string, opts Options) (*types.ParseResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return engine.New(opts.engineOptions()).Parse(ctx, text)
}

// Session parses a response incrementally. Feed returns file operations
// as their closing markers arrive; Finish settles the final result,
// identical to what Parse would return for the concatenated text.
type Session struct {
	inner *engine.Session
}

// NewSession starts a streaming parse with the given options.
func NewSession(opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Session{inner: engine.New(opts.engineOptions()).NewSession()}, nil
}

// Feed consumes one chunk, in arrival order, and returns any operations
// it completed. Returned operations are raw parser output; repair and
// create/update classification settle at Finish.
func (s *Session) Feed(chunk string) []types.FileOperation {
	return s.inner.Feed(chunk)
}

// Finish flushes the stream and returns the final result. The session
// cannot be fed afterwards.
func (s *Session) Finish(ctx context.Context) (*types.ParseResult, error) {
	return s.inner.Finish(ctx)
}
