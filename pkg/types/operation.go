// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines the data model shared by the parsing engine:
// file operations, parse results, repair traces, and the error taxonomy.
package types

// Format identifies the wire convention a response was parsed with.
type Format int

const (
	FormatUnknown Format = iota // No envelope detected
	FormatJSON                  // JSON object envelope
	FormatMarker                // <!-- FILE:path --> marker envelope
	FormatFallback              // Heuristic fenced-block extraction
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarker:
		return "marker"
	case FormatFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// OpKind identifies the file-system mutation an operation performs.
type OpKind int

const (
	OpCreate OpKind = iota // Create a new file
	OpUpdate               // Replace or patch an existing file
	OpDelete               // Remove a file
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Hunk is one search/replace pair within a patch. Each hunk must match
// exactly one contiguous occurrence of Search in the working content.
type Hunk struct {
	Search  string
	Replace string
}

// FileOperation is a single validated file-system mutation extracted from
// a model response. For OpUpdate, a non-nil Hunks slice means the content
// is a patch against the existing file; otherwise Content is the full
// replacement text. OpDelete carries neither.
type FileOperation struct {
	Kind    OpKind
	Path    string // Target path relative to the project root
	Content string // Full file content (empty for patch updates and deletes)
	Hunks   []Hunk // Patch hunks (nil for full-content operations)
}

// IsPatch reports whether the operation carries patch hunks rather than
// full content.
func (op FileOperation) IsPatch() bool {
	return op.Kind == OpUpdate && len(op.Hunks) > 0
}

// OperationError attaches a contained per-file failure to the path it
// affected. One bad block never aborts the rest of the parse; it becomes
// one of these on the result instead.
type OperationError struct {
	Path string // Affected path (may be empty when unknown)
	Err  error
}

func (e OperationError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e OperationError) Unwrap() error {
	return e.Err
}

// ParseResult is the terminal output of a full parse pass.
type ParseResult struct {
	Operations   []FileOperation        // In encounter order; paths are unique
	PlanSummary  string                 // Free-text plan extracted from the envelope
	UsedFormat   Format                 // Which parser produced the operations
	NeededRepair bool                   // True if any repair pass altered content
	IsTruncated  bool                   // True if the source ended mid-structure
	RawText      string                 // Original input, retained for diagnostics
	Errors       []OperationError       // Contained per-file/per-hunk failures
	Traces       map[string]RepairTrace // Repair trace per path
}

// Upsert inserts an operation, enforcing path uniqueness. A repeated path
// replaces the earlier operation and takes the later position: the model
// corrected itself, so the final occurrence is authoritative.
func (r *ParseResult) Upsert(op FileOperation) {
	for i, existing := range r.Operations {
		if existing.Path == op.Path {
			r.Operations = append(r.Operations[:i], r.Operations[i+1:]...)
			break
		}
	}
	r.Operations = append(r.Operations, op)
}

// AddError records a contained failure for the given path.
func (r *ParseResult) AddError(path string, err error) {
	r.Errors = append(r.Errors, OperationError{Path: path, Err: err})
}

// Operation returns the operation for path, or nil if none exists.
func (r *ParseResult) Operation(path string) *FileOperation {
	for i := range r.Operations {
		if r.Operations[i].Path == path {
			return &r.Operations[i]
		}
	}
	return nil
}
