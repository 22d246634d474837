// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "fmt"

// MalformedJSONError reports a JSON envelope that could not be decoded,
// even after light-touch repair.
type MalformedJSONError struct {
	Offset int // Byte offset of the first offending character
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON envelope at byte %d", e.Offset)
}

// UnbalancedBlockError reports a marker block whose closing tag path does
// not match its opening tag path. The block is dropped; parsing continues.
type UnbalancedBlockError struct {
	Path      string // Path from the opening tag
	ClosePath string // Mismatching path from the closing tag
}

func (e *UnbalancedBlockError) Error() string {
	return fmt.Sprintf("unbalanced block: opened %q, closed %q", e.Path, e.ClosePath)
}

// PatchNotFoundError reports a hunk whose search text matched nothing in
// the working content. The Closest* fields describe the most similar
// region, for callers that feed diagnostics back to the model.
type PatchNotFoundError struct {
	HunkIndex        int
	ClosestMatch     string
	Similarity       float64
	ClosestLineStart int // 1-based, 0 when no candidate region exists
	ClosestLineEnd   int
}

func (e *PatchNotFoundError) Error() string {
	if e.ClosestMatch != "" {
		return fmt.Sprintf("patch hunk %d: search text not found (closest match %.0f%% similar at lines %d-%d)",
			e.HunkIndex, e.Similarity*100, e.ClosestLineStart, e.ClosestLineEnd)
	}
	return fmt.Sprintf("patch hunk %d: search text not found", e.HunkIndex)
}

// PatchAmbiguousError reports a hunk whose search text matched more than
// one location in the working content.
type PatchAmbiguousError struct {
	HunkIndex int
	Count     int
}

func (e *PatchAmbiguousError) Error() string {
	return fmt.Sprintf("patch hunk %d: search text matched %d locations", e.HunkIndex, e.Count)
}

// RepairError reports a repair pass that panicked. The original content is
// kept and remaining passes still run.
type RepairError struct {
	Pass  string
	Cause any // Recovered panic value
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("repair pass %s failed: %v", e.Pass, e.Cause)
}

// NoOperationsError is returned when a parser ran over non-empty input but
// produced zero operations.
type NoOperationsError struct{}

func (e *NoOperationsError) Error() string {
	return "no file operations found in response"
}
