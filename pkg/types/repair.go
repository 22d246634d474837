// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"path/filepath"
	"strings"
)

// FileKind classifies content for the repair pipeline. JSX balancing only
// runs on KindJSX files; the other passes run on everything.
type FileKind int

const (
	KindOther FileKind = iota // Any file without special handling
	KindJS                    // .js / .mjs / .cjs
	KindTS                    // .ts
	KindJSX                   // .tsx / .jsx
)

func (k FileKind) String() string {
	switch k {
	case KindJS:
		return "js"
	case KindTS:
		return "ts"
	case KindJSX:
		return "jsx"
	default:
		return "other"
	}
}

// KindForPath derives the FileKind from a path's extension.
func KindForPath(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx", ".jsx":
		return KindJSX
	case ".ts":
		return KindTS
	case ".js", ".mjs", ".cjs":
		return KindJS
	default:
		return KindOther
	}
}

// RepairPass records whether a single named repair pass altered the content.
type RepairPass struct {
	Name    string
	Changed bool
}

// RepairTrace is the ordered record of the repair passes run on one file's
// content, plus the syntax verification counts measured around the pipeline.
// Diagnostics only; not required for correctness.
type RepairTrace struct {
	Passes []RepairPass
	// ErrorNodesBefore/After count tree-sitter ERROR nodes in the content
	// before and after repair. Both are -1 when verification did not run
	// (unsupported file kind).
	ErrorNodesBefore int
	ErrorNodesAfter  int
}

// Changed reports whether any pass altered the content.
func (t RepairTrace) Changed() bool {
	for _, p := range t.Passes {
		if p.Changed {
			return true
		}
	}
	return false
}
