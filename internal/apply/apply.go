// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package apply materializes parsed file operations onto a working
// directory. Writes are atomic (temp file plus rename) and failures are
// collected per file: one bad operation never blocks the rest.
package apply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ersinkoc/fluidflow/internal/patch"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Result reports what a single Apply call did to the working directory.
type Result struct {
	Written  []string // Paths created or updated
	Deleted  []string // Paths removed
	Warnings []string // Suspicious but non-fatal observations
	Errors   []types.OperationError
}

// replaceSimilarityFloor is the similarity below which replacing an
// existing file's full content draws a warning. A legitimate rewrite can
// land under it; the write still happens.
const replaceSimilarityFloor = 0.1

// Applier writes operations under a root directory. Paths in operations
// are always relative; anything escaping the root is rejected.
type Applier struct {
	Root string
}

// Apply runs every operation in result against the root. Patch operations
// read the current file, apply hunks all-or-nothing, and on failure leave
// the file untouched and record the error. Returns an error only when the
// root itself is unusable.
func (a *Applier) Apply(result *types.ParseResult) (*Result, error) {
	if a.Root == "" {
		return nil, fmt.Errorf("applier root not set")
	}
	if info, err := os.Stat(a.Root); err != nil {
		return nil, fmt.Errorf("applier root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("applier root %s is not a directory", a.Root)
	}

	out := &Result{}
	for _, op := range result.Operations {
		target, err := a.resolve(op.Path)
		if err != nil {
			out.Errors = append(out.Errors, types.OperationError{Path: op.Path, Err: err})
			continue
		}

		switch op.Kind {
		case types.OpDelete:
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				out.Errors = append(out.Errors, types.OperationError{Path: op.Path, Err: err})
				continue
			}
			out.Deleted = append(out.Deleted, op.Path)

		case types.OpCreate, types.OpUpdate:
			warn, err := a.write(target, op)
			if err != nil {
				out.Errors = append(out.Errors, types.OperationError{Path: op.Path, Err: err})
				continue
			}
			if warn != "" {
				out.Warnings = append(out.Warnings, warn)
			}
			out.Written = append(out.Written, op.Path)
		}
	}
	return out, nil
}

// write handles both full-content and patch operations for one file. The
// returned warning is non-empty when a full-content update bears little
// resemblance to the file it replaces.
func (a *Applier) write(target string, op types.FileOperation) (string, error) {
	if op.IsPatch() {
		current, err := os.ReadFile(target)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", op.Path, err)
		}
		patched, err := patch.Apply(string(current), op.Hunks)
		if err != nil {
			return "", err
		}
		return "", atomicWrite(target, []byte(patched))
	}

	var warn string
	if op.Kind == types.OpUpdate {
		if current, err := os.ReadFile(target); err == nil && len(current) > 0 {
			if sim := patch.Similarity(string(current), op.Content); sim < replaceSimilarityFloor {
				warn = fmt.Sprintf("%s: replacement shares %.0f%% of the existing content", op.Path, sim*100)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", op.Path, err)
	}
	return warn, atomicWrite(target, []byte(op.Content))
}

// resolve joins a relative operation path onto the root, rejecting
// absolute paths and traversal outside the root.
func (a *Applier) resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path not allowed: %s", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %s", rel)
	}
	return filepath.Join(a.Root, clean), nil
}

// atomicWrite writes data to a temp file in the same directory, then
// renames it over the target. Existing file permissions are preserved.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, ".fluidflow-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ExistingPaths walks the root and returns the set of files present,
// keyed by slash-separated relative path. Parsers use it to distinguish
// creates from updates.
func ExistingPaths(root string) (map[string]bool, error) {
	paths := make(map[string]bool)
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
