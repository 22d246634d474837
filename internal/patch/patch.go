// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package patch applies search/replace hunks to file content. Hunks run
// strictly in order against the evolving buffer, each search text must
// match exactly once, and application is all-or-nothing: any failed hunk
// leaves the caller with the original content untouched.
package patch

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Apply runs hunks against content in order. On success it returns the
// patched content. On failure it returns the ORIGINAL content together
// with a *types.PatchNotFoundError or *types.PatchAmbiguousError naming
// the offending hunk; earlier hunks' effects are discarded.
func Apply(content string, hunks []types.Hunk) (string, error) {
	working := content

	for i, h := range hunks {
		count := strings.Count(working, h.Search)
		switch {
		case h.Search == "" || count == 0:
			return content, notFound(working, h.Search, i)
		case count > 1:
			return content, &types.PatchAmbiguousError{HunkIndex: i, Count: count}
		}
		working = strings.Replace(working, h.Search, h.Replace, 1)
	}

	return working, nil
}

// notFound builds the not-found error, attaching the closest candidate
// region so the failure is actionable.
func notFound(content, search string, hunkIndex int) *types.PatchNotFoundError {
	closest, sim, lineStart, lineEnd := findClosestMatch(content, search)
	return &types.PatchNotFoundError{
		HunkIndex:        hunkIndex,
		ClosestMatch:     closest,
		Similarity:       sim,
		ClosestLineStart: lineStart,
		ClosestLineEnd:   lineEnd,
	}
}

// findClosestMatch slides a window the size of the search text over the
// content lines and returns the most similar region with its 1-based line
// range. Diagnostic only: it never participates in matching.
func findClosestMatch(content, search string) (closest string, sim float64, lineStart, lineEnd int) {
	if search == "" || content == "" {
		return "", 0, 0, 0
	}

	contentLines := strings.Split(content, "\n")
	searchLen := len(strings.Split(search, "\n"))
	if searchLen > len(contentLines) {
		searchLen = len(contentLines)
	}

	var bestSim float64
	var bestStart int
	for i := 0; i <= len(contentLines)-searchLen; i++ {
		candidate := strings.Join(contentLines[i:i+searchLen], "\n")
		s := Similarity(candidate, search)
		if s > bestSim {
			bestSim = s
			bestStart = i
		}
	}

	if bestSim == 0 {
		return "", 0, 0, 0
	}
	closest = strings.Join(contentLines[bestStart:bestStart+searchLen], "\n")
	return closest, bestSim, bestStart + 1, bestStart + searchLen
}

// Similarity is a Levenshtein-based ratio between two strings, 0.0 to 1.0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
