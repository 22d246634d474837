// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package repair

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// fixReturns completes a return statement cut off at the end of the
// content. The bracket pass has already closed any open parens of a
// `return (` expression; this pass appends the statement terminator:
//
//   - content ending with a bare `return` gets its semicolon;
//   - content ending with a `return (...)` expression gets its semicolon.
//
// A dangling return followed by further (unreachable) code is left as-is:
// repair never deletes code, and guessing a value would be worse than the
// truncation itself.
func fixReturns(content string, kind types.FileKind) string {
	if kind == types.KindOther {
		return content
	}

	trimmed := strings.TrimRight(content, " \t\n\r")
	if trimmed == "" {
		return content
	}

	if endsWithWord(trimmed, "return") {
		return content[:len(trimmed)] + ";" + content[len(trimmed):]
	}

	if strings.HasSuffix(trimmed, ")") && returnOpensFinalParen(trimmed) {
		return content[:len(trimmed)] + ";" + content[len(trimmed):]
	}

	return content
}

// endsWithWord reports whether s ends with word at a word boundary.
func endsWithWord(s, word string) bool {
	if !strings.HasSuffix(s, word) {
		return false
	}
	i := len(s) - len(word) - 1
	return i < 0 || !isWordByte(s[i])
}

// returnOpensFinalParen walks backward from the trailing ')' to its
// matching '(' and checks the preceding token is `return`.
func returnOpensFinalParen(s string) bool {
	depth := 0
	i := len(s) - 1
	for ; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				goto found
			}
		}
	}
	return false

found:
	j := i - 1
	for j >= 0 && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j--
	}
	if j < 0 {
		return false
	}
	return endsWithWord(s[:j+1], "return")
}
