// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package repair

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// balanceBrackets balances (), {}, and [] with stack discipline, honoring
// string and comment literals. Missing closers are appended in reverse
// opening order; surplus closers are trimmed only from the trailing end of
// the content, where truncated-and-regenerated output tends to stack them.
// Interior surplus closers are left alone.
func balanceBrackets(content string, _ types.FileKind) string {
	type mode int
	const (
		code mode = iota
		lineComment
		blockComment
		singleQuote
		doubleQuote
		backtick
	)

	var stack []byte
	unmatched := map[int]bool{}

	m := code
	escaped := false
	blockStart := 0

	for i := 0; i < len(content); i++ {
		c := content[i]

		switch m {
		case lineComment:
			if c == '\n' {
				m = code
			}
			continue
		case blockComment:
			// The terminating '*' must not belong to the '/*' opener.
			if c == '/' && i-1 >= blockStart+2 && content[i-1] == '*' {
				m = code
			}
			continue
		case singleQuote, doubleQuote, backtick:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '\'' && m == singleQuote,
				c == '"' && m == doubleQuote,
				c == '`' && m == backtick:
				m = code
			}
			continue
		}

		switch c {
		case '/':
			if i+1 < len(content) {
				if content[i+1] == '/' {
					m = lineComment
				} else if content[i+1] == '*' {
					m = blockComment
					blockStart = i
				}
			}
		case '\'':
			m = singleQuote
		case '"':
			m = doubleQuote
		case '`':
			m = backtick
		case '(', '{', '[':
			stack = append(stack, c)
		case ')', '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == openerFor(c) {
				stack = stack[:len(stack)-1]
			} else {
				unmatched[i] = true
			}
		}
	}

	// Trim surplus closers from the trailing end only.
	removed := map[int]bool{}
	for i := len(content) - 1; i >= 0; i-- {
		c := content[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if unmatched[i] {
			removed[i] = true
			continue
		}
		break
	}

	if len(removed) == 0 && len(stack) == 0 {
		return content
	}

	// Appended closers must land in code, not inside an unterminated
	// literal or comment, or the next run would append them again.
	terminator := ""
	if len(stack) > 0 {
		switch m {
		case singleQuote:
			terminator = "'"
		case doubleQuote:
			terminator = `"`
		case backtick:
			terminator = "`"
		case blockComment:
			terminator = "*/"
		case lineComment:
			terminator = "\n"
		}
		if escaped {
			// A trailing backslash would swallow the closing quote.
			terminator += terminator
		}
	}

	var b strings.Builder
	b.Grow(len(content) + len(terminator) + len(stack))
	for i := 0; i < len(content); i++ {
		if !removed[i] {
			b.WriteByte(content[i])
		}
	}
	b.WriteString(terminator)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(closerFor(stack[i]))
	}
	return b.String()
}

func openerFor(closer byte) byte {
	switch closer {
	case ')':
		return '('
	case '}':
		return '{'
	default:
		return '['
	}
}

func closerFor(opener byte) byte {
	switch opener {
	case '(':
		return ')'
	case '{':
		return '}'
	default:
		return ']'
	}
}
