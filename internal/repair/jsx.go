// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package repair

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// Void HTML elements never take a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// balanceJSX appends closing tags for JSX elements left open at the end of
// the content, innermost first. It runs only on .tsx/.jsx content and uses
// a tag-boundary scan, not a full parser: good enough for truncated output,
// conservative everywhere else (it only appends, never reorders).
func balanceJSX(content string, kind types.FileKind) string {
	if kind != types.KindJSX {
		return content
	}

	var stack []string // open tag names; "" is a fragment

	i := 0
	for i < len(content) {
		c := content[i]
		if c != '<' {
			i++
			continue
		}

		rest := content[i+1:]
		switch {
		case strings.HasPrefix(rest, "/>"):
			i += 2

		case strings.HasPrefix(rest, "/"):
			// Closing tag.
			name, _ := scanTagName(rest[1:])
			closeEnd := strings.IndexByte(rest, '>')
			if closeEnd < 0 {
				i = len(content)
				break
			}
			popTag(&stack, name)
			i += closeEnd + 2

		case strings.HasPrefix(rest, ">"):
			// Fragment opener <>.
			if !jsxContextBefore(content, i) {
				i += 2
				break
			}
			stack = append(stack, "")
			i += 2

		case len(rest) > 0 && isTagStart(rest[0]):
			// A '<' in expression position starts a tag; after an
			// identifier it is a comparison or a generic parameter list.
			if !jsxContextBefore(content, i) {
				i++
				break
			}
			name, nameEnd := scanTagName(rest)
			tagEnd, selfClosing := scanToTagEnd(rest[nameEnd:])
			if tagEnd < 0 {
				// Tag cut off by truncation; treat as open.
				if !voidElements[name] {
					stack = append(stack, name)
				}
				i = len(content)
				break
			}
			if !selfClosing && !voidElements[name] {
				stack = append(stack, name)
			}
			i += 1 + nameEnd + tagEnd

		default:
			i++
		}
	}

	if len(stack) == 0 {
		return content
	}

	var b strings.Builder
	b.Grow(len(content) + len(stack)*8)
	b.WriteString(content)
	for j := len(stack) - 1; j >= 0; j-- {
		if stack[j] == "" {
			b.WriteString("</>")
		} else {
			b.WriteString("</" + stack[j] + ">")
		}
	}
	return b.String()
}

// popTag removes the topmost occurrence of name from the stack. A closing
// tag for something never opened is ignored.
func popTag(stack *[]string, name string) {
	s := *stack
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == name {
			*stack = append(s[:i], s[i+1:]...)
			return
		}
	}
}

// jsxKeywords are tokens after which a '<' starts an element rather than
// a comparison.
var jsxKeywords = map[string]bool{
	"return": true, "default": true, "else": true, "yield": true,
	"await": true, "case": true, "do": true, "typeof": true,
	"in": true, "of": true,
}

// jsxContextBefore reports whether the '<' at ltIndex sits in expression
// position: at the start of content, after an opener/operator, or after a
// keyword like return. Anything else (identifier, quote, number) means a
// comparison, generic instantiation, or string content.
func jsxContextBefore(content string, ltIndex int) bool {
	i := ltIndex - 1
	for i >= 0 && (content[i] == ' ' || content[i] == '\t' || content[i] == '\n' || content[i] == '\r') {
		i--
	}
	if i < 0 {
		return true
	}

	switch content[i] {
	case '(', '{', '[', ',', '=', '>', '&', '|', '?', ':', ';', '!', '+':
		return true
	}

	if !isWordByte(content[i]) {
		return false
	}
	start := i
	for start >= 0 && isWordByte(content[start]) {
		start--
	}
	return jsxKeywords[content[start+1:i+1]]
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '$'
}

func isTagStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// scanTagName reads a JSX tag name (letters, digits, dots for member
// expressions like Foo.Bar). Returns the name and the index just past it.
func scanTagName(s string) (string, int) {
	i := 0
	for i < len(s) {
		c := s[i]
		if isTagStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-' {
			i++
			continue
		}
		break
	}
	return s[:i], i
}

// scanToTagEnd walks from just past the tag name to the closing '>' of the
// opening tag, skipping quoted attribute values and braced expressions.
// Returns the index just past '>' (relative to its input) and whether the
// tag was self-closing, or -1 when the input ends inside the tag.
func scanToTagEnd(s string) (int, bool) {
	depth := 0 // brace depth for attribute expressions
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '>':
			if depth == 0 {
				selfClosing := i > 0 && s[i-1] == '/'
				return i + 1, selfClosing
			}
		}
	}
	return -1, false
}
