// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package repair

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// fixImports completes the last line of the leading import block when it
// was cut off: a missing closing brace before from, a missing closing
// quote on the module specifier, or a missing semicolon. It never adds or
// resolves new imports, and a line it cannot complete without inventing a
// module path is left alone. Multi-line import statements are out of
// scope for this pass.
func fixImports(content string, kind types.FileKind) string {
	if kind == types.KindOther {
		return content
	}

	lines := strings.Split(content, "\n")
	last := -1
	wantSemi := false
	for idx, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		if isImportLine(t) {
			if last >= 0 && strings.HasSuffix(strings.TrimSpace(lines[last]), ";") {
				wantSemi = true // earlier block lines show semicolon style
			}
			last = idx
			continue
		}
		break
	}
	if last < 0 {
		return content
	}

	fixed := completeImportLine(lines[last], wantSemi)
	if fixed == lines[last] {
		return content
	}
	lines[last] = fixed
	return strings.Join(lines, "\n")
}

func isImportLine(t string) bool {
	if !strings.HasPrefix(t, "import") {
		return false
	}
	if len(t) == len("import") {
		return true
	}
	c := t[len("import")]
	return c == ' ' || c == '\t' || c == '{' || c == '\'' || c == '"'
}

// completeImportLine appends whatever terminators the line is missing.
// A semicolon alone is added only when the rest of the block uses them or
// when another fix already amended the line.
func completeImportLine(line string, wantSemi bool) string {
	t := strings.TrimRight(line, " \t\r")
	if t == "" || strings.TrimSpace(t) == "import" {
		return line
	}

	amended := false
	fromIdx := indexOfWord(t, "from")

	// Named imports missing their closing brace before from.
	if fromIdx >= 0 && strings.Contains(t[:fromIdx], "{") && !strings.Contains(t[:fromIdx], "}") {
		t = t[:fromIdx] + "} " + t[fromIdx:]
		fromIdx = indexOfWord(t, "from")
		amended = true
	}

	// Module specifier quote.
	specStart := len("import")
	if fromIdx >= 0 {
		specStart = fromIdx + len("from")
	}
	rest := t[specStart:]
	qi := strings.IndexAny(rest, `'"`)
	if qi < 0 {
		// No module path present; completing it would invent one.
		return line
	}
	quote := rest[qi]
	if strings.IndexByte(rest[qi+1:], quote) < 0 {
		t += string(quote)
		amended = true
	}

	if (amended || wantSemi) && !strings.HasSuffix(t, ";") {
		t += ";"
		amended = true
	}
	if !amended {
		return line
	}
	return t
}

// indexOfWord finds word in s at a word boundary, outside any quotes.
func indexOfWord(s, word string) int {
	var quote byte
	for i := 0; i+len(word) <= len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if s[i:i+len(word)] == word {
			beforeOK := i == 0 || !isWordByte(s[i-1])
			afterOK := i+len(word) == len(s) || !isWordByte(s[i+len(word)])
			if beforeOK && afterOK {
				return i
			}
		}
	}
	return -1
}
