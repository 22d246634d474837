// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package repair

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// languageFor maps a file kind to its tree-sitter grammar. Kinds without
// a grammar are not verified.
func languageFor(kind types.FileKind) *sitter.Language {
	switch kind {
	case types.KindJSX:
		return tsx.GetLanguage()
	case types.KindTS:
		return typescript.GetLanguage()
	case types.KindJS:
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// countErrorNodes parses content with tree-sitter and counts ERROR nodes.
// Purely diagnostic: the count lands in the RepairTrace so callers can see
// whether repair moved the content toward parseability. Returns -1 when
// the kind has no grammar or parsing fails.
func countErrorNodes(ctx context.Context, content string, kind types.FileKind) int {
	lang := languageFor(kind)
	if lang == nil || content == "" {
		return -1
	}

	root, err := sitter.ParseCtx(ctx, []byte(content), lang)
	if err != nil || root == nil {
		return -1
	}
	return countErrors(root)
}

func countErrors(n *sitter.Node) int {
	count := 0
	if n.Type() == "ERROR" || n.IsMissing() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil {
			count += countErrors(child)
		}
	}
	return count
}
