// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

func TestParse_FenceWithFileAnnotation(t *testing.T) {
	text := "Here you go:\n\n```tsx file=src/App.tsx\nexport default function App() {}\n```\n"

	result := Parse(text)

	assert.Equal(t, types.FormatFallback, result.UsedFormat)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "src/App.tsx", result.Operations[0].Path)
	assert.Equal(t, types.OpUpdate, result.Operations[0].Kind)
	assert.Equal(t, "export default function App() {}\n", result.Operations[0].Content)
}

func TestParse_PathFromHeadingLine(t *testing.T) {
	cases := []struct {
		name    string
		heading string
	}{
		{"bold heading", "**src/App.tsx**"},
		{"markdown heading", "## src/App.tsx"},
		{"backtick heading with colon", "`src/App.tsx`:"},
		{"bullet heading", "- src/App.tsx"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := tc.heading + "\n```tsx\nexport default function App() {}\n```\n"
			result := Parse(text)

			require.Len(t, result.Operations, 1)
			assert.Equal(t, "src/App.tsx", result.Operations[0].Path)
		})
	}
}

func TestParse_BareFilenameHeading(t *testing.T) {
	text := "package.json\n```json\n{\"name\": \"demo\"}\n```\n"

	result := Parse(text)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "package.json", result.Operations[0].Path)
}

func TestParse_ProseHeadingIsNotAPath(t *testing.T) {
	text := "Here is the updated component:\n```tsx\nexport default function App() {}\n```\n"

	result := Parse(text)

	// No path can be inferred: the block folds into the plan.
	assert.Empty(t, result.Operations)
	assert.Contains(t, result.PlanSummary, "export default function App() {}")
}

func TestParse_MultipleBlocks(t *testing.T) {
	text := "src/a.ts\n```ts\nconst a = 1;\n```\n\nsrc/b.ts\n```ts\nconst b = 2;\n```\n"

	result := Parse(text)
	require.Len(t, result.Operations, 2)
	assert.Equal(t, "src/a.ts", result.Operations[0].Path)
	assert.Equal(t, "src/b.ts", result.Operations[1].Path)
}

func TestParse_HeadingConsumedByPrecedingFence(t *testing.T) {
	// The path heading applies only to the fence that directly follows it;
	// a later pathless fence must not reuse it.
	text := "src/a.ts\n```ts\nconst a = 1;\n```\n```ts\nconst b = 2;\n```\n"

	result := Parse(text)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "src/a.ts", result.Operations[0].Path)
}

func TestParse_UnclosedFenceIsTruncated(t *testing.T) {
	text := "src/a.ts\n```ts\nconst a = 1;\nconst b ="

	result := Parse(text)

	assert.True(t, result.IsTruncated)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "const a = 1;\nconst b =\n", result.Operations[0].Content)
}

func TestParse_PureProse(t *testing.T) {
	text := "I cannot produce code for that request.\nTry rephrasing."

	result := Parse(text)
	assert.Empty(t, result.Operations)
	assert.Equal(t, "I cannot produce code for that request.\nTry rephrasing.", result.PlanSummary)
}

func TestInferPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"src/App.tsx", "src/App.tsx"},
		{"**src/App.tsx**", "src/App.tsx"},
		{"### src/components/Nav.tsx:", "src/components/Nav.tsx"},
		{"index.html", "index.html"},
		{"vite.config.ts", "vite.config.ts"},
		{"Here is the file", ""},
		{"Update src/App.tsx as follows", ""},
		{"README", ""},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, inferPath(tc.in), "input %q", tc.in)
	}
}

func TestPathFromFence(t *testing.T) {
	assert.Equal(t, "src/App.tsx", pathFromFence("```tsx file=src/App.tsx"))
	assert.Equal(t, "src/a.ts", pathFromFence("```ts file=\"src/a.ts\""))
	assert.Equal(t, "", pathFromFence("```tsx"))
	assert.Equal(t, "", pathFromFence("```"))
}
