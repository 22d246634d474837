// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersinkoc/fluidflow/internal/repair"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

func TestParse_CleanJSONEnvelope(t *testing.T) {
	text := `{"plan": "Add the App component.", "files": {"src/App.tsx": "export default function App() {\n  return null;\n}\n"}}`

	e := New(Options{})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, types.FormatJSON, result.UsedFormat)
	assert.Equal(t, "Add the App component.", result.PlanSummary)
	assert.False(t, result.NeededRepair)
	assert.False(t, result.IsTruncated)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Operations, 1)
	op := result.Operations[0]
	assert.Equal(t, "src/App.tsx", op.Path)
	assert.Equal(t, "export default function App() {\n  return null;\n}\n", op.Content)
}

func TestParse_MarkerResponse(t *testing.T) {
	text := "<!-- PLAN -->\nOne new file.\n<!-- /PLAN -->\n" +
		"<!-- FILE:src/a.ts -->\nconst a = 1;\n<!-- /FILE:src/a.ts -->\n"

	e := New(Options{})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, types.FormatMarker, result.UsedFormat)
	assert.Equal(t, "One new file.", result.PlanSummary)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "const a = 1;\n", result.Operations[0].Content)
}

func TestParse_TruncatedMarkerRepaired(t *testing.T) {
	text := "<!-- FILE:src/App.tsx -->\nexport default function App(){"

	e := New(Options{ExistingPaths: map[string]bool{}})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.True(t, result.IsTruncated)
	assert.True(t, result.NeededRepair)

	require.Len(t, result.Operations, 1)
	op := result.Operations[0]
	assert.Equal(t, types.OpCreate, op.Kind, "unknown path becomes a create")
	assert.Equal(t, "export default function App(){}", op.Content)

	trace, ok := result.Traces["src/App.tsx"]
	require.True(t, ok)
	assert.True(t, trace.Changed())
}

func TestParse_EmptyInput(t *testing.T) {
	e := New(Options{})

	_, err := e.Parse(context.Background(), "   \n\t")

	var noOps *types.NoOperationsError
	assert.ErrorAs(t, err, &noOps)
}

func TestParse_MalformedEnvelopeDegradesToFallback(t *testing.T) {
	// Looks like the JSON envelope but cannot decode; the failure is kept
	// as data while the fallback salvages what it can.
	text := `{"plan": "x", files: [}`

	e := New(Options{})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, types.FormatFallback, result.UsedFormat)
	assert.Empty(t, result.Operations)

	require.NotEmpty(t, result.Errors)
	var malformed *types.MalformedJSONError
	assert.ErrorAs(t, result.Errors[0].Err, &malformed)
}

func TestParse_DroppedMarkerBlockErrorSurvivesFallback(t *testing.T) {
	// The only block has a mismatched closing tag, so the marker parser
	// yields nothing and routing degrades to the fallback. The dropped
	// block's error must still reach the caller.
	text := "<!-- FILE:src/a.ts -->\nconst a = 1;\n<!-- /FILE:src/b.ts -->\n"

	e := New(Options{})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, types.FormatFallback, result.UsedFormat)

	require.NotEmpty(t, result.Errors)
	var unbalanced *types.UnbalancedBlockError
	assert.ErrorAs(t, result.Errors[0].Err, &unbalanced)
	assert.Equal(t, "src/a.ts", result.Errors[0].Path)
}

func TestParse_ProseWithFencedBlockUsesFallback(t *testing.T) {
	text := "Here is the component:\n\n```tsx file=src/App.tsx\nexport default function App() {}\n```\n"

	e := New(Options{})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, types.FormatFallback, result.UsedFormat)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "src/App.tsx", result.Operations[0].Path)
}

func TestParse_ReclassifiesAgainstWorkspace(t *testing.T) {
	text := "<!-- FILE:src/known.ts -->\nconst a = 1;\n<!-- /FILE:src/known.ts -->\n" +
		"<!-- FILE:src/new.ts -->\nconst b = 2;\n<!-- /FILE:src/new.ts -->\n"

	e := New(Options{ExistingPaths: map[string]bool{"src/known.ts": true}})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	require.Len(t, result.Operations, 2)
	assert.Equal(t, types.OpUpdate, result.Operations[0].Kind)
	assert.Equal(t, types.OpCreate, result.Operations[1].Kind)
}

func TestParse_NilWorkspaceKeepsUpdates(t *testing.T) {
	text := "<!-- FILE:src/new.ts -->\nconst b = 2;\n<!-- /FILE:src/new.ts -->\n"

	e := New(Options{})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, types.OpUpdate, result.Operations[0].Kind)
}

func TestParse_DisableRepair(t *testing.T) {
	text := "<!-- FILE:src/App.tsx -->\nexport default function App(){"

	e := New(Options{DisableRepair: true})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.False(t, result.NeededRepair)
	assert.Equal(t, "export default function App(){", result.Operations[0].Content)
	assert.Empty(t, result.Traces)
}

func TestParse_DisabledPass(t *testing.T) {
	text := "<!-- FILE:src/App.tsx -->\nexport default function App(){"

	e := New(Options{DisabledPasses: []string{repair.PassBrackets}})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.False(t, result.NeededRepair)
	assert.Equal(t, "export default function App(){", result.Operations[0].Content)
}

func TestParse_PatchOperationsNeverRepaired(t *testing.T) {
	text := `{"diffs": {"src/a.ts": [{"search": "const a = (", "replace": "const a = ["}]}}`

	e := New(Options{DiffMode: true, ExistingPaths: map[string]bool{"src/a.ts": true}})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	require.Len(t, result.Operations, 1)
	op := result.Operations[0]
	assert.True(t, op.IsPatch())
	// An unbalanced paren in a hunk stays exactly as written.
	assert.Equal(t, "const a = (", op.Hunks[0].Search)
	assert.False(t, result.NeededRepair)
}

func TestParse_HintBiasesAmbiguousText(t *testing.T) {
	// A bare fenced block detects as neither format; the marker hint alone
	// must not conjure marker operations out of it.
	text := "```ts\nconst a = 1;\n```\n"

	e := New(Options{Hint: types.FormatMarker})
	result, err := e.Parse(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, types.FormatFallback, result.UsedFormat)
}

func TestSession_MatchesOneShot(t *testing.T) {
	text := "<!-- PLAN -->\nRework the layout.\n<!-- /PLAN -->\n" +
		"<!-- FILE:src/App.tsx -->\nexport default function App() {\n  return <main />;\n}\n<!-- /FILE:src/App.tsx -->\n" +
		"<!-- DELETE:src/Old.tsx -->\n"

	ctx := context.Background()
	e := New(Options{})

	oneShot, err := e.Parse(ctx, text)
	require.NoError(t, err)

	s := e.NewSession()
	for i := 0; i < len(text); i += 7 {
		end := i + 7
		if end > len(text) {
			end = len(text)
		}
		s.Feed(text[i:end])
	}
	streamed, err := s.Finish(ctx)
	require.NoError(t, err)

	assert.Equal(t, oneShot.Operations, streamed.Operations)
	assert.Equal(t, oneShot.PlanSummary, streamed.PlanSummary)
	assert.Equal(t, oneShot.NeededRepair, streamed.NeededRepair)
	assert.Equal(t, oneShot.IsTruncated, streamed.IsTruncated)
}

func TestSession_TruncatedStreamRepaired(t *testing.T) {
	ctx := context.Background()
	e := New(Options{ExistingPaths: map[string]bool{}})
	s := e.NewSession()

	assert.Empty(t, s.Feed("<!-- FILE:src/App.tsx -->\nexport default"))
	assert.Empty(t, s.Feed(" function App(){"))

	result, err := s.Finish(ctx)
	require.NoError(t, err)

	assert.True(t, result.IsTruncated)
	assert.True(t, result.NeededRepair)
	require.Len(t, result.Operations, 1)

	op := result.Operations[0]
	assert.Equal(t, "src/App.tsx", op.Path)
	assert.Equal(t, types.OpCreate, op.Kind)
	assert.Equal(t, "export default function App(){}", op.Content)
}

func TestSession_CompletedBlocksSurfaceDuringFeed(t *testing.T) {
	e := New(Options{})
	s := e.NewSession()

	ops := s.Feed("<!-- FILE:src/a.ts -->\nconst a = 1;\n<!-- /FILE:src/a.ts -->\n")
	require.Len(t, ops, 1)
	assert.Equal(t, "src/a.ts", ops[0].Path)
}

func TestSession_JSONAnswerToStreamingRequest(t *testing.T) {
	// A model may ignore the streaming format and answer with the JSON
	// envelope; Finish hands the accumulated text to the one-shot path.
	text := `{"files": {"src/a.ts": "const a = 1;\n"}}`

	e := New(Options{})
	s := e.NewSession()
	s.Feed(text)

	result, err := s.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.FormatJSON, result.UsedFormat)
	require.Len(t, result.Operations, 1)
	assert.Equal(t, "src/a.ts", result.Operations[0].Path)
}

func TestSession_DoubleFinish(t *testing.T) {
	e := New(Options{})
	s := e.NewSession()
	s.Feed("<!-- FILE:a.ts -->\nx\n<!-- /FILE:a.ts -->\n")

	_, err := s.Finish(context.Background())
	require.NoError(t, err)

	_, err = s.Finish(context.Background())
	var noOps *types.NoOperationsError
	assert.ErrorAs(t, err, &noOps)

	assert.Nil(t, s.Feed("more"), "feeding a finished session is a no-op")
}
