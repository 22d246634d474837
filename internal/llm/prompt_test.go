// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"testing"

	"github.com/ersinkoc/fluidflow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

func TestSystemPrompt_Envelope(t *testing.T) {
	p := SystemPrompt(false, false)
	assert.Contains(t, p, `"plan"`)
	assert.Contains(t, p, `"files"`)
	assert.Contains(t, p, `"create"`)
	assert.Contains(t, p, `"delete"`)
	assert.NotContains(t, p, `"diffs"`)
}

func TestSystemPrompt_EnvelopeWithDiffs(t *testing.T) {
	p := SystemPrompt(false, true)
	assert.Contains(t, p, `"diffs"`)
	assert.Contains(t, p, `"search"`)
	assert.Contains(t, p, `"replace"`)
}

func TestSystemPrompt_Markers(t *testing.T) {
	p := SystemPrompt(true, false)
	assert.Contains(t, p, "<!-- FILE:")
	assert.Contains(t, p, "<!-- PLAN -->")
	assert.Contains(t, p, "<!-- DELETE:")
	assert.NotContains(t, p, `"files"`)
}

func TestConstructMessages(t *testing.T) {
	t.Run("with files and task", func(t *testing.T) {
		systemPrompt := "You are a coding assistant."
		files := []types.FileContent{
			{Path: "src/App.tsx", Content: "export default function App() {}\n"},
			{Path: "src/util.ts", Content: "export const id = (x: number) => x;\n"},
		}
		userPrompt := "Add a counter to App"

		system, messages := ConstructMessages(systemPrompt, files, userPrompt)

		require.Len(t, system, 1)
		textBlock, ok := system[0].(*brtypes.SystemContentBlockMemberText)
		require.True(t, ok)
		assert.Equal(t, "You are a coding assistant.", textBlock.Value)

		// Messages: file contents, then the task.
		require.Len(t, messages, 2)
		for _, m := range messages {
			assert.Equal(t, brtypes.ConversationRoleUser, m.Role)
		}

		fileText := extractText(t, messages[0])
		assert.Contains(t, fileText, "src/App.tsx")
		assert.Contains(t, fileText, "src/util.ts")
		assert.Contains(t, fileText, "export default function App()")

		promptText := extractText(t, messages[1])
		assert.Equal(t, "Add a counter to App", promptText)
	})

	t.Run("without files", func(t *testing.T) {
		system, messages := ConstructMessages("system", nil, "do something")

		require.Len(t, system, 1)
		require.Len(t, messages, 1)

		promptText := extractText(t, messages[0])
		assert.Equal(t, "do something", promptText)
	})
}

func TestConstructRetryMessages(t *testing.T) {
	_, initialMessages := ConstructMessages("system", nil, "fix the bug")

	result := ConstructRetryMessages(initialMessages, "Here is my fix...", `patch hunk 0: search text not found`)

	// Original message + assistant response + error feedback.
	require.Len(t, result, 3)

	assert.Equal(t, brtypes.ConversationRoleUser, result[0].Role)

	assert.Equal(t, brtypes.ConversationRoleAssistant, result[1].Role)
	assistantText := extractText(t, result[1])
	assert.Equal(t, "Here is my fix...", assistantText)

	assert.Equal(t, brtypes.ConversationRoleUser, result[2].Role)
	feedbackText := extractText(t, result[2])
	assert.Contains(t, feedbackText, "patch hunk 0")
	assert.Contains(t, feedbackText, "Errors")
}

func TestFormatFileContent(t *testing.T) {
	f := types.FileContent{
		Path:    "src/index.ts",
		Content: "const a = 1;\n\nexport default a;\n",
	}

	result := formatFileContent(f)
	assert.Contains(t, result, "### src/index.ts")
	assert.Contains(t, result, "   1 │ const a = 1;")
	assert.Contains(t, result, "   3 │ export default a;")
}

// extractText returns the text content of the first content block in a message.
func extractText(t *testing.T, m brtypes.Message) string {
	t.Helper()
	require.NotEmpty(t, m.Content)
	textBlock, ok := m.Content[0].(*brtypes.ContentBlockMemberText)
	require.True(t, ok)
	return textBlock.Value
}
