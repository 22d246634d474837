// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package llm wraps the AWS Bedrock ConverseStream API for LLM access.
package llm

import (
	"fmt"
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// envelopePrompt instructs the model to respond with the JSON envelope.
const envelopePrompt = `You are a coding assistant that generates complete project files.

Respond with a single JSON object, optionally inside a ` + "```json" + ` fenced
block, using exactly this schema:

{
  "plan": "one paragraph describing the change",
  "files": { "relative/path.tsx": "full file content", ... },
  "create": ["paths that are new files"],
  "delete": ["paths to remove"]
}

Rules:
- Every entry under "files" carries the COMPLETE file content, not a fragment.
- Paths are relative, forward-slash separated.
- Do not wrap file content in markdown fences inside the JSON strings.
- Emit no prose outside the JSON object.`

// diffPrompt extends the envelope with search/replace hunks for targeted edits.
const diffPrompt = `

For small, targeted edits to existing files you may use a "diffs" key instead
of repeating the whole file:

  "diffs": { "relative/path.ts": [ { "search": "exact text", "replace": "new text" }, ... ] }

Each search text must appear exactly once in the current file. When a path has
both a "files" entry and a "diffs" entry, the diffs win.`

// markerPrompt instructs the model to respond with HTML-comment markers,
// the format the streaming path parses incrementally.
const markerPrompt = `You are a coding assistant that generates complete project files.

Structure your response with HTML comment markers:

<!-- PLAN -->
one paragraph describing the change
<!-- /PLAN -->
<!-- FILE:relative/path.tsx -->
full file content
<!-- /FILE:relative/path.tsx -->
<!-- DELETE:relative/old.ts -->

Rules:
- Every FILE block carries the COMPLETE file content, not a fragment.
- Each marker sits alone on its own line.
- Paths are relative, forward-slash separated.
- Emit no text outside the marker blocks.`

// SystemPrompt returns the instruction block for the requested response
// format. Streaming callers want markers; one-shot callers want the JSON
// envelope, with hunks enabled in diff mode.
func SystemPrompt(streaming, diffMode bool) string {
	if streaming {
		return markerPrompt
	}
	if diffMode {
		return envelopePrompt + diffPrompt
	}
	return envelopePrompt
}

// ConstructMessages builds the Bedrock API message array from the system
// prompt, current file contents, and the user's task.
//
// The message order is:
//  1. System message (separate field, not in messages array)
//  2. User message with current file contents (paths and numbered lines)
//  3. User message with the task
func ConstructMessages(systemPrompt string, files []types.FileContent, userPrompt string) ([]brtypes.SystemContentBlock, []brtypes.Message) {
	system := []brtypes.SystemContentBlock{
		&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
	}

	var messages []brtypes.Message

	if len(files) > 0 {
		var buf strings.Builder
		buf.WriteString("## Current Files\n\n")
		for _, f := range files {
			buf.WriteString(formatFileContent(f))
			buf.WriteString("\n")
		}
		messages = append(messages, userMessage(buf.String()))
	}

	messages = append(messages, userMessage(userPrompt))

	return system, messages
}

// ConstructRetryMessages appends a feedback message containing parse or
// patch errors after the assistant's previous response. The conversation
// continues with the error output as a follow-up user message.
func ConstructRetryMessages(prevMessages []brtypes.Message, assistantResponse, errorOutput string) []brtypes.Message {
	messages := append(prevMessages, assistantMessage(assistantResponse))

	feedback := "## Errors\n\nThe previous response produced the following errors. Please fix them:\n\n" + errorOutput
	messages = append(messages, userMessage(feedback))

	return messages
}

// formatFileContent formats a file's content with path header and line numbers.
func formatFileContent(f types.FileContent) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("### %s\n\n", f.Path))

	lines := strings.Split(f.Content, "\n")
	for i, line := range lines {
		buf.WriteString(fmt.Sprintf("%4d │ %s\n", i+1, line))
	}

	return buf.String()
}

// userMessage creates a user message with text content.
func userMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}

// assistantMessage creates an assistant message with text content.
func assistantMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleAssistant,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}
