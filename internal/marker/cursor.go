// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package marker

import (
	"strings"

	"github.com/ersinkoc/fluidflow/pkg/types"
)

// state is the cursor's position in the marker grammar.
type state int

const (
	stateIdle   state = iota // Scanning for an opening tag
	stateInPlan              // Buffering plan text
	stateInFile              // Buffering file content
)

// Cursor is the streaming marker parser. It is fed chunks in arrival order
// and emits completed operations as soon as their closing tag is seen, so
// memory stays bounded by the currently-open block plus the partial-line
// holdback. One Cursor serves exactly one generation request; concurrent
// requests each get their own.
type Cursor struct {
	state state
	path  string // Open block's path (stateInFile only)

	// Current block content. Completed lines are written with their
	// newline; a line cut off by the end of the stream is written bare.
	buf strings.Builder

	// partial holds bytes of the current line that might still be part of
	// a tag split across chunk boundaries. Once the line can no longer be
	// a tag, its bytes flow straight into buf (passthrough) and only the
	// newline search remains.
	partial     []byte
	passthrough bool

	plan      string
	planSeen  bool
	truncated bool
	consumed  int64

	errs []types.OperationError
}

// NewCursor creates a cursor in the idle state.
func NewCursor() *Cursor {
	return &Cursor{}
}

// Feed consumes one chunk and returns the operations completed by it.
// Chunks must arrive in order; the cursor never reorders or buffers beyond
// the current line.
func (c *Cursor) Feed(chunk string) []types.FileOperation {
	c.consumed += int64(len(chunk))

	var ops []types.FileOperation
	data := chunk
	for {
		idx := strings.IndexByte(data, '\n')
		if idx < 0 {
			c.absorb(data)
			break
		}
		if op := c.finishLine(data[:idx]); op != nil {
			ops = append(ops, *op)
		}
		data = data[idx+1:]
	}
	return ops
}

// Finish flushes the stream end. A block still open becomes a partial
// operation and marks the result truncated: partial but real content beats
// nothing, since it feeds a live preview.
func (c *Cursor) Finish() []types.FileOperation {
	var ops []types.FileOperation

	// A final line without its newline may still close a block.
	if len(c.partial) > 0 {
		if op := c.finishPartial(); op != nil {
			ops = append(ops, *op)
		}
	}

	switch c.state {
	case stateInFile:
		c.truncated = true
		ops = append(ops, types.FileOperation{
			Kind:    types.OpUpdate,
			Path:    c.path,
			Content: c.buf.String(),
		})
		c.resetBlock()
		c.state = stateIdle
	case stateInPlan:
		c.truncated = true
		c.storePlan()
		c.state = stateIdle
	}

	return ops
}

// Plan returns the plan summary collected so far.
func (c *Cursor) Plan() string { return c.plan }

// Truncated reports whether the stream ended mid-block.
func (c *Cursor) Truncated() bool { return c.truncated }

// Errors returns the contained per-block errors collected so far.
func (c *Cursor) Errors() []types.OperationError { return c.errs }

// BytesConsumed returns the total bytes fed to the cursor.
func (c *Cursor) BytesConsumed() int64 { return c.consumed }

// absorb takes bytes that do not yet end a line. While the line could
// still be a tag they are held back; otherwise they flow into the block
// buffer immediately, or are discarded in idle where prose is ignored.
// Either way the holdback stays bounded by the tag prefix.
func (c *Cursor) absorb(s string) {
	if s == "" {
		return
	}
	if c.passthrough {
		if c.state != stateIdle {
			c.buf.WriteString(s)
		}
		return
	}
	c.partial = append(c.partial, s...)
	if !couldBeTag(string(c.partial)) {
		if c.state != stateIdle {
			c.buf.Write(c.partial)
		}
		c.partial = c.partial[:0]
		c.passthrough = true
	}
}

// finishLine completes the current line with rest (the bytes up to the
// newline) and dispatches it. Returns a completed operation if the line
// closed a file block.
func (c *Cursor) finishLine(rest string) *types.FileOperation {
	if c.passthrough {
		// Earlier bytes of this line are already in the buffer (or were
		// discarded in idle) and the line is known not to be a tag.
		if c.state != stateIdle {
			c.buf.WriteString(rest)
			c.buf.WriteByte('\n')
		}
		c.passthrough = false
		return nil
	}

	line := string(c.partial) + rest
	c.partial = c.partial[:0]

	if kind, path, ok := parseTag(strings.TrimSpace(line)); ok {
		return c.handleTag(kind, path, line)
	}

	if c.state != stateIdle {
		c.buf.WriteString(line)
		c.buf.WriteByte('\n')
	}
	return nil
}

// finishPartial dispatches the held-back final line of the stream. Unlike
// finishLine it writes content without a trailing newline: the line never
// got one.
func (c *Cursor) finishPartial() *types.FileOperation {
	line := string(c.partial)
	c.partial = c.partial[:0]

	if kind, path, ok := parseTag(strings.TrimSpace(line)); ok {
		return c.handleTag(kind, path, line)
	}
	if c.state != stateIdle {
		c.buf.WriteString(line)
	}
	return nil
}

// handleTag applies a tag line to the state machine.
func (c *Cursor) handleTag(kind tagKind, path, line string) *types.FileOperation {
	switch c.state {
	case stateIdle:
		switch kind {
		case tagFileOpen:
			c.state = stateInFile
			c.resetBlock()
			c.path = path
		case tagPlanOpen:
			c.state = stateInPlan
			c.resetBlock()
		case tagDelete:
			return &types.FileOperation{Kind: types.OpDelete, Path: path}
		}
		// Stray closing tags in idle are prose; ignore.

	case stateInPlan:
		switch kind {
		case tagPlanClose:
			c.storePlan()
			c.state = stateIdle
		case tagFileOpen:
			// A missing /PLAN must not swallow the files that follow.
			c.storePlan()
			c.state = stateInFile
			c.path = path
		case tagDelete:
			c.storePlan()
			c.state = stateIdle
			return &types.FileOperation{Kind: types.OpDelete, Path: path}
		default:
			// create:/update: lines and anything else are plan text.
			c.buf.WriteString(line)
			c.buf.WriteByte('\n')
		}

	case stateInFile:
		if kind == tagFileClose {
			if path != "" && path != c.path {
				c.errs = append(c.errs, types.OperationError{
					Path: c.path,
					Err:  &types.UnbalancedBlockError{Path: c.path, ClosePath: path},
				})
				c.resetBlock()
				c.state = stateIdle
				return nil
			}
			op := &types.FileOperation{
				Kind:    types.OpUpdate,
				Path:    c.path,
				Content: c.buf.String(),
			}
			c.resetBlock()
			c.state = stateIdle
			return op
		}
		// Any other tag inside a file block is content, verbatim.
		c.buf.WriteString(line)
		c.buf.WriteByte('\n')
	}

	return nil
}

// storePlan records the buffered plan text. Only the first plan block is
// kept; the grammar allows at most one.
func (c *Cursor) storePlan() {
	if !c.planSeen {
		c.plan = strings.TrimSpace(c.buf.String())
		c.planSeen = true
	}
	c.resetBlock()
}

func (c *Cursor) resetBlock() {
	c.buf.Reset()
	c.partial = c.partial[:0]
	c.passthrough = false
	c.path = ""
}
