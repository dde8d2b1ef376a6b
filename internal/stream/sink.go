package stream

import (
	"context"
	"fmt"
	"io"
)

// ChunkKind identifies what a Chunk carries.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkToolCall
	ChunkToolResult
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkToolCall:
		return "tool_call"
	case ChunkToolResult:
		return "tool_result"
	default:
		return fmt.Sprintf("chunk(%d)", int(k))
	}
}

// Chunk is one piece of agent output.
type Chunk struct {
	Kind       ChunkKind
	Text       string
	ToolCallID string
	ToolName   string
	Args       map[string]any
	Result     map[string]any
}

// Sink receives chunks in the order the agent produces them. An error stops
// the run.
type Sink interface {
	Emit(ctx context.Context, c Chunk) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, c Chunk) error

func (f SinkFunc) Emit(ctx context.Context, c Chunk) error {
	return f(ctx, c)
}

// Discard drops every chunk.
var Discard Sink = SinkFunc(func(context.Context, Chunk) error { return nil })

// WriterSink writes the text chunks to w, the console echo of a run.
func WriterSink(w io.Writer) Sink {
	return SinkFunc(func(_ context.Context, c Chunk) error {
		if c.Kind != ChunkText {
			return nil
		}
		_, err := io.WriteString(w, c.Text)
		return err
	})
}
