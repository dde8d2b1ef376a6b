package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"search-agent/internal/session"
)

// ToolCall is one tool invocation observed during a run.
type ToolCall struct {
	ID     string
	Name   string
	Args   map[string]any
	Result map[string]any
}

// Response is the outcome of one run.
type Response struct {
	SessionID string
	// Output is the text the agent produced after its last tool call.
	Output    string
	ToolCalls []ToolCall
}

// Streamer runs the agent and forwards what it produces to a Sink
type Streamer struct {
	runner   *runner.Runner
	sessions *session.Manager
	timeout  time.Duration
	logger   *zap.Logger
}

// NewStreamer creates a new streamer
func NewStreamer(a agent.Agent, sessions *session.Manager, timeout time.Duration, logger *zap.Logger) (*Streamer, error) {
	r, err := runner.New(runner.Config{
		AppName:        sessions.AppName(),
		Agent:          a,
		SessionService: sessions.Service(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{
		runner:   r,
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Run sends message to the agent within the session sessionID (created when
// missing) and emits text, tool calls and tool results to sink as they happen.
func (s *Streamer) Run(ctx context.Context, userID, sessionID, message string, sink Sink) (*Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if sink == nil {
		sink = Discard
	}

	sess, err := s.sessions.GetOrCreate(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &Response{SessionID: sess.ID()}
	pending := make(map[string]int)
	var output strings.Builder

	start := time.Now()
	content := genai.NewContentFromText(message, genai.RoleUser)

	for ev, err := range s.runner.Run(ctx, userID, sess.ID(), content, agent.RunConfig{}) {
		if err != nil {
			return nil, fmt.Errorf("agent execution error: %w", err)
		}
		if ev == nil {
			break
		}

		if err := s.forward(ctx, ev, sink, resp, pending, &output); err != nil {
			return nil, err
		}

		if ev.IsFinalResponse() {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("agent execution error: %w", err)
	}

	resp.Output = output.String()
	s.logger.Info("agent run completed",
		zap.String("session_id", resp.SessionID),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.Int("output_bytes", len(resp.Output)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// forward turns the parts of one agent event into chunks.
func (s *Streamer) forward(ctx context.Context, ev *adksession.Event, sink Sink, resp *Response, pending map[string]int, output *strings.Builder) error {
	if ev.Content == nil {
		return nil
	}

	for _, part := range ev.Content.Parts {
		if part == nil || part.Thought {
			continue
		}

		switch {
		case part.FunctionCall != nil:
			// Text before a tool call is narration, not the answer.
			output.Reset()
			fc := part.FunctionCall
			pending[fc.ID] = len(resp.ToolCalls)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
			s.logger.Debug("tool call", zap.String("tool", fc.Name), zap.String("call_id", fc.ID))
			if err := sink.Emit(ctx, Chunk{Kind: ChunkToolCall, ToolCallID: fc.ID, ToolName: fc.Name, Args: fc.Args}); err != nil {
				return fmt.Errorf("failed to emit tool call: %w", err)
			}

		case part.FunctionResponse != nil:
			fr := part.FunctionResponse
			if i, ok := pending[fr.ID]; ok {
				resp.ToolCalls[i].Result = fr.Response
				delete(pending, fr.ID)
			}
			if err := sink.Emit(ctx, Chunk{Kind: ChunkToolResult, ToolCallID: fr.ID, ToolName: fr.Name, Result: fr.Response}); err != nil {
				return fmt.Errorf("failed to emit tool result: %w", err)
			}

		case part.Text != "":
			output.WriteString(part.Text)
			if err := sink.Emit(ctx, Chunk{Kind: ChunkText, Text: part.Text}); err != nil {
				return fmt.Errorf("failed to emit text: %w", err)
			}
		}
	}
	return nil
}
