package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/encoding/sse"
	"go.uber.org/zap"

	"search-agent/internal/stream"
)

// DefaultUserID is the user the hosted agent runs on behalf of.
const DefaultUserID = "agui_user"

const emptyResponseMessage = "I received your message, but couldn't generate a response."

// Handler serves the AG-UI protocol over Server-Sent Events
type Handler struct {
	streamer *stream.Streamer
	states   *threadStates
	logger   *zap.Logger
	userID   string
}

// NewHandler creates a new handler
func NewHandler(streamer *stream.Streamer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		streamer: streamer,
		states:   newThreadStates(),
		logger:   logger,
		userID:   DefaultUserID,
	}
}

// HandleAgentRequest handles AG-UI protocol requests
func (h *Handler) HandleAgentRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var input RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := ValidateMessages(input.Messages); err != nil {
		h.logger.Warn("invalid messages", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	threadID := input.ThreadID
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	runID := input.RunID
	if runID == "" {
		runID = events.GenerateRunID()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	out := newEventWriter(w, h.logger)

	state := h.states.merge(threadID, input.State)

	// No messages: the client is synchronizing state on connect.
	if len(input.Messages) == 0 {
		out.write(ctx, events.NewStateSnapshotEvent(state))
		return
	}

	message := lastUserMessage(input.Messages)
	if message == "" {
		out.write(ctx, events.NewRunErrorEvent("No user message found", events.WithRunID(runID)))
		return
	}

	if !out.write(ctx, events.NewRunStartedEvent(threadID, runID)) {
		return
	}
	if !out.write(ctx, events.NewStateSnapshotEvent(state)) {
		return
	}

	messageID := events.GenerateMessageID()
	if !out.write(ctx, events.NewTextMessageStartEvent(messageID, events.WithRole("assistant"))) {
		return
	}

	resp, err := h.streamer.Run(ctx, h.userID, threadID, message, out.sink(messageID))
	if err != nil {
		h.logger.Error("agent run failed",
			zap.String("thread_id", threadID),
			zap.String("run_id", runID),
			zap.Error(err),
		)
		out.write(ctx, events.NewRunErrorEvent(err.Error(), events.WithRunID(runID)))
		return
	}

	if resp.Output == "" {
		if !out.write(ctx, events.NewTextMessageContentEvent(messageID, emptyResponseMessage)) {
			return
		}
	}

	if !out.write(ctx, events.NewTextMessageEndEvent(messageID)) {
		return
	}
	out.write(ctx, events.NewRunFinishedEvent(threadID, runID))
}

// eventWriter encodes AG-UI events onto the response and flushes each one.
type eventWriter struct {
	w       http.ResponseWriter
	buf     *bufio.Writer
	encoder *sse.SSEWriter
	logger  *zap.Logger
	// toolCallIDs maps agent call ids to the ids sent to the client.
	toolCallIDs map[string]string
}

func newEventWriter(w http.ResponseWriter, logger *zap.Logger) *eventWriter {
	return &eventWriter{
		w:           w,
		buf:         bufio.NewWriter(w),
		encoder:     sse.NewSSEWriter(),
		logger:      logger,
		toolCallIDs: make(map[string]string),
	}
}

func (e *eventWriter) emit(ctx context.Context, ev events.Event) error {
	if err := e.encoder.WriteEvent(ctx, e.buf, ev); err != nil {
		return fmt.Errorf("failed to write %s event: %w", ev.Type(), err)
	}
	if err := e.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s event: %w", ev.Type(), err)
	}
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// write emits ev and reports whether the stream is still usable.
func (e *eventWriter) write(ctx context.Context, ev events.Event) bool {
	if err := e.emit(ctx, ev); err != nil {
		e.logger.Warn("event write failed", zap.Error(err))
		return false
	}
	return true
}

// sink translates agent chunks into AG-UI events for messageID.
func (e *eventWriter) sink(messageID string) stream.Sink {
	return stream.SinkFunc(func(ctx context.Context, c stream.Chunk) error {
		switch c.Kind {
		case stream.ChunkText:
			return e.emit(ctx, events.NewTextMessageContentEvent(messageID, c.Text))

		case stream.ChunkToolCall:
			id := c.ToolCallID
			if id == "" {
				id = events.GenerateToolCallID()
			}
			e.toolCallIDs[c.ToolCallID] = id
			if err := e.emit(ctx, events.NewToolCallStartEvent(id, c.ToolName)); err != nil {
				return err
			}
			if c.Args != nil {
				args, err := json.Marshal(c.Args)
				if err != nil {
					return fmt.Errorf("failed to encode tool args: %w", err)
				}
				return e.emit(ctx, events.NewToolCallArgsEvent(id, string(args)))
			}
			return nil

		case stream.ChunkToolResult:
			id, ok := e.toolCallIDs[c.ToolCallID]
			if !ok {
				id = events.GenerateToolCallID()
			}
			delete(e.toolCallIDs, c.ToolCallID)
			result, err := json.Marshal(c.Result)
			if err != nil {
				return fmt.Errorf("failed to encode tool result: %w", err)
			}
			if err := e.emit(ctx, events.NewToolCallResultEvent(messageID, id, string(result))); err != nil {
				return err
			}
			return e.emit(ctx, events.NewToolCallEndEvent(id))
		}
		return nil
	})
}
