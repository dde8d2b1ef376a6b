package handler

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"search-agent/internal/agent"
	"search-agent/internal/agent/agenttest"
	"search-agent/internal/config"
	"search-agent/internal/search"
	"search-agent/internal/session"
	"search-agent/internal/stream"
	"search-agent/internal/tools"
)

func newTestHandler(t *testing.T, turns ...agenttest.Turn) *Handler {
	t.Helper()
	tavily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"answer": "Sunny, 21C", "results": []}`)
	}))
	t.Cleanup(tavily.Close)

	cfg := config.Defaults()
	cfg.Search.Endpoint = tavily.URL
	registry := tools.NewRegistry(nil)
	if err := registry.Register(tools.NewSearchTool(search.NewClient(cfg.Search))); err != nil {
		t.Fatal(err)
	}
	a, err := agent.New(&cfg, agenttest.New(turns...), registry)
	if err != nil {
		t.Fatal(err)
	}
	s, err := stream.NewStreamer(a, session.NewManager("test", nil), time.Minute, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewHandler(s, nil)
}

// post sends body to the handler and decodes the SSE data lines.
func post(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleAgentRequest(rec, req)

	var evs []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev); err != nil {
			t.Fatalf("bad SSE payload %q: %v", line, err)
		}
		evs = append(evs, ev)
	}
	return rec, evs
}

func types(evs []map[string]any) []string {
	var out []string
	for _, ev := range evs {
		out = append(out, ev["type"].(string))
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const userMessage = `{"threadId": "t1", "runId": "r1", "messages": [{"id": "m1", "role": "user", "content": "Should I go to the office?"}]}`

func TestHandleAgentRequest_TextRun(t *testing.T) {
	h := newTestHandler(t, agenttest.Text("Yes, it is sunny."))

	rec, evs := post(t, h, userMessage)
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	want := []string{"RUN_STARTED", "STATE_SNAPSHOT", "TEXT_MESSAGE_START", "TEXT_MESSAGE_CONTENT", "TEXT_MESSAGE_END", "RUN_FINISHED"}
	if got := types(evs); !equal(got, want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	if evs[0]["threadId"] != "t1" || evs[0]["runId"] != "r1" {
		t.Errorf("RUN_STARTED = %v", evs[0])
	}
	if evs[3]["delta"] != "Yes, it is sunny." {
		t.Errorf("content delta = %v", evs[3]["delta"])
	}
}

func TestHandleAgentRequest_ToolRun(t *testing.T) {
	h := newTestHandler(t,
		agenttest.Call(tools.SearchToolName, map[string]any{"query": "weather in Sydney"}),
		agenttest.Text("Sunny, go."),
	)

	_, evs := post(t, h, userMessage)
	want := []string{
		"RUN_STARTED", "STATE_SNAPSHOT", "TEXT_MESSAGE_START",
		"TOOL_CALL_START", "TOOL_CALL_ARGS", "TOOL_CALL_RESULT", "TOOL_CALL_END",
		"TEXT_MESSAGE_CONTENT", "TEXT_MESSAGE_END", "RUN_FINISHED",
	}
	if got := types(evs); !equal(got, want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}

	start, args, result := evs[3], evs[4], evs[5]
	if start["toolCallName"] != tools.SearchToolName {
		t.Errorf("TOOL_CALL_START = %v", start)
	}
	if start["toolCallId"] != args["toolCallId"] || start["toolCallId"] != result["toolCallId"] {
		t.Errorf("tool call ids differ: %v / %v / %v", start["toolCallId"], args["toolCallId"], result["toolCallId"])
	}
	if !strings.Contains(args["delta"].(string), "weather in Sydney") {
		t.Errorf("TOOL_CALL_ARGS delta = %v", args["delta"])
	}
	if !strings.Contains(result["content"].(string), "Sunny, 21C") {
		t.Errorf("TOOL_CALL_RESULT content = %v", result["content"])
	}
}

func TestHandleAgentRequest_EmptyOutputFallback(t *testing.T) {
	h := newTestHandler(t, agenttest.Text(""))

	_, evs := post(t, h, userMessage)
	var contents []string
	for _, ev := range evs {
		if ev["type"] == "TEXT_MESSAGE_CONTENT" {
			contents = append(contents, ev["delta"].(string))
		}
	}
	if len(contents) != 1 || contents[0] != emptyResponseMessage {
		t.Errorf("contents = %q, want the fallback message", contents)
	}
}

func TestHandleAgentRequest_RunError(t *testing.T) {
	h := newTestHandler(t) // no scripted turns: the model fails

	_, evs := post(t, h, userMessage)
	got := types(evs)
	if len(got) == 0 || got[len(got)-1] != "RUN_ERROR" {
		t.Fatalf("event types = %v, want trailing RUN_ERROR", got)
	}
}

func TestHandleAgentRequest_NoMessagesSendsState(t *testing.T) {
	h := newTestHandler(t)

	post(t, h, `{"threadId": "t1", "state": {"city": "Sydney", "units": "C"}, "messages": []}`)
	_, evs := post(t, h, `{"threadId": "t1", "state": {"units": "F"}, "messages": []}`)

	if got := types(evs); !equal(got, []string{"STATE_SNAPSHOT"}) {
		t.Fatalf("event types = %v, want [STATE_SNAPSHOT]", got)
	}
	snapshot, _ := evs[0]["snapshot"].(map[string]any)
	if snapshot["city"] != "Sydney" || snapshot["units"] != "F" {
		t.Errorf("snapshot = %v, want merged thread state", evs[0]["snapshot"])
	}

	_, other := post(t, h, `{"threadId": "t2", "messages": []}`)
	if s, _ := other[0]["snapshot"].(map[string]any); len(s) != 0 {
		t.Errorf("new thread snapshot = %v, want empty", s)
	}
}

func TestHandleAgentRequest_NoUserMessage(t *testing.T) {
	h := newTestHandler(t)

	_, evs := post(t, h, `{"messages": [{"id": "m1", "role": "assistant", "content": "hello"}]}`)
	if got := types(evs); !equal(got, []string{"RUN_ERROR"}) {
		t.Fatalf("event types = %v, want [RUN_ERROR]", got)
	}
}

func TestHandleAgentRequest_BadRequests(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed json", http.MethodPost, "{", http.StatusBadRequest},
		{"message without id", http.MethodPost, `{"messages": [{"role": "user", "content": "x"}]}`, http.StatusBadRequest},
		{"unknown role", http.MethodPost, `{"messages": [{"id": "1", "role": "robot", "content": "x"}]}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/sse", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.HandleAgentRequest(rec, req)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []map[string]any
		wantErr bool
	}{
		{"valid user", []map[string]any{{"id": "1", "role": "user", "content": "hi"}}, false},
		{"array content", []map[string]any{{"id": "1", "role": "user", "content": []any{"a"}}}, false},
		{"tool without content", []map[string]any{{"id": "1", "role": "tool"}}, false},
		{"nil message", []map[string]any{nil}, true},
		{"empty id", []map[string]any{{"id": "", "role": "user", "content": "hi"}}, true},
		{"role not string", []map[string]any{{"id": "1", "role": 3, "content": "hi"}}, true},
		{"user without content", []map[string]any{{"id": "1", "role": "user"}}, true},
		{"numeric content", []map[string]any{{"id": "1", "role": "assistant", "content": 5.0}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessages(tc.msgs)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMessages() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLastUserMessage(t *testing.T) {
	msgs := []map[string]any{
		{"role": "user", "content": "first"},
		{"role": "assistant", "content": "reply"},
		{"role": "user", "content": "second"},
		{"role": "user", "content": []any{"multi", "part"}},
	}
	if got := lastUserMessage(msgs); got != "second" {
		t.Errorf("lastUserMessage() = %q, want second", got)
	}
}
