// Package agenttest provides a scripted model for exercising agents without
// calling a real model backend.
package agenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Turn produces the model's reply to one request.
type Turn func(req *model.LLMRequest) (*genai.Content, error)

// Text replies with plain text.
func Text(s string) Turn {
	return func(*model.LLMRequest) (*genai.Content, error) {
		return genai.NewContentFromText(s, genai.RoleModel), nil
	}
}

// Call replies with a single function call.
func Call(name string, args map[string]any) Turn {
	return func(*model.LLMRequest) (*genai.Content, error) {
		return genai.NewContentFromFunctionCall(name, args, genai.RoleModel), nil
	}
}

// TextThenCall replies with text followed by a function call in the same
// turn.
func TextThenCall(text, name string, args map[string]any) Turn {
	return func(*model.LLMRequest) (*genai.Content, error) {
		return genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(text),
			genai.NewPartFromFunctionCall(name, args),
		}, genai.RoleModel), nil
	}
}

// EchoToolResult replies with prefix followed by the JSON of the most recent
// function response in the request history.
func EchoToolResult(prefix string) Turn {
	return func(req *model.LLMRequest) (*genai.Content, error) {
		resp := LastFunctionResponse(req)
		if resp == nil {
			return nil, fmt.Errorf("no function response in request")
		}
		b, err := json.Marshal(resp.Response)
		if err != nil {
			return nil, err
		}
		return genai.NewContentFromText(prefix+string(b), genai.RoleModel), nil
	}
}

// Fail makes the model call fail.
func Fail(err error) Turn {
	return func(*model.LLMRequest) (*genai.Content, error) {
		return nil, err
	}
}

// LastFunctionResponse returns the newest function response in req, if any.
func LastFunctionResponse(req *model.LLMRequest) *genai.FunctionResponse {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		c := req.Contents[i]
		if c == nil {
			continue
		}
		for j := len(c.Parts) - 1; j >= 0; j-- {
			if p := c.Parts[j]; p != nil && p.FunctionResponse != nil {
				return p.FunctionResponse
			}
		}
	}
	return nil
}

// Model is a model.LLM that plays back scripted turns in order.
type Model struct {
	mu       sync.Mutex
	turns    []Turn
	requests []*model.LLMRequest
}

var _ model.LLM = (*Model)(nil)

// New creates a Model that answers with turns, one per request.
func New(turns ...Turn) *Model {
	return &Model{turns: turns}
}

func (m *Model) Name() string {
	return "scripted"
}

// Requests returns the requests the model received so far.
func (m *Model) Requests() []*model.LLMRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.LLMRequest(nil), m.requests...)
}

func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		m.mu.Lock()
		m.requests = append(m.requests, req)
		var turn Turn
		if len(m.turns) > 0 {
			turn, m.turns = m.turns[0], m.turns[1:]
		}
		m.mu.Unlock()

		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if turn == nil {
			yield(nil, fmt.Errorf("scripted model: no turn left for request %d", len(m.Requests())))
			return
		}

		content, err := turn(req)
		if err != nil {
			yield(nil, err)
			return
		}
		yield(&model.LLMResponse{Content: content, TurnComplete: true}, nil)
	}
}
