// Package validate decides whether an agent's answer to the validation query
// is good enough to deploy it.
package validate

import (
	"errors"
	"strings"
)

// DefaultRefusal is what the model answers when it concludes none of its
// tools can serve the request.
const DefaultRefusal = "I am sorry, I cannot fulfill this request. The available tools lack the desired functionality."

var (
	// ErrRefused means the agent answered with a known refusal.
	ErrRefused = errors.New("agent refused the validation query")
	// ErrEmptyOutput means the agent produced no text at all.
	ErrEmptyOutput = errors.New("agent produced no output for the validation query")
)

// Gate holds the set of answers that block deployment.
type Gate struct {
	refusals map[string]struct{}
}

// NewGate creates a gate that rejects DefaultRefusal and any extra refusals.
func NewGate(extra ...string) *Gate {
	g := &Gate{refusals: map[string]struct{}{DefaultRefusal: {}}}
	for _, r := range extra {
		if r = strings.TrimSpace(r); r != "" {
			g.refusals[r] = struct{}{}
		}
	}
	return g
}

// Check returns nil when output may be deployed. Comparison is exact after
// trimming surrounding whitespace; a refusal embedded in a longer answer
// passes.
func (g *Gate) Check(output string) error {
	out := strings.TrimSpace(output)
	if out == "" {
		return ErrEmptyOutput
	}
	if _, refused := g.refusals[out]; refused {
		return ErrRefused
	}
	return nil
}
