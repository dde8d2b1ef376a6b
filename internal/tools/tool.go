// Package tools exposes named capabilities to the agent. Every capability is
// registered the same way and converted to an ADK tool by the Registry.
package tools

import "context"

// Tool is a named capability the agent may invoke with a single query.
type Tool interface {
	// Name is the identifier the model uses to call the tool.
	Name() string
	// Description tells the model what the tool does.
	Description() string
	// DefaultQuery is used when the model invokes the tool without a query.
	DefaultQuery() string
	// Invoke runs the capability. A non-nil error is a fault the agent
	// framework must see; recoverable provider failures are part of Result.
	Invoke(ctx context.Context, query string) (Result, error)
}

// Result is what a tool hands back to the model.
type Result interface {
	Value() any
}
