package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// QueryArgs is the argument object every capability accepts. A nil Query
// means the model did not supply one.
type QueryArgs struct {
	Query *string `json:"query,omitempty" jsonschema:"The search query. Omit it to use the tool's default query."`
}

// Registry holds the capabilities offered to the agent.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a capability. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.logger.Debug("tool registered", zap.String("tool", name))
	return nil
}

// Get returns the capability registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the registered capabilities sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ADKTools converts every registered capability into an ADK function tool.
func (r *Registry) ADKTools() ([]tool.Tool, error) {
	var out []tool.Tool
	for _, t := range r.Tools() {
		adkTool, err := functiontool.New(functiontool.Config{
			Name:        t.Name(),
			Description: t.Description(),
		}, r.handler(t))
		if err != nil {
			return nil, fmt.Errorf("failed to create tool %q: %w", t.Name(), err)
		}
		out = append(out, adkTool)
	}
	return out, nil
}

func (r *Registry) handler(t Tool) func(tool.Context, QueryArgs) (map[string]any, error) {
	return func(ctx tool.Context, args QueryArgs) (map[string]any, error) {
		return r.invoke(ctx, t, args)
	}
}

// invoke resolves the query, runs the capability and shapes its value into
// the JSON object the framework expects.
func (r *Registry) invoke(ctx context.Context, t Tool, args QueryArgs) (map[string]any, error) {
	query := t.DefaultQuery()
	if args.Query != nil {
		query = *args.Query
	}

	res, err := t.Invoke(ctx, query)
	if err != nil {
		r.logger.Error("tool failed", zap.String("tool", t.Name()), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", t.Name(), err)
	}
	return asObject(res.Value()), nil
}

// asObject returns v unchanged when it is already a JSON object and wraps it
// under "result" otherwise.
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": v}
}
