package handler

import "fmt"

// RunAgentInput represents the AG-UI protocol input format
type RunAgentInput struct {
	ThreadID       string           `json:"threadId"`
	RunID          string           `json:"runId"`
	State          map[string]any   `json:"state"`
	Messages       []map[string]any `json:"messages"`
	Tools          []any            `json:"tools"`
	Context        []any            `json:"context"`
	ForwardedProps map[string]any   `json:"forwardedProps"`
}

var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
	"developer": true,
	"tool":      true,
}

// ValidateMessages checks that every message has an id, a known role and,
// for user and assistant messages, string or array content.
func ValidateMessages(messages []map[string]any) error {
	for i, msg := range messages {
		if msg == nil {
			return fmt.Errorf("message at index %d is nil", i)
		}

		if id, ok := msg["id"]; !ok || id == nil || id == "" {
			return fmt.Errorf("message at index %d missing required field 'id'", i)
		}

		role, ok := msg["role"].(string)
		if !ok {
			return fmt.Errorf("message at index %d missing or invalid field 'role'", i)
		}
		if !validRoles[role] {
			return fmt.Errorf("message at index %d has invalid 'role' value: %s", i, role)
		}

		if role == "user" || role == "assistant" {
			switch msg["content"].(type) {
			case string, []any:
			default:
				return fmt.Errorf("message at index %d has missing or invalid 'content' for role '%s'", i, role)
			}
		}
	}
	return nil
}

// lastUserMessage returns the text of the newest user message with string
// content.
func lastUserMessage(messages []map[string]any) string {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if role, _ := msg["role"].(string); role != "user" {
			continue
		}
		if content, ok := msg["content"].(string); ok && content != "" {
			return content
		}
	}
	return ""
}
