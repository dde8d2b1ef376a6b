package search

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of one search call that reached the provider.
// Exactly one of Payload or ProviderError is meaningful: a nil ProviderError
// means the provider answered 200 and Payload holds its parsed body.
type Result struct {
	Payload       any
	ProviderError *ProviderError
}

// OK reports whether the provider answered 200.
func (r *Result) OK() bool {
	return r.ProviderError == nil
}

// Value returns the data handed back to the model: the unmodified payload on
// success, or the formatted provider error string.
func (r *Result) Value() any {
	if r.ProviderError != nil {
		return r.ProviderError.Error()
	}
	return r.Payload
}

// Response decodes the payload into its typed form. It fails for provider
// errors and for payloads that do not have the documented shape.
func (r *Result) Response() (*Response, error) {
	if r.ProviderError != nil {
		return nil, r.ProviderError
	}
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("re-encoding payload: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &resp, nil
}

// ProviderError is a non-200 answer from the search provider. It is data for
// the model, not a fault.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("An error occurred: %d, %s", e.StatusCode, e.Body)
}

// TransportError is a failure to obtain a provider answer at all: dial, DNS,
// I/O, or an undecodable 200 body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Response is the typed view of a Tavily search payload.
type Response struct {
	Query             string   `json:"query"`
	Answer            *string  `json:"answer"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Images            []any    `json:"images"`
	Results           []Item   `json:"results"`
	ResponseTime      float64  `json:"response_time"`
}

// Item is a single ranked search result.
type Item struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	RawContent *string `json:"raw_content"`
}
