// Package search implements the Tavily web search adapter used by the agent's
// search tool.
//
// A call to Client.Search ends in exactly one of three ways:
//   - the provider answered 200: a Result carrying the parsed body, unmodified;
//   - the provider answered anything else: a Result carrying a ProviderError,
//     whose text "An error occurred: <status>, <body>" is meant for the model;
//   - no usable answer was obtained: a *TransportError and no Result.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"search-agent/internal/config"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. The default is http.DefaultClient,
// which has no timeout of its own.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// Client calls the Tavily search endpoint.
type Client struct {
	endpoint     string
	apiKey       string
	defaultQuery string
	httpClient   *http.Client
	logger       *zap.Logger
	metrics      *metrics
}

// NewClient creates a Client from the search configuration.
func NewClient(cfg config.SearchConfig, opts ...Option) *Client {
	c := &Client{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		defaultQuery: cfg.DefaultQuery,
		httpClient:   http.DefaultClient,
		logger:       zap.NewNop(),
		metrics:      newMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = config.DefaultEndpoint
	}
	if c.defaultQuery == "" {
		c.defaultQuery = config.DefaultSearchQuery
	}
	return c
}

// request is the Tavily request body.
type request struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	IncludeAnswer bool   `json:"include_answer"`
}

// DefaultQuery returns the query used by SearchDefault.
func (c *Client) DefaultQuery() string {
	return c.defaultQuery
}

// SearchDefault searches for the configured default query. It exists for
// manual and interactive checks.
func (c *Client) SearchDefault(ctx context.Context) (*Result, error) {
	return c.Search(ctx, c.defaultQuery)
}

// Search issues one POST to the provider for query. The query is sent as
// given, including the empty string. There are no retries.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	start := time.Now()

	body, err := json.Marshal(request{
		APIKey:        c.apiKey,
		Query:         query,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, c.fault(start, query, "encode", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.fault(start, query, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fault(start, query, "post", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fault(start, query, "read body", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.requests.WithLabelValues(outcomeProviderError).Inc()
		c.metrics.latency.WithLabelValues(outcomeProviderError).Observe(time.Since(start).Seconds())
		c.logger.Warn("search provider returned an error",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode),
		)
		return &Result{ProviderError: &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}}, nil
	}

	payload, err := decodePayload(raw)
	if err != nil {
		return nil, c.fault(start, query, "decode body", err)
	}

	result := &Result{Payload: payload}
	c.metrics.requests.WithLabelValues(outcomeSuccess).Inc()
	c.metrics.latency.WithLabelValues(outcomeSuccess).Observe(time.Since(start).Seconds())

	fields := []zap.Field{zap.String("query", query), zap.Duration("elapsed", time.Since(start))}
	if typed, err := result.Response(); err == nil {
		c.metrics.results.Observe(float64(len(typed.Results)))
		fields = append(fields, zap.Int("results", len(typed.Results)), zap.Bool("answer", typed.Answer != nil))
	}
	c.logger.Info("search completed", fields...)

	return result, nil
}

// decodePayload parses a provider body. Numbers stay json.Number so integers
// beyond 2^53 survive the trip back to the model.
func decodePayload(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return payload, nil
}

func (c *Client) fault(start time.Time, query, op string, err error) error {
	c.metrics.requests.WithLabelValues(outcomeTransport).Inc()
	c.metrics.latency.WithLabelValues(outcomeTransport).Observe(time.Since(start).Seconds())
	c.logger.Error("search failed", zap.String("query", query), zap.String("op", op), zap.Error(err))
	return &TransportError{Op: op, Err: err}
}

// Collectors returns the client's Prometheus metrics for registration.
func (c *Client) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.metrics.requests, c.metrics.results, c.metrics.latency}
}
