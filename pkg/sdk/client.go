// Package sdk is a small HTTP client for the docquery API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 90 * time.Second

// Client talks to a docquery server.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// New creates a Client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// QueryRequest is a question with optional filters and conversation history.
type QueryRequest struct {
	Query           string    `json:"query"`
	Filters         *Filters  `json:"filters,omitempty"`
	History         []Message `json:"chatHistory,omitempty"`
	UseVectorSearch *bool     `json:"useVectorSearch,omitempty"`
	MaxResults      int       `json:"maxResults,omitempty"`
}

// Filters narrows the document set a query searches.
type Filters struct {
	DocumentTypes []string   `json:"documentTypes,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Departments   []string   `json:"departments,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	DateRange     *DateRange `json:"dateRange,omitempty"`
}

// DateRange bounds document creation time in unix milliseconds.
type DateRange struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source is a cited document.
type Source struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Type           string            `json:"type"`
	RelevanceScore float64           `json:"relevanceScore"`
	Excerpt        string            `json:"excerpt"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// QueryResult is the answer payload.
type QueryResult struct {
	QueryID       string   `json:"queryId"`
	Answer        string   `json:"answer"`
	Sources       []Source `json:"sources"`
	TotalHits     int      `json:"totalHits"`
	QueryTimeMs   int64    `json:"queryTime"`
	ExpandedQuery string   `json:"expandedQuery,omitempty"`
}

// HealthReport is the server health payload.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docquery: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Query asks a question and returns the synthesized answer with sources.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	var result QueryResult
	if err := c.post(ctx, "/api/v1/query", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health returns the server health report. A degraded or unhealthy report is
// returned alongside the error-free path; only transport failures error.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	var report HealthReport
	if err := c.get(ctx, "/health", &report); err != nil {
		var apiErr *APIError
		// /health responds 503 with a body when the index is down.
		if !errors.As(err, &apiErr) {
			return nil, err
		}
	}
	if report.Status == "" {
		return nil, fmt.Errorf("docquery: empty health report")
	}
	return &report, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("docquery: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("docquery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("docquery: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("docquery: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("docquery: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("docquery: decode response (http %d): %w", resp.StatusCode, err)
	}

	if len(env.Data) > 0 && out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("docquery: decode payload: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: "request failed"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	return nil
}
