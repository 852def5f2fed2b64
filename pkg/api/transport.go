package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API paths on an OpenAI-compatible server.
const (
	PathChatCompletions = "/v1/chat/completions"
	PathModels          = "/v1/models"
)

// ErrMalformedResponse marks a 2xx response whose body violates the API
// contract. Retrying will not fix it.
var ErrMalformedResponse = errors.New("api: malformed response body")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	switch {
	case e.Code == http.StatusUnauthorized:
		return "api: authentication failed, check your API key"
	case e.Code == http.StatusNotFound:
		return "api: endpoint not found, check your base URL"
	case e.Code == http.StatusTooManyRequests:
		return "api: rate limited by the server"
	case e.Code == http.StatusBadRequest && strings.Contains(e.Body, "Engine is not loaded"):
		return "api: model is not loaded, start your model first"
	case e.Code == http.StatusBadRequest:
		return fmt.Sprintf("api: bad request: %s", truncate(e.Body, 200))
	default:
		return fmt.Sprintf("api: HTTP %d: %s", e.Code, truncate(e.Body, 200))
	}
}

// StatusCode reports the upstream HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// HTTPTransport performs calls against an OpenAI-compatible HTTP API.
type HTTPTransport struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPTransport creates a transport for the given base URL.
func NewHTTPTransport(baseURL, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// Execute performs a single upstream call. A nil payload issues a GET,
// otherwise the payload is POSTed as JSON. The timeout bounds this one
// attempt; the caller's context still cancels it early.
func (t *HTTPTransport) Execute(ctx context.Context, path string, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := http.MethodGet
	var body io.Reader
	if payload != nil {
		method = http.MethodPost
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%s: %w", path, ErrMalformedResponse)
	}
	return respBody, nil
}
