package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// DefaultBaseURL is the address a locally installed Ollama listens on.
const DefaultBaseURL = "http://localhost:11434"

// ErrorKind classifies upstream failures so callers can produce
// distinct user-visible messages for an unreachable, slow, or failing
// backend.
type ErrorKind int

const (
	// KindConnect means the backend refused the connection or was
	// unreachable.
	KindConnect ErrorKind = iota
	// KindTimeout means the backend accepted but did not answer in
	// time.
	KindTimeout
	// KindStatus means the backend answered with a non-success HTTP
	// status.
	KindStatus
	// KindTransport covers other network failures mid-request.
	KindTransport
)

// UpstreamError is a classified failure talking to the Ollama server.
type UpstreamError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client talks to a local Ollama server over plain HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	stream  *http.Client
}

// NewClient creates a client for the given base URL ("" for the
// default). The timeout bounds the model lifecycle operations only;
// http.Client.Timeout covers the whole body read, which would sever a
// long streamed reply, so streaming chat requests go through a
// separate client with no overall deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// BaseURL returns the server address the client is bound to.
func (c *Client) BaseURL() string { return c.baseURL }

// ChatStream issues a streaming chat-completion request and returns
// the raw NDJSON response body. The caller owns closing it. A
// connection, timeout, or HTTP-status failure is returned as a
// classified *UpstreamError without any body.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	req.Stream = true
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, c.classifyRequestError(err, "sending chat request")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &UpstreamError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Ollama returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return resp.Body, nil
}

// classifyRequestError maps a transport-level error to an
// *UpstreamError with a user-facing message.
func (c *Client) classifyRequestError(err error, action string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("Request to Ollama timed out while %s", action),
			Err:     err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("Request to Ollama timed out while %s", action),
			Err:     err,
		}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &UpstreamError{
			Kind:    KindConnect,
			Message: fmt.Sprintf("Could not connect to Ollama. Make sure Ollama is running on %s", c.baseURL),
			Err:     err,
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &UpstreamError{
			Kind:    KindConnect,
			Message: fmt.Sprintf("Could not connect to Ollama. Make sure Ollama is running on %s", c.baseURL),
			Err:     err,
		}
	}
	return &UpstreamError{
		Kind:    KindTransport,
		Message: fmt.Sprintf("Network error while %s: %v", action, err),
		Err:     err,
	}
}

// doJSON performs a request with an optional JSON body and decodes a
// successful JSON response into out (when out is non-nil). Failures
// come back as classified *UpstreamError values with messages built by
// describe (given the failing HTTP status and the error string Ollama
// put in its body, when present).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, action string, describe func(status int, upstreamMsg string) string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classifyRequestError(err, action)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &UpstreamError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Message:    describe(resp.StatusCode, upstreamMessage(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse Ollama response while %s: %w", action, err)
	}
	return nil
}

// upstreamMessage digs the error string out of an Ollama error body,
// falling back to the raw body text.
func upstreamMessage(raw []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(raw))
}
