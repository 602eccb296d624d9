package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is the body of POST /chat.
type Request struct {
	Message string `json:"message"`
	History []Pair `json:"chat_history"`
}

// Transport opens the response body of one exchange. The caller closes it.
type Transport interface {
	Open(ctx context.Context, req Request) (io.ReadCloser, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (io.ReadCloser, error)

func (f TransportFunc) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	return f(ctx, req)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("chat: unexpected status %d: %s", e.Code, e.Body)
}

// HTTPTransport posts to <BaseURL>/chat.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (t *HTTPTransport) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	if req.History == nil {
		req.History = []Pair{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send chat request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp.Body, nil
}
