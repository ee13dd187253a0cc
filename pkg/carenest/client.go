// Package carenest is a Go client for the CareNest API. It keeps the
// logged-in session in a SessionStore and drops it when the server answers 401.
package carenest

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

const DefaultBaseURL = "http://localhost:6402/api"

// ErrSessionExpired is returned, wrapped in an *APIError, after a 401.
var ErrSessionExpired = errors.New("session expired")

const sessionExpiredMessage = "Session expired. Please login again."

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return nil
}

// Client calls the API on behalf of the session held in its store.
type Client struct {
	baseURL string
	http    *http.Client
	store   SessionStore
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to reach an httptest server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithStore(store SessionStore) Option {
	return func(c *Client) { c.store = store }
}

// New creates a client for baseURL (including the /api prefix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() (*Session, error) {
	return c.store.Load()
}

// IsAuthenticated reports whether a token is stored.
func (c *Client) IsAuthenticated() bool {
	s, err := c.store.Load()
	return err == nil && s != nil && s.Token != ""
}

// envelope mirrors the server response shape.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Count   *int            `json:"count,omitempty"`
}

// call performs a request and decodes data into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s, err := c.store.Load(); err == nil && s != nil && s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.apiError(resp.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return &env, nil
}

func (c *Client) apiError(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		_ = c.store.Clear()
		message = sessionExpiredMessage
	case status >= 500:
		message = "Server error. Please try again later."
	case message == "":
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message}
}
