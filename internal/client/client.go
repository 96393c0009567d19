// Package client fetches display buffers from a device running the web
// display API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/koios/webdisplay/pkg/models"
)

const (
	// BufferPath is the display buffer endpoint.
	BufferPath = "/api/display/getbuffer"

	defaultHTTPTimeout  = 10 * time.Second
	maxResponseBodySize = 64 << 10 // a full 1 KiB buffer is ~2.3 KiB of JSON
)

// ErrBaseURLMissing indicates no device URL was given.
var ErrBaseURLMissing = errors.New("client: device URL is required")

// APIError captures non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	RawBody    []byte
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("client: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString(")")
	if m := strings.TrimSpace(e.Message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

// IsAuthError returns true if err is an APIError with HTTP status 401 or 403.
func IsAuthError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden
	}
	return false
}

// Client reads the display buffer of one device.
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
}

// Option mutates the client during construction.
type Option func(*Client)

// WithHTTPClient installs a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBasicAuth sets the credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// New builds a client for the device at baseURL (e.g. http://192.168.4.1).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLMissing
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return c, nil
}

// BaseURL returns the normalized device URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchBuffer requests the current display buffer.
func (c *Client) FetchBuffer(ctx context.Context) (*models.DisplayBuffer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+BufferPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch display buffer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, buildAPIError(resp.StatusCode, body)
	}

	var buffer models.DisplayBuffer
	if err := json.Unmarshal(body, &buffer); err != nil {
		return nil, fmt.Errorf("failed to decode display buffer: %w", err)
	}
	return &buffer, nil
}

func buildAPIError(status int, body []byte) error {
	ae := &APIError{
		StatusCode: status,
		Message:    strings.TrimSpace(string(body)),
		RawBody:    body,
	}

	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		ae.Message = envelope.Message
	}
	return ae
}
