// Package api is the HTTP+JSON client for the timesheet and task endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dori/tempo/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds calls that have no timeout of their own
	DefaultTimeout = 30 * time.Second

	// RequestIDHeader carries a per-request id for backend log correlation
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes   = 4 << 20
	maxMessageSize = 300
)

// CredentialSource yields the bearer token. It is consulted on every call so
// a token replaced or cleared elsewhere is picked up immediately.
type CredentialSource interface {
	Token() (string, error)
}

// StaticToken is a CredentialSource holding a fixed token
type StaticToken string

// Token implements CredentialSource
func (s StaticToken) Token() (string, error) {
	return string(s), nil
}

// Client talks to the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	log        *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the backend rooted at baseURL
func New(baseURL string, creds CredentialSource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		creds:      creds,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one call. route is the path template used as the
// metrics label so ids do not explode label cardinality.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
}

// do sends the request and returns the raw response body of a 2xx answer
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	token, err := c.creds.Token()
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", r.route, err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With(
		zap.String("method", r.method),
		zap.String("route", r.route),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		metrics.ObserveRequest(r.method, r.route, "error", latency)
		log.Warn("request failed", zap.Duration("latency", latency), zap.Error(err))
		return nil, transportError(ctx, r, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	metrics.ObserveRequest(r.method, r.route, status, latency)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("reading response failed", zap.Error(err))
		return nil, transportError(ctx, r, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Info("request rejected", zap.Int("status", resp.StatusCode), zap.Duration("latency", latency))
		return nil, &StatusError{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		}
	}

	log.Debug("request done", zap.Int("status", resp.StatusCode), zap.Duration("latency", latency))
	return data, nil
}

func transportError(ctx context.Context, r request, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s", ErrTimeout, r.method, r.path)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s %s", ErrTimeout, r.method, r.path)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrNetwork, r.method, r.path, err)
}

// errorMessage pulls a readable message out of an error body: the message or
// error field of a JSON object, otherwise the trimmed text.
func errorMessage(data []byte) string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return ""
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &obj) == nil {
		switch {
		case obj.Message != "":
			text = obj.Message
		case obj.Error != "":
			text = obj.Error
		}
	}

	if len(text) > maxMessageSize {
		cut := maxMessageSize
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

// decodeOptional decodes data into a new T, or returns nil for an empty body
func decodeOptional[T any](data []byte, what string) (*T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return &v, nil
}

// listEnvelope accepts both a bare array and an {items, totalPages, total} object
type listEnvelope[T any] struct {
	Items      []T
	TotalPages int
	Total      int
}

func decodeList[T any](data []byte, what string) (listEnvelope[T], error) {
	var out listEnvelope[T]
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return out, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out.Items); err != nil {
			return out, fmt.Errorf("decode %s: %w", what, err)
		}
		out.TotalPages = 1
		out.Total = len(out.Items)
		return out, nil
	}

	var obj struct {
		Items      []T `json:"items"`
		TotalPages int `json:"totalPages"`
		Total      int `json:"total"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return out, fmt.Errorf("decode %s: %w", what, err)
	}
	out.Items = obj.Items
	out.TotalPages = obj.TotalPages
	out.Total = obj.Total
	return out, nil
}
