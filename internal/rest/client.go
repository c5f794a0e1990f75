package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout is the fixed client-side timeout on every outbound request.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies an access token for Authorization headers.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Client is the thin REST client base shared by the cart, review and auth
// service clients. It owns timeout, auth-header injection, tracing and the
// uniform error classification.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches a bearer-token source to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tracer:  otel.Tracer("storefront-sync/rest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do issues a request and classifies every failure into *APIError.
// out may be nil when the response body is irrelevant.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			span.SetStatus(codes.Error, "encode")
			return &APIError{Message: MsgGenericFailure, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		span.SetStatus(codes.Error, "request")
		return &APIError{Message: MsgGenericFailure, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts reject like any other transport failure.
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return &APIError{Message: MsgUnreachable, Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read")
		return &APIError{Status: resp.StatusCode, Message: MsgUnreachable, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := messageFromBody(data)
		if message == "" {
			message = MsgGenericFailure
		}
		span.SetStatus(codes.Error, message)
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode")
			return &APIError{
				Status:  resp.StatusCode,
				Message: MsgGenericFailure,
				Err:     fmt.Errorf("decode response: %w", err),
			}
		}
	}

	return nil
}
