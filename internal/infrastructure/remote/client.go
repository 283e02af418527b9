package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bookmart/storefront/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// envelope is the JSON wrapper every successful API response uses
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// errorBody is the JSON body of a failed API response
type errorBody struct {
	Message string `json:"message"`
}

// Client is the shared HTTP transport for all storefront API adapters.
// It handles the response envelope, error mapping and the 401 session
// teardown callback.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *zap.Logger
	tokenSource    func() string
	onUnauthorized func()
}

// ClientOption is a functional option for configuring the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTokenSource sets the supplier of the bearer token attached to every
// request. An empty token means the request goes out unauthenticated.
func WithTokenSource(source func() string) ClientOption {
	return func(c *Client) {
		c.tokenSource = source
	}
}

// WithUnauthorizedHandler sets the callback invoked once per 401 response,
// before the error is returned to the caller. The identity provider wires
// its session teardown here.
func WithUnauthorizedHandler(handler func()) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = handler
	}
}

// NewClient creates a new API client
func NewClient(cfg config.APIConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a request against the API. A non-nil body is sent as JSON;
// a non-nil out receives the unwrapped "data" payload.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("remote: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("remote: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.serviceError(resp.StatusCode, raw, method, path)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("remote: failed to parse response envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("remote: response envelope has no data payload")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("remote: failed to parse response data: %w", err)
	}
	return nil
}

// serviceError maps a failed response to a ServiceError, firing the session
// teardown callback on 401
func (c *Client) serviceError(status int, raw []byte, method, path string) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	svcErr := &ServiceError{Status: status, Message: eb.Message}
	c.logger.Debug("storefront API call failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("message", eb.Message),
	)

	if status == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return svcErr
}
