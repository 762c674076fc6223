package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/upb/campusiq-portal/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultBackoffUnit = time.Second
)

// numericSegment matches path segments that carry record identifiers
var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// Config holds the client configuration
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BackoffUnit time.Duration
}

// RequestOptions describes a single logical call
type RequestOptions struct {
	Method  string
	Body    []byte
	Headers map[string]string
}

// Response is a fully read API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client performs outbound calls with bounded retry.
// Calls share no state; each carries its own RequestAttempt.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      oauth2.TokenSource
	maxAttempts int
	backoff     Backoff
	sleep       Sleeper
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBackoff replaces the linear backoff curve
func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

// WithSleeper replaces the wait between attempts
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithMetrics records attempts and outcomes
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new Client
func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffUnit == 0 {
		cfg.BackoffUnit = defaultBackoffUnit
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		backoff:     LinearBackoff(cfg.BackoffUnit),
		sleep:       timerSleep,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokenSource returns a copy of the client that authenticates with ts.
// The token is read again before every attempt.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs a call with the configured attempt budget
func (c *Client) Do(ctx context.Context, endpoint string, opts RequestOptions) (*Response, error) {
	return c.Request(ctx, endpoint, opts, c.maxAttempts)
}

// Request performs a call with at most maxAttempts physical requests.
// Transport failures and 5xx are retried; a 4xx returns a ClientError
// immediately; running out of attempts returns a RequestExhaustedError.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, maxAttempts int) (resp *Response, err error) {
	label := endpointLabel(endpoint)
	attempt := NewRequestAttempt(endpoint, maxAttempts)

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	ctx, span := observability.StartAPIRequestSpan(ctx, method, label)
	defer func() {
		status := StatusCode(err)
		if resp != nil {
			status = resp.StatusCode
		}
		observability.EndAPIRequestSpan(span, status, attempt.Index+1, err)
	}()

	for {
		headers, err := c.headers(opts.Headers)
		if err != nil {
			c.metrics.RecordOutcome(label, "credential_error")
			return nil, fmt.Errorf("resolve credential for %s: %w", endpoint, err)
		}

		c.metrics.RecordAttempt(label)
		resp, err := c.send(ctx, endpoint, method, opts.Body, headers)
		if err != nil && ctx.Err() != nil {
			c.metrics.RecordOutcome(label, "canceled")
			return nil, ctx.Err()
		}

		result := AttemptResult{Err: err}
		if resp != nil {
			result.StatusCode = resp.StatusCode
		}

		var failure error
		switch {
		case err != nil:
			failure = err
		case resp.StatusCode >= 500:
			failure = &ServerError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}

		switch Step(attempt, result) {
		case PhaseSuccess:
			c.metrics.RecordOutcome(label, "success")
			return resp, nil

		case PhaseFailed:
			c.metrics.RecordOutcome(label, "client_error")
			c.logger.Debug("api call rejected",
				zap.String("endpoint", endpoint),
				zap.Int("status", resp.StatusCode))
			return nil, newClientError(endpoint, resp.StatusCode, resp.Body)

		case PhaseExhausted:
			c.metrics.RecordOutcome(label, "exhausted")
			c.logger.Warn("api call exhausted attempts",
				zap.String("endpoint", endpoint),
				zap.Int("attempts", attempt.MaxAttempts),
				zap.Error(failure))
			return nil, &RequestExhaustedError{
				Endpoint: endpoint,
				Attempts: attempt.Index + 1,
				Last:     failure,
			}

		case PhaseRetrying:
			wait := c.backoff(attempt)
			reason := "server_error"
			if err != nil {
				reason = "transport"
			}
			c.metrics.RecordRetry(label, reason)
			observability.AddRetryEvent(ctx, attempt.Index+1, wait, reason)
			c.logger.Warn("retrying api call",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt.Index+1),
				zap.Int("max_attempts", attempt.MaxAttempts),
				zap.Duration("backoff", wait),
				zap.Error(failure))

			if err := c.sleep(ctx, wait); err != nil {
				c.metrics.RecordOutcome(label, "canceled")
				return nil, err
			}
			attempt = attempt.Next()
		}
	}
}

// send performs one physical request. A nil response with a non-nil error
// means no response was received.
func (c *Client) send(ctx context.Context, endpoint, method string, payload []byte, headers map[string]string) (*Response, error) {
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// headers merges default, caller and credential headers.
// The credential is read on every call so a refreshed token is used on retry.
func (c *Client) headers(extra map[string]string) (map[string]string, error) {
	h := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	for k, v := range extra {
		h[k] = v
	}

	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		if tok != nil && tok.AccessToken != "" {
			h["Authorization"] = tok.Type() + " " + tok.AccessToken
		}
	}
	return h, nil
}

// GetJSON performs a GET and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.Do(ctx, endpoint, RequestOptions{Method: http.MethodGet})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

// PostJSON encodes in, performs a POST and decodes the JSON body into out
func (c *Client) PostJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.Do(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: payload})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.DecodeJSON(out)
}

// endpointLabel strips the query and record identifiers so metric
// labels stay bounded
func endpointLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	for numericSegment.MatchString(endpoint) {
		endpoint = numericSegment.ReplaceAllString(endpoint, "/:id$1")
	}
	return endpoint
}
