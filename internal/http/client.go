// Package http implements the Conduit wire protocol: form-encoded POST
// requests with bounded retries and envelope decoding.
package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/phorge-tools/conduit-client/internal/constants"
	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// TokenSource supplies the API token for a call. Implementations may read a
// per-call credential from the context.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Response is a decoded Conduit envelope.
type Response struct {
	StatusCode int
	Result     json.RawMessage
}

// Decode unmarshals the result payload into v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil
	}

	err := json.Unmarshal(r.Result, v)
	if err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	return nil
}

// envelope is the raw Conduit response frame. A failed call still arrives
// with HTTP 200; the error lives in error_code and error_info.
type envelope struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode string          `json:"error_code"`
	ErrorInfo string          `json:"error_info"`
}

// Client posts Conduit method calls over HTTP.
type Client struct {
	apiURL     string
	tokens     TokenSource
	httpClient *retryablehttp.Client
	userAgent  string
	headerAuth bool
	logger     conduit.Logger
	debug      bool

	timeout      time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	tlsConfig    *tls.Config
	proxyURL     string
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger conduit.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging. Tokens are never logged.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetryConfig tunes the retry budget and backoff window.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = maxRetries
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

// WithTLSConfig sets the TLS configuration.
func WithTLSConfig(config *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = config
	}
}

// WithProxy routes requests through an HTTP proxy.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithHeaderAuth sends the token as an Authorization bearer header instead of
// the api.token form parameter.
func WithHeaderAuth(enabled bool) Option {
	return func(c *Client) {
		c.headerAuth = enabled
	}
}

// NewClient creates a Conduit transport for apiURL, which must end with a
// path separator (see conduit.NormalizeAPIURL). tokens may be nil for
// anonymous endpoints.
func NewClient(apiURL string, tokens TokenSource, opts ...Option) *Client {
	client := &Client{
		apiURL:       apiURL,
		tokens:       tokens,
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
		retryMax:     constants.DefaultRetryMax,
		retryWaitMin: constants.DefaultRetryWaitMin,
		retryWaitMax: constants.DefaultRetryWaitMax,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.httpClient = client.buildRetryClient()

	return client
}

func (c *Client) buildRetryClient() *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = c.retryMax
	retryClient.RetryWaitMin = c.retryWaitMin
	retryClient.RetryWaitMax = c.retryWaitMax
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = c.timeout

	transport, ok := retryClient.HTTPClient.Transport.(*nethttp.Transport)
	if ok {
		transport.MaxIdleConns = constants.DefaultMaxIdleConns
		transport.MaxIdleConnsPerHost = constants.DefaultMaxIdleConnsPerHost
		transport.DialContext = (&net.Dialer{
			Timeout: constants.DefaultConnectTimeout,
		}).DialContext

		if c.tlsConfig != nil {
			transport.TLSClientConfig = c.tlsConfig
		}

		if c.proxyURL != "" {
			if proxy, err := url.Parse(c.proxyURL); err == nil {
				transport.Proxy = nethttp.ProxyURL(proxy)
			}
		}
	}

	// Network failures, 429, and 5xx are transient. Everything else is
	// terminal and must not consume the retry budget.
	retryClient.CheckRetry = func(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if err != nil {
			return true, nil
		}

		if resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode >= nethttp.StatusInternalServerError {
			return true, nil
		}

		return false, nil
	}

	// Exponential backoff with jitter; Retry-After wins when present.
	retryClient.Backoff = JitterBackoff

	retryClient.ErrorHandler = func(resp *nethttp.Response, err error, numTries int) (*nethttp.Response, error) {
		last := err

		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()

			last = &conduit.RemoteError{
				StatusCode: resp.StatusCode,
				Info:       strings.TrimSpace(string(body)),
			}
		} else if err != nil {
			last = &conduit.NetworkError{Err: err}
		}

		return nil, &conduit.RetryExhaustedError{Attempts: numTries, Last: last}
	}

	return retryClient
}

// JitterBackoff doubles the wait per attempt and spreads it randomly across
// [wait/2, wait], clamped to [waitMin, waitMax], so callers that fail
// together do not retry together. A Retry-After header on 429 and 503
// responses overrides the computed wait.
func JitterBackoff(waitMin, waitMax time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && (resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode == nethttp.StatusServiceUnavailable) {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.ParseInt(header, 10, 64); err == nil && seconds >= 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	wait := time.Duration(math.Pow(2, float64(attemptNum)) * float64(waitMin))
	if wait <= 0 || wait > waitMax {
		wait = waitMax
	}

	half := wait / 2
	wait = half + rand.N(half+1)

	if wait < waitMin {
		wait = waitMin
	}

	return wait
}

// CallMethod posts a Conduit method call and returns the decoded result.
// Transient failures are retried with exponential backoff; a Conduit-level
// error in the envelope is surfaced as an AuthError or RemoteError.
func (c *Client) CallMethod(ctx context.Context, method string, params url.Values) (*Response, error) {
	form := url.Values{}
	for key, values := range params {
		form[key] = values
	}

	var token string

	if c.tokens != nil {
		var err error

		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving credential: %w", err)
		}
	}

	if token != "" && !c.headerAuth {
		form.Set("api.token", token)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.apiURL+method, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if token != "" && c.headerAuth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("Conduit request", map[string]interface{}{
			"method": method,
			"params": len(form),
		})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var exhausted *conduit.RetryExhaustedError
		if errors.As(err, &exhausted) {
			return nil, err
		}

		return nil, &conduit.NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &conduit.NetworkError{Err: err}
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("Conduit response", map[string]interface{}{
			"method": method,
			"status": resp.StatusCode,
			"bytes":  len(body),
		})
	}

	if resp.StatusCode >= nethttp.StatusBadRequest {
		return nil, remoteErrorFromBody(resp.StatusCode, body)
	}

	var frame envelope

	err = json.Unmarshal(body, &frame)
	if err != nil {
		return nil, &conduit.RemoteError{
			StatusCode: resp.StatusCode,
			Info:       fmt.Sprintf("malformed response: %v", err),
		}
	}

	if frame.ErrorCode != "" {
		return nil, conduitError(resp.StatusCode, frame.ErrorCode, frame.ErrorInfo)
	}

	return &Response{StatusCode: resp.StatusCode, Result: frame.Result}, nil
}

// remoteErrorFromBody builds the error for a non-2xx status, preferring the
// Conduit envelope when the body carries one.
func remoteErrorFromBody(statusCode int, body []byte) error {
	var frame envelope
	if err := json.Unmarshal(body, &frame); err == nil && frame.ErrorCode != "" {
		return conduitError(statusCode, frame.ErrorCode, frame.ErrorInfo)
	}

	return &conduit.RemoteError{
		StatusCode: statusCode,
		Info:       strings.TrimSpace(string(body)),
	}
}

// conduitError maps a Conduit error code to the right error type. Credential
// rejections are terminal and surfaced as AuthError.
func conduitError(statusCode int, code, info string) error {
	switch code {
	case conduit.ConduitErrInvalidAuth, conduit.ConduitErrInvalidToken, conduit.ConduitErrInvalidSession:
		return &conduit.AuthError{ConduitCode: code, Info: info}
	default:
		return &conduit.RemoteError{StatusCode: statusCode, ConduitCode: code, Info: info}
	}
}
