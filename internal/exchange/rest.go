package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// rest is the HTTP plumbing shared by all exchange drivers.
type rest struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a driver's REST plumbing.
type Option func(*rest)

func newRest(baseURL string, opts ...Option) rest {
	r := rest{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithBaseURL overrides the production endpoint.
func WithBaseURL(u string) Option {
	return func(r *rest) {
		r.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *rest) {
		r.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) Option {
	return func(r *rest) {
		r.maxRetries = max
		r.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *rest) {
		r.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *rest) {
		r.httpClient = hc
	}
}

// apiError is an HTTP-level failure from an exchange REST API.
type apiError struct {
	status int
	body   []byte
}

func (e *apiError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, trimBody(e.body))
}

// retryable reports whether the status is worth another attempt.
func (e *apiError) retryable() bool {
	return e.status >= 500 || e.status == 429
}

// decodeError marks an undecodable success response.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "decode response: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// doRequest performs a GET against path with the given query.
func (r *rest) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := r.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &apiError{status: resp.StatusCode, body: body}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (r *rest) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := r.retryBackoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			r.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := r.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		apiErr, ok := err.(*apiError)
		if !ok || !apiErr.retryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the JSON response.
func (r *rest) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := r.doWithRetry(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &decodeError{err: err}
	}

	return nil
}

// classify converts plumbing errors into *Error. statusHook, when non-nil,
// gets the first look at HTTP status failures so drivers can decode
// exchange-specific error bodies; returning nil falls through to the generic
// mapping.
func classify(exchange string, err error, statusHook func(*apiError) *Error) error {
	if err == nil {
		return nil
	}

	var api *apiError
	if errors.As(err, &api) {
		if statusHook != nil {
			if e := statusHook(api); e != nil {
				return e
			}
		}
		kind := KindExchange
		if api.status == 429 || api.status == 418 {
			kind = KindRateLimited
		}
		return &Error{Kind: kind, Exchange: exchange, Message: api.Error()}
	}

	var dec *decodeError
	if errors.As(err, &dec) {
		return &Error{Kind: KindExchange, Exchange: exchange, Message: dec.Error()}
	}

	// Transport failure, timeout, or cancellation.
	return &Error{Kind: KindNetwork, Exchange: exchange, Message: err.Error()}
}

// trimBody compacts a response body for log and error messages.
func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// floatParser parses decimal strings, remembering the first failure. An
// empty string parses as zero: exchanges omit fields on quiet markets.
type floatParser struct {
	err error
}

func (p *floatParser) parse(s string) float64 {
	if p.err != nil || s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("parse %q: %w", s, err)
		return 0
	}
	return v
}

// anyFloat converts a decoded JSON value (number or decimal string) to float64.
func anyFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		if x == "" {
			return 0, nil
		}
		return strconv.ParseFloat(x, 64)
	case json.Number:
		return x.Float64()
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
