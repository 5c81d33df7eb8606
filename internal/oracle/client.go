// Package oracle is the HTTP client for the remote trust scoring API.
// It only issues GET requests and never performs x402 payments.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mbd888/trustboard/internal/circuitbreaker"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/metrics"
	"github.com/mbd888/trustboard/internal/traces"
	"github.com/mbd888/trustboard/pkg/x402"
)

// Oracle endpoints.
const (
	PathNetworkStats = "/api/v1/network/stats"
	PathPaymentStats = "/api/v1/payments/stats"
	PathTopAgents    = "/api/v1/agents/top"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// Call outcomes reported to observers and metrics.
const (
	OutcomeOK              = "ok"
	OutcomePaymentRequired = "payment_required"
	OutcomeStatusError     = "status_error"
	OutcomeTransportError  = "transport_error"
	OutcomeDecodeError     = "decode_error"
	OutcomeCircuitOpen     = "circuit_open"
	OutcomeCanceled        = "canceled"
)

// Call describes one completed oracle request.
type Call struct {
	Endpoint   string
	Query      string
	StatusCode int
	Outcome    string
	Duration   time.Duration
	Err        error
}

// Observer is notified after every call. It must not block.
type Observer func(ctx context.Context, call Call)

// Client talks to the trust oracle.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the http.Client timeout. Zero disables it. The client is
// copied first so an injected http.Client is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// HTTPClient returns the http.Client used for requests.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// WithBreaker guards each endpoint with b.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithObserver registers a per-call hook.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(l, "oracle") }
}

// NewClient creates a client for the oracle at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logging.Component(nil, "oracle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// NetworkStats fetches the aggregate network snapshot.
func (c *Client) NetworkStats(ctx context.Context) (*NetworkStats, error) {
	var stats NetworkStats
	err := c.get(ctx, PathNetworkStats, nil, func(body []byte) error {
		return json.Unmarshal(body, &stats)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// PaymentStats fetches the payment summary.
func (c *Client) PaymentStats(ctx context.Context) (*PaymentStats, error) {
	var stats PaymentStats
	err := c.get(ctx, PathPaymentStats, nil, func(body []byte) error {
		return json.Unmarshal(body, &stats)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// TopAgents fetches a ranked listing. A body that is not a JSON array is
// treated as an empty listing; an array that fails to decode is an error.
func (c *Client) TopAgents(ctx context.Context, q TopQuery) ([]TrustedAgent, error) {
	agents := []TrustedAgent{}
	err := c.get(ctx, PathTopAgents, q.Values(), func(body []byte) error {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			c.logger.Debug("listing body is not an array, treating as empty", "bytes", len(body))
			return nil
		}
		return json.Unmarshal(trimmed, &agents)
	})
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// Values encodes the query. Empty filters are left out entirely.
func (q TopQuery) Values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Chain != "" {
		v.Set("chain", q.Chain)
	}
	return v
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, decode func([]byte) error) error {
	call := Call{Endpoint: path, Query: query.Encode()}
	start := time.Now()

	ctx, span := traces.StartSpan(ctx, "oracle.get", traces.Endpoint(path), traces.Query(call.Query))
	defer span.End()

	body, err := c.do(ctx, path, &call)
	if err == nil {
		if derr := decode(body); derr != nil {
			err = fmt.Errorf("%w: %s: %v", ErrMalformed, path, derr)
		}
	}

	call.Duration = time.Since(start)
	call.Err = err
	call.Outcome = classify(ctx, err)
	span.SetAttributes(traces.StatusCode(call.StatusCode))
	traces.RecordError(span, err)

	c.recordBreaker(path, call)
	metrics.UpstreamRequestsTotal.WithLabelValues(path, call.Outcome).Inc()
	if call.Outcome != OutcomeCircuitOpen {
		metrics.UpstreamRequestDuration.WithLabelValues(path).Observe(call.Duration.Seconds())
	}
	if c.observer != nil {
		c.observer(ctx, call)
	}

	if err != nil && call.Outcome != OutcomeCanceled {
		logging.L(ctx).Debug("oracle request failed",
			"component", "oracle", "endpoint", path, "status", call.StatusCode, "outcome", call.Outcome, "error", err)
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, call *Call) ([]byte, error) {
	if c.breaker != nil && !c.breaker.Allow(path) {
		return nil, ErrCircuitOpen
	}

	u := c.baseURL + path
	if call.Query != "" {
		u += "?" + call.Query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	call.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case x402.Is402Response(resp):
		terms, perr := x402.ParseResponse(resp, body)
		if perr != nil {
			terms = nil
		}
		return nil, &PaymentRequiredError{Endpoint: path, Terms: terms}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		serr := &StatusError{Endpoint: path, Code: resp.StatusCode}
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil {
			serr.Message = firstNonEmpty(apiErr.Message, apiErr.Detail, apiErr.Error)
		}
		return nil, serr
	}
	return body, nil
}

// recordBreaker counts transport faults and 5xx as failures. A 402 or
// other 4xx is a healthy upstream answering.
func (c *Client) recordBreaker(path string, call Call) {
	if c.breaker == nil {
		return
	}
	switch call.Outcome {
	case OutcomeCircuitOpen:
		return
	case OutcomeCanceled:
		// A canceled half-open trial call must not hold the trial slot.
		c.breaker.Release(path)
	case OutcomeTransportError:
		c.breaker.RecordFailure(path)
	case OutcomeStatusError:
		var serr *StatusError
		if errors.As(call.Err, &serr) && serr.Temporary() {
			c.breaker.RecordFailure(path)
			return
		}
		c.breaker.RecordSuccess(path)
	default:
		c.breaker.RecordSuccess(path)
	}
}

func classify(ctx context.Context, err error) string {
	var serr *StatusError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrCircuitOpen):
		return OutcomeCircuitOpen
	case errors.Is(err, ErrPaymentRequired):
		return OutcomePaymentRequired
	case errors.As(err, &serr):
		return OutcomeStatusError
	case errors.Is(err, ErrMalformed):
		return OutcomeDecodeError
	case ctx.Err() != nil:
		return OutcomeCanceled
	default:
		return OutcomeTransportError
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
