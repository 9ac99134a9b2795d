// Package soliscloud is a client for the SolisCloud monitoring API.
//
// Every call is signed with the account secret (HMAC-SHA1 over the
// vendor's canonical request string), gated by a shared rate limiter and
// dispatched as a single POST. Responses arrive in the vendor envelope
// {code, msg, data}; the payload is returned raw on success and mapped
// to a typed error otherwise. The client never retries; see Retryable.
package soliscloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultDomain is the production API endpoint.
	DefaultDomain = "https://www.soliscloud.com:13333"

	defaultTimeout = 10 * time.Second
)

// Config carries the credentials and transport settings for a client.
// Credentials are read-only for the lifetime of the client.
type Config struct {
	KeyID  string
	Secret []byte
	// Domain overrides DefaultDomain, mainly for tests.
	Domain string
	// Timeout bounds each network exchange. Defaults to 10s.
	Timeout time.Duration
}

// Client talks to the SolisCloud API. Safe for concurrent use; the rate
// limiter and HTTP client are shared by all calls.
type Client struct {
	keyID   string
	secret  []byte
	domain  string
	http    *http.Client
	limiter Limiter
	clock   Clock
	log     *zap.Logger
}

// Option adjusts a client at construction time.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimiter substitutes the call gate, e.g. NopLimiter in tests.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithClock substitutes the signing clock.
func WithClock(clk Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithLogger enables debug logging of outbound calls.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New validates cfg and builds a client. Credential problems surface
// here as ConfigError, before any network activity.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" {
		return nil, &ConfigError{Reason: "api key id is required"}
	}
	if len(bytes.TrimSpace(cfg.Secret)) == 0 {
		return nil, &ConfigError{Reason: "api secret is required"}
	}

	domain := strings.TrimSpace(cfg.Domain)
	if domain == "" {
		domain = DefaultDomain
	}
	domain = strings.TrimRight(domain, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		keyID:   cfg.KeyID,
		secret:  cfg.Secret,
		domain:  domain,
		http:    &http.Client{Timeout: timeout},
		limiter: NewLimiter(DefaultRateLimit, DefaultRateWindow),
		clock:   systemClock{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call signs and dispatches one POST to resource with the given body
// parameters and returns the envelope payload. resource must carry the
// /v1/api/ prefix. A nil params map sends an empty JSON object.
func (c *Client) Call(ctx context.Context, resource string, params map[string]any) (json.RawMessage, error) {
	if !strings.HasPrefix(resource, ResourcePrefix) {
		return nil, &ConfigError{Reason: "resource " + resource + " outside " + ResourcePrefix}
	}
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, &ConfigError{Reason: "unencodable parameters: " + err.Error()}
	}

	headers, err := signHeaders(c.keyID, c.secret, http.MethodPost, body, resource, c.clock.Now())
	if err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(resource, ResourcePrefix)
	gateStart := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		callsTotal.WithLabelValues(name, "canceled").Inc()
		return nil, err
	}
	limiterWait.Observe(time.Since(gateStart).Seconds())

	// Gate wait is measured above; the duration histogram covers the
	// exchange only.
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.domain+resource, bytes.NewReader(body))
	if err != nil {
		return nil, &ConfigError{Reason: "build request: " + err.Error()}
	}
	for key, values := range headers {
		req.Header[key] = values
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// 0 marks "no response" so the gauge never reports a stale
		// status across a run of transport failures.
		lastStatusGauge.Set(0)
		classified := c.classifyTransportError(ctx, err)
		observeCall(name, transportOutcome(classified), start)
		return nil, classified
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		lastStatusGauge.Set(0)
		classified := c.classifyTransportError(ctx, err)
		observeCall(name, transportOutcome(classified), start)
		return nil, classified
	}

	lastStatusGauge.Set(float64(resp.StatusCode))
	c.log.Debug("soliscloud call",
		zap.String("resource", resource),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, LocalTime: c.clock.Now()}
		if httpErr.ClockSkew() {
			observeCall(name, "clock_skew", start)
		} else {
			observeCall(name, "http_error", start)
		}
		return nil, httpErr
	}

	data, err := decodeEnvelope(raw)
	observeCall(name, envelopeOutcome(err), start)
	return data, err
}

// CallRecords is Call for paged endpoints: it unwraps the record array
// from the payload.
func (c *Client) CallRecords(ctx context.Context, resource string, params map[string]any) (json.RawMessage, error) {
	data, err := c.Call(ctx, resource, params)
	if err != nil {
		return nil, err
	}
	return unwrapRecords(data)
}

// classifyTransportError maps a transport failure to the error taxonomy.
// Context cancellation and deadline expiry propagate unchanged so the
// caller sees its own cancellation.
func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &NetworkError{Timeout: true, Err: err}
	}
	return &NetworkError{Err: err}
}

func transportOutcome(err error) string {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout {
			return "timeout"
		}
		return "network_error"
	}
	return "canceled"
}

func envelopeOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isAccountError(err):
		return "account_fault"
	case isParseError(err):
		return "parse_error"
	default:
		return "api_error"
	}
}

func isAccountError(err error) bool {
	var target *AccountError
	return errors.As(err, &target)
}

func isParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}
