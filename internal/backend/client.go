// Package backend is the single HTTP client of the platform REST API.
//
// Every network call of the dashboard funnels through Client. A Client is
// shared by the whole process; API binds it to one session's token.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/version"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// TokenSource provides the current session token. An empty token means
// the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource for a fixed token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Observer receives one call per backend request.
type Observer interface {
	ObserveBackend(method, endpoint, outcome string, d time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string        // ex: https://api.example.com
	Timeout    time.Duration // per request
	AuthScheme string        // "Bearer", or "" to send the raw token
	HTTPClient *http.Client  // optional, for tests
	Observer   Observer      // optional
}

// Client issues requests against the backend. It never retries.
type Client struct {
	base     *url.URL
	http     *http.Client
	scheme   string
	observer Observer
	logger   logger.Logger
}

func New(opts Options, log logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		base:     base,
		http:     hc,
		scheme:   opts.AuthScheme,
		observer: opts.Observer,
		logger:   log,
	}, nil
}

// Payload is a decoded successful response.
//
// The backend wraps most responses as {"message": ..., "data": ...}; a few
// (login) put their fields at the top level, so Raw is kept as well.
type Payload struct {
	Status  int
	Message string
	Data    json.RawMessage
	Raw     []byte
}

// Decode unmarshals Data into v, or the whole body when there is no data field.
func (p *Payload) Decode(v any) error {
	src := []byte(p.Data)
	if len(src) == 0 || string(src) == "null" {
		src = p.Raw
	}
	if len(src) == 0 {
		return nil
	}
	if err := json.Unmarshal(src, v); err != nil {
		return fmt.Errorf("failed to decode backend payload: %w", err)
	}
	return nil
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Call describes one request. Endpoint is a low-cardinality label for
// metrics and logs (ex: "link.delete"); it defaults to the path.
type Call struct {
	Endpoint string
	Method   string
	Path     string
	Query    url.Values
	Body     any
	Accept   string
}

// Request is the generic entry point: method, path, optional body and query.
func (c *Client) Request(ctx context.Context, ts TokenSource, method, path string, body any, query url.Values) (*Payload, error) {
	return c.Do(ctx, ts, Call{Method: method, Path: path, Body: body, Query: query})
}

// Do sends a JSON request and decodes the JSON envelope.
func (c *Client) Do(ctx context.Context, ts TokenSource, call Call) (*Payload, error) {
	resp, err := c.send(ctx, ts, call)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(fmt.Errorf("read response: %w", err))
	}

	p := &Payload{Status: resp.StatusCode, Raw: raw}
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &env) == nil {
		p.Message = env.Message
		p.Data = env.Data
	}
	return p, nil
}

// Stream sends the request and hands back the raw body for binary payloads.
// The caller must close the returned reader.
func (c *Client) Stream(ctx context.Context, ts TokenSource, call Call) (io.ReadCloser, string, error) {
	resp, err := c.send(ctx, ts, call)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// send performs the round trip and maps failures. On success the response
// body is left open for the caller.
func (c *Client) send(ctx context.Context, ts TokenSource, call Call) (*http.Response, error) {
	endpoint := call.Endpoint
	if endpoint == "" {
		endpoint = call.Path
	}
	start := time.Now()

	req, err := c.newRequest(ctx, ts, call)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(call.Method, endpoint, "network", start)
		c.logger.Warn("backend request failed",
			logger.String("method", call.Method),
			logger.String("endpoint", endpoint),
			logger.Error(err))
		return nil, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		apiErr := statusError(resp.StatusCode, body)
		c.observe(call.Method, endpoint, apiErr.Kind.String(), start)
		c.logger.Debug("backend request rejected",
			logger.String("method", call.Method),
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
			logger.String("message", apiErr.Message))
		return nil, apiErr
	}

	c.observe(call.Method, endpoint, "ok", start)
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, ts TokenSource, call Call) (*http.Request, error) {
	u, err := c.base.Parse(strings.TrimLeft(call.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend path %q: %w", call.Path, err)
	}
	if len(call.Query) > 0 {
		u.RawQuery = call.Query.Encode()
	}

	var body io.Reader = http.NoBody
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	accept := call.Accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", version.UserAgent())

	if ts != nil {
		if tok := ts.Token(); tok != "" {
			req.Header.Set("Authorization", c.authorization(tok))
		}
	}
	return req, nil
}

func (c *Client) authorization(token string) string {
	if c.scheme == "" {
		return token
	}
	return c.scheme + " " + token
}

func (c *Client) observe(method, endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackend(method, endpoint, outcome, time.Since(start))
	}
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(err)
	}
	_ = resp.Body.Close()
	return nil
}

// For binds the client to one session's token.
func (c *Client) For(ts TokenSource) *API {
	return &API{c: c, ts: ts}
}
