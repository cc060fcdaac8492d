package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRPS      = 20
	requestIDHeader = "X-Request-ID"
)

// Options configures a Client. Dial overrides the network dialer, which
// tests use to point the client at an in-memory listener.
type Options struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Logger  *zap.Logger
	Dial    fasthttp.DialFunc
}

// Client talks JSON to the barangay backend.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	burst := int(opts.RPS)
	if burst < 3 {
		// the aggregate fetch fires three requests at once
		burst = 3
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http: &fasthttp.Client{
			Name:                "request-tracker",
			MaxConnsPerHost:     100,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         opts.Timeout,
			WriteTimeout:        opts.Timeout,
			Dial:                opts.Dial,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), burst),
		logger:  opts.Logger,
	}
}

// GetRows issues a GET and decodes a JSON array of objects. Paginated
// envelopes ({"results": [...]}, {"data": [...]}) are unwrapped.
func (c *Client) GetRows(ctx context.Context, path string, query map[string]string) ([]map[string]any, error) {
	// not pooled: an abandoned call keeps using them until its deadline
	req, resp := &fasthttp.Request{}, &fasthttp.Response{}

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	args := req.URI().QueryArgs()
	for k, v := range query {
		args.Set(k, v)
	}

	if err := c.do(ctx, req, resp); err != nil {
		return nil, err
	}

	body := append([]byte(nil), resp.Body()...)
	rows, err := decodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return rows, nil
}

// Post issues a bodiless POST. Only the status code matters.
func (c *Client) Post(ctx context.Context, path string) error {
	req, resp := &fasthttp.Request{}, &fasthttp.Response{}

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyString("{}")

	return c.do(ctx, req, resp)
}

func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	method := string(req.Header.Method())
	path := string(req.URI().Path())
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// fasthttp calls take no context, so race the call against ctx
	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- c.http.DoDeadline(req, resp, deadline) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		c.logger.Debug("upstream call abandoned",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(ctx.Err()))
		return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
	}
	c.logger.Debug("upstream call",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("%s %s: upstream status %d", method, path, code)
	}
	return nil
}

func decodeRows(body []byte) ([]map[string]any, error) {
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var envelope struct {
		Results []map[string]any `json:"results"`
		Data    []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Results != nil {
		return envelope.Results, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return nil, fmt.Errorf("expected a JSON array or a results/data envelope")
}
