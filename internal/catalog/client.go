package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/rocketcart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrUnavailable = errors.New("catalog: unavailable")
)

// Client talks to the storefront's stock and product endpoints.
// Nothing is cached: concurrent identical lookups share one round-trip, later calls go back to the API.
// After repeated transport or server failures the breaker opens and calls fail fast with ErrUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	sfg     singleflight.Group
	cb      *gobreaker.CircuitBreaker[struct{}]

	maxFailures  uint32
	breakerReset time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how long it stays open.
func WithBreaker(maxFailures uint32, reset time.Duration) Option {
	return func(cl *Client) {
		cl.maxFailures = maxFailures
		cl.breakerReset = reset
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxFailures:  5,
		breakerReset: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "catalog",
		Timeout: c.breakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		// unknown ids are answers, not outages; a cancelled request says nothing about the API
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})
	return c
}

func (c *Client) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	key := "stock:" + strconv.FormatInt(productID, 10)
	v, err := c.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		var s domain.Stock
		if err := c.get(ctx, fmt.Sprintf("/stock/%d", productID), &s); err != nil {
			return domain.Stock{}, err
		}
		return s, nil
	})
	if err != nil {
		return domain.Stock{}, err
	}
	return v.(domain.Stock), nil
}

// GetProduct returns the catalog record. Amount is whatever the API sent, callers set their own.
func (c *Client) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	key := "product:" + strconv.FormatInt(productID, 10)
	v, err := c.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		var p domain.Product
		if err := c.get(ctx, fmt.Sprintf("/products/%d", productID), &p); err != nil {
			return domain.Product{}, err
		}
		return p, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}

// shared joins the in-flight call for key. The fetch is detached from any single caller's
// cancellation and bounded by the client timeout; each caller still stops waiting on its own ctx.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.timeout)
			defer cancel()
		}
		return fn(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", key, ctx.Err())
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.do(ctx, path, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: GET %s: status %d", ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
