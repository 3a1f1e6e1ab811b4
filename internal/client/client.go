// Package client talks to the upstream warehouse API that owns the floor
// topology and computes paths.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/warehouse-visualizer/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: upstream returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// ErrCircuitOpen is returned without contacting the upstream while the
// circuit breaker is open.
var ErrCircuitOpen = errors.New("upstream circuit open")

// Endpoint names used for logging and metrics.
const (
	EndpointWarehouse    = "warehouse"
	EndpointFindPath     = "find-path"
	EndpointPath         = "path"
	EndpointFindPickPath = "find-pick-path"
)

// RequestObserver is told about every upstream round trip. status is 0 when
// no response was received.
type RequestObserver interface {
	ObserveUpstream(endpoint string, status int, duration time.Duration)
}

// BreakerSettings configures the optional circuit breaker. The breaker trips
// after ConsecutiveFailures transport errors or 5xx answers in a row and
// stays open for OpenTimeout. Upstream 4xx answers count as successes.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports every request to o.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithCircuitBreaker guards the upstream with a circuit breaker.
func WithCircuitBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		if settings.ConsecutiveFailures == 0 {
			settings.ConsecutiveFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "upstream",
			MaxRequests: 1,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
			IsSuccessful: breakerSuccess,
		})
	}
}

// breakerSuccess decides which errors count against the upstream.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode < http.StatusInternalServerError
	}
	return false
}

// Client is a thin JSON client for the warehouse API. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
	observer   RequestObserver
	breaker    *gobreaker.CircuitBreaker
}

// New creates a client rooted at baseURL.
func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchWarehouse loads the dimensions and navigation graph of a warehouse.
func (c *Client) FetchWarehouse(ctx context.Context, warehouseID string) (*models.WarehouseData, error) {
	var data models.WarehouseData
	if err := c.do(ctx, EndpointWarehouse, http.MethodGet, c.warehouseURL(warehouseID), nil, &data); err != nil {
		return nil, fmt.Errorf("fetching warehouse %q: %w", warehouseID, err)
	}
	return &data, nil
}

// FindPath asks for a point-to-point path.
func (c *Client) FindPath(ctx context.Context, warehouseID string, source, destination models.Coord) ([]models.Coord, error) {
	body := models.PathRequest{Source: source, Destination: destination}
	var path []models.Coord
	if err := c.do(ctx, EndpointFindPath, http.MethodPost, c.warehouseURL(warehouseID)+"find-path/", body, &path); err != nil {
		return nil, fmt.Errorf("finding path %s -> %s: %w", source, destination, err)
	}
	return path, nil
}

// FindPathGet is the GET variant of FindPath, with both cells in the URL.
func (c *Client) FindPathGet(ctx context.Context, warehouseID string, source, destination models.Coord) ([]models.Coord, error) {
	u := c.warehouseURL(warehouseID) + "path/" + pathCell(source) + "/" + pathCell(destination) + "/"
	var path []models.Coord
	if err := c.do(ctx, EndpointPath, http.MethodGet, u, nil, &path); err != nil {
		return nil, fmt.Errorf("finding path %s -> %s: %w", source, destination, err)
	}
	return path, nil
}

// FindPickPath asks for a route from source through every item, optionally
// ending at destination.
func (c *Client) FindPickPath(ctx context.Context, warehouseID string, source models.Coord, destination *models.Coord, items []models.Coord) (*models.PickPathResponse, error) {
	if items == nil {
		items = []models.Coord{}
	}
	body := models.PickPathRequest{Source: source, Destination: destination, Items: items}
	var resp models.PickPathResponse
	if err := c.do(ctx, EndpointFindPickPath, http.MethodPost, c.warehouseURL(warehouseID)+"find-pick-path/", body, &resp); err != nil {
		return nil, fmt.Errorf("finding pick path from %s over %d items: %w", source, len(items), err)
	}
	return &resp, nil
}

func (c *Client) warehouseURL(warehouseID string) string {
	return c.baseURL + "/api/warehouse/" + url.PathEscape(warehouseID) + "/"
}

func pathCell(cell models.Coord) string {
	return url.PathEscape(fmt.Sprintf("(%d,%d)", cell.Col(), cell.Row()))
}

func (c *Client) do(ctx context.Context, endpoint, method, u string, body any, out any) error {
	if c.breaker == nil {
		return c.roundTrip(ctx, endpoint, method, u, body, out)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, endpoint, method, u, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, endpoint, method, u string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		c.logger.Warn("request failed", zap.String("method", method), zap.String("url", u), zap.Error(err))
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	c.observe(endpoint, resp.StatusCode, time.Since(start))
	c.logger.Debug("request done",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	return decodeJSON(raw, out)
}

func (c *Client) observe(endpoint string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, status, d)
	}
}

// decodeJSON decodes raw into out. Some upstreams serialize their payload
// with json.dumps and then wrap it again as a JSON string, so a top-level
// string is unwrapped once before decoding.
func decodeJSON(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
