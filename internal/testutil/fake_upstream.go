// fake_upstream.go - In-process stand-in for the warehouse API, for tests
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/warehouse-visualizer/backend/internal/models"
)

// RecordedRequest is one call the fake received.
type RecordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// FakeUpstream serves canned warehouses and paths over HTTP.
// Unknown warehouses and unregistered paths answer 404.
type FakeUpstream struct {
	Server *httptest.Server

	mu           sync.Mutex
	warehouses   map[string]models.WarehouseData
	paths        map[string][]models.Coord
	pickPaths    map[string]*models.PickPathResponse
	pathStatus   int
	doubleEncode bool
	requests     []RecordedRequest
}

// NewFakeUpstream starts the fake. Call Close when done.
func NewFakeUpstream() *FakeUpstream {
	f := &FakeUpstream{
		warehouses: make(map[string]models.WarehouseData),
		paths:      make(map[string][]models.Coord),
		pickPaths:  make(map[string]*models.PickPathResponse),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(f.record)
	e.GET("/api/warehouse/:id/", f.handleWarehouse)
	e.POST("/api/warehouse/:id/find-path/", f.handleFindPath)
	e.GET("/api/warehouse/:id/path/:from/:to/", f.handlePathGet)
	e.POST("/api/warehouse/:id/find-pick-path/", f.handlePickPath)

	f.Server = httptest.NewServer(e)
	return f
}

// URL returns the base URL of the fake.
func (f *FakeUpstream) URL() string { return f.Server.URL }

// Close shuts the fake down.
func (f *FakeUpstream) Close() { f.Server.Close() }

// AddWarehouse registers a warehouse under id.
func (f *FakeUpstream) AddWarehouse(id string, data models.WarehouseData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warehouses[id] = data
}

// SetPath registers the answer for a point-to-point request.
func (f *FakeUpstream) SetPath(id string, source, destination models.Coord, path []models.Coord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[pathKey(id, source, destination)] = path
}

// SetPickPath registers the answer for any pick-path request on id.
func (f *FakeUpstream) SetPickPath(id string, resp *models.PickPathResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickPaths[id] = resp
}

// FailPaths makes every path and pick-path request answer status.
// Zero restores normal behaviour.
func (f *FakeUpstream) FailPaths(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pathStatus = status
}

// SetDoubleEncode wraps every JSON answer in a JSON string.
func (f *FakeUpstream) SetDoubleEncode(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doubleEncode = on
}

// Requests returns a copy of the requests received so far.
func (f *FakeUpstream) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *FakeUpstream) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body []byte
		if c.Request().Body != nil {
			var raw json.RawMessage
			if err := json.NewDecoder(c.Request().Body).Decode(&raw); err == nil {
				body = raw
			}
		}
		c.Set("body", body)

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: c.Request().Method,
			Path:   c.Request().URL.Path,
			Body:   body,
		})
		f.mu.Unlock()
		return next(c)
	}
}

func (f *FakeUpstream) handleWarehouse(c echo.Context) error {
	f.mu.Lock()
	data, ok := f.warehouses[c.Param("id")]
	f.mu.Unlock()
	if !ok {
		return c.String(http.StatusNotFound, "unknown warehouse")
	}
	return f.reply(c, data)
}

func (f *FakeUpstream) handleFindPath(c echo.Context) error {
	var req models.PathRequest
	if err := json.Unmarshal(bodyOf(c), &req); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	return f.replyPath(c, c.Param("id"), req.Source, req.Destination)
}

func (f *FakeUpstream) handlePathGet(c echo.Context) error {
	from, err := parseCell(c.Param("from"))
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	to, err := parseCell(c.Param("to"))
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	return f.replyPath(c, c.Param("id"), from, to)
}

func (f *FakeUpstream) handlePickPath(c echo.Context) error {
	var req models.PickPathRequest
	if err := json.Unmarshal(bodyOf(c), &req); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	f.mu.Lock()
	status := f.pathStatus
	resp, ok := f.pickPaths[c.Param("id")]
	f.mu.Unlock()

	if status != 0 {
		return c.String(status, "pick path failed")
	}
	if !ok {
		return c.String(http.StatusNotFound, "no pick path")
	}
	return f.reply(c, resp)
}

func (f *FakeUpstream) replyPath(c echo.Context, id string, source, destination models.Coord) error {
	f.mu.Lock()
	status := f.pathStatus
	path, ok := f.paths[pathKey(id, source, destination)]
	_, known := f.warehouses[id]
	f.mu.Unlock()

	if status != 0 {
		return c.String(status, "path failed")
	}
	if !known || !ok {
		return c.String(http.StatusNotFound, "no path")
	}
	return f.reply(c, path)
}

func (f *FakeUpstream) reply(c echo.Context, v any) error {
	f.mu.Lock()
	double := f.doubleEncode
	f.mu.Unlock()

	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if double {
		if payload, err = json.Marshal(string(payload)); err != nil {
			return err
		}
	}
	return c.JSONBlob(http.StatusOK, payload)
}

func bodyOf(c echo.Context) []byte {
	b, _ := c.Get("body").([]byte)
	return b
}

func pathKey(id string, source, destination models.Coord) string {
	return fmt.Sprintf("%s|%s|%s", id, source, destination)
}

func parseCell(raw string) (models.Coord, error) {
	s, err := url.PathUnescape(raw)
	if err != nil {
		return models.Coord{}, err
	}
	var c models.Coord
	if _, err := fmt.Sscanf(s, "(%d,%d)", &c[0], &c[1]); err != nil {
		return models.Coord{}, fmt.Errorf("bad cell %q: %w", s, err)
	}
	return c, nil
}
