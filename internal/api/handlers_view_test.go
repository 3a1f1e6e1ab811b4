// handlers_view_test.go - Tests for view handlers
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/view"
)

var linePointParams = map[string]interface{}{
	"warehouseId": "line",
	"source":      []int{0, 0},
	"destination": []int{3, 0},
}

func TestViewHandler_HandleCreateView(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setup      func(s *testServer)
		wantStatus int
		errCode    string
		pathError  bool
	}{
		{
			name:       "point path",
			body:       linePointParams,
			wantStatus: http.StatusCreated,
		},
		{
			name: "pick path without destination",
			body: map[string]interface{}{
				"warehouseId": "line",
				"source":      []int{0, 0},
				"items":       [][]int{{1, 0}},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing warehouse id",
			body:       map[string]interface{}{"source": []int{0, 0}, "destination": []int{1, 0}},
			wantStatus: http.StatusBadRequest,
			errCode:    "BAD_REQUEST",
		},
		{
			name:       "negative source",
			body:       map[string]interface{}{"warehouseId": "line", "source": []int{-1, 0}, "destination": []int{1, 0}},
			wantStatus: http.StatusBadRequest,
			errCode:    "BAD_REQUEST",
		},
		{
			name: "unknown warehouse",
			body: map[string]interface{}{
				"warehouseId": "nowhere",
				"source":      []int{0, 0},
				"destination": []int{1, 0},
			},
			wantStatus: http.StatusNotFound,
			errCode:    "NOT_FOUND",
		},
		{
			name:       "path failure keeps the loaded view",
			body:       linePointParams,
			setup:      func(s *testServer) { s.fake.FailPaths(http.StatusInternalServerError) },
			wantStatus: http.StatusCreated,
			pathError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.setup != nil {
				tt.setup(s)
			}

			rec := s.do(t, http.MethodPost, "/api/views", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decodeAPIError(t, rec).Code)
				assert.Equal(t, 0, s.sessions.Len())
				return
			}

			var resp createViewResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.True(t, resp.Grid.Loaded)
			assert.Equal(t, 1, s.sessions.Len())
			if tt.pathError {
				require.NotNil(t, resp.PathError)
				assert.Equal(t, "UPSTREAM_ERROR", resp.PathError.Code)
				assert.Empty(t, resp.Grid.Path)
			} else {
				assert.Nil(t, resp.PathError)
				assert.NotEmpty(t, resp.Grid.Path)
				assert.Equal(t, "path-source", resp.Grid.Cells[0][0])
			}
		})
	}
}

func TestViewHandler_RenderEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createView(t, map[string]interface{}{
		"warehouseId": "line",
		"source":      []int{0, 0},
		"items":       [][]int{{1, 0}},
	})

	t.Run("svg", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/views/"+id+"/svg", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "<svg"))
		assert.Contains(t, body, "path-item-to-pick-up-cell")
		assert.Equal(t, 2, strings.Count(body, `class="connector"`))
	})

	t.Run("grid json", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/views/"+id+"/grid", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var snap models.GridSnapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, id, snap.ViewID)
		assert.Equal(t, "path-item-to-pick-up", snap.Cells[1][0])
		assert.Equal(t, []models.Coord{{1, 0}}, snap.Items)
	})

	t.Run("grid msgpack", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/views/"+id+"/grid/msgpack", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))
		var snap models.GridSnapshot
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, 4, snap.Width)
		assert.Equal(t, "path-destination", snap.Cells[2][0])
	})

	t.Run("layout", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/views/"+id+"/layout", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var layout view.Layout
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layout))
		assert.Equal(t, 200, layout.Width)
		assert.Equal(t, 200, layout.Height)
		assert.Len(t, layout.Connectors, 2)
	})

	t.Run("unknown view", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/views/missing/svg", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeAPIError(t, rec).Code)
	})
}

func TestViewHandler_PathOperations(t *testing.T) {
	s := newTestServer(t)
	id := s.createView(t, linePointParams)
	s.fake.SetPath("line", models.Coord{1, 0}, models.Coord{2, 0}, []models.Coord{{1, 0}, {2, 0}})

	rec := s.do(t, http.MethodPost, "/api/views/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.GridSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "navigable", snap.Cells[0][0])

	rec = s.do(t, http.MethodPost, "/api/views/"+id+"/path", map[string]interface{}{
		"source":      []int{1, 0},
		"destination": []int{2, 0},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "path-source", snap.Cells[1][0])
	assert.Equal(t, "path-destination", snap.Cells[2][0])

	rec = s.do(t, http.MethodPost, "/api/views/"+id+"/path", map[string]interface{}{"source": []int{1, 0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/views/"+id+"/path", map[string]interface{}{
		"source":      []int{3, 3},
		"destination": []int{0, 0},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/views/"+id+"/pick-path", map[string]interface{}{
		"source": []int{0, 0},
		"items":  [][]int{{1, 0}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "path-item-to-pick-up", snap.Cells[1][0])

	rec = s.do(t, http.MethodPost, "/api/views/"+id+"/pick-path", map[string]interface{}{"source": []int{0, 0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewHandler_HistoryAndDelete(t *testing.T) {
	s := newTestServer(t)
	id := s.createView(t, linePointParams)

	rec := s.do(t, http.MethodGet, "/api/views/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Routes, 1)
	assert.Equal(t, models.RouteKindPath, hist.Routes[0].Kind)
	assert.Equal(t, 4, hist.Routes[0].Length)
	assert.Equal(t, int64(1), hist.Stats.Routes)

	rec = s.do(t, http.MethodGet, "/api/views/"+id+"/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/views", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	rec = s.do(t, http.MethodDelete, "/api/views/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/views/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewHandler_HistoryDisabled(t *testing.T) {
	s := newTestServer(t)
	id := s.createView(t, linePointParams)

	handler := NewViewHandler(s.sessions, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/views/"+id+"/history", nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	c.SetParamNames("viewId")
	c.SetParamValues(id)

	err := handler.HandleGetHistory(c)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	s := newTestServer(t)
	s.createView(t, linePointParams)

	rec := s.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(1), body["views"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.createView(t, linePointParams)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `test_views_created_total{outcome="created"} 1`)
	assert.Contains(t, body, `test_routes_applied_total{kind="path"} 1`)
	assert.Contains(t, body, `test_upstream_requests_total{endpoint="warehouse",status="200"} 1`)
	assert.Contains(t, body, "test_active_views 1")
	assert.Contains(t, body, `test_http_requests_total{method="POST",route="/api/views",status="201"} 1`)
}

func TestViewHandler_RejectsBadCells(t *testing.T) {
	s := newTestServer(t)
	id := s.createView(t, linePointParams)
	before := len(s.fake.Requests())

	tests := []struct {
		name     string
		target   string
		body     map[string]interface{}
		wantCode string
	}{
		{"empty source", "/path", map[string]interface{}{"source": []int{}, "destination": []int{3, 0}}, "BAD_REQUEST"},
		{"short destination", "/path", map[string]interface{}{"source": []int{0, 0}, "destination": []int{3}}, "BAD_REQUEST"},
		{"long source", "/path", map[string]interface{}{"source": []int{0, 0, 1}, "destination": []int{3, 0}}, "BAD_REQUEST"},
		{"negative source", "/path", map[string]interface{}{"source": []int{-1, 0}, "destination": []int{3, 0}}, "VALIDATION_ERROR"},
		{"negative destination", "/pick-path", map[string]interface{}{"source": []int{0, 0}, "destination": []int{0, -2}, "items": [][]int{{1, 0}}}, "VALIDATION_ERROR"},
		{"negative item", "/pick-path", map[string]interface{}{"source": []int{0, 0}, "items": [][]int{{1, 0}, {-1, 0}}}, "VALIDATION_ERROR"},
		{"short item", "/pick-path", map[string]interface{}{"source": []int{0, 0}, "items": [][]int{{1}}}, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/views/"+id+tt.target, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeAPIError(t, rec).Code)
		})
	}

	assert.Len(t, s.fake.Requests(), before, "no upstream call for rejected bodies")
}
