package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/warehouse-visualizer/backend/internal/client"
	"github.com/warehouse-visualizer/backend/internal/history"
	"github.com/warehouse-visualizer/backend/internal/metrics"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/session"
	"github.com/warehouse-visualizer/backend/internal/testutil"
	"github.com/warehouse-visualizer/backend/internal/view"
)

type testServer struct {
	e        *echo.Echo
	fake     *testutil.FakeUpstream
	sessions *session.Manager
	history  *history.Store
	metrics  *metrics.Collector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	fake := testutil.NewFakeUpstream()
	t.Cleanup(fake.Close)
	fake.AddWarehouse("simple", testutil.SimpleWarehouse())
	fake.AddWarehouse("line", testutil.LineWarehouse(4, 4))
	fake.SetPath("line", models.Coord{0, 0}, models.Coord{3, 0}, []models.Coord{{0, 0}, {1, 0}, {2, 0}, {3, 0}})
	fake.SetPickPath("line", &models.PickPathResponse{
		Path:  []models.Coord{{0, 0}, {1, 0}, {2, 0}},
		Items: []models.Coord{{1, 0}},
	})

	store, err := history.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	collector := metrics.NewCollector("test")
	upstream := client.New(fake.URL(), time.Second, nil, client.WithObserver(collector))
	sessions := session.NewManager(upstream, session.Config{
		Recorder: view.Recorders(store, collector),
		Observer: collector,
	})
	collector.TrackActiveViews("test", sessions.Len)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(collector.Middleware())
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Sessions: sessions,
		History:  store,
		Version:  "test",
		Metrics:  collector.Handler(),
	}))

	return &testServer{e: e, fake: fake, sessions: sessions, history: store, metrics: collector}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// createView posts params and returns the new view ID.
func (s *testServer) createView(t *testing.T, params map[string]interface{}) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/views", params)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp createViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ViewID)
	return resp.ViewID
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}
