package view

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warehouse-visualizer/backend/internal/client"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/testutil"
)

func newFake(t *testing.T) (*testutil.FakeUpstream, *client.Client) {
	t.Helper()
	fake := testutil.NewFakeUpstream()
	t.Cleanup(fake.Close)
	fake.AddWarehouse("simple", testutil.SimpleWarehouse())
	fake.AddWarehouse("line", testutil.LineWarehouse(4, 4))
	return fake, client.New(fake.URL(), time.Second, nil)
}

func cell(t *testing.T, v *View, col, row int) string {
	t.Helper()
	snap := v.Snapshot()
	require.True(t, snap.Loaded)
	return snap.Cells[col][row]
}

type recorder struct {
	mu     sync.Mutex
	routes []models.Route
}

func (r *recorder) Record(_ context.Context, route models.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
	return nil
}

func TestView_LoadSeedsGrid(t *testing.T) {
	_, api := newFake(t)
	v := New("line", api, Options{ID: "v1"})

	assert.False(t, v.Loaded())
	require.NoError(t, v.Load(context.Background()))
	assert.True(t, v.Loaded())

	snap := v.Snapshot()
	assert.Equal(t, 4, snap.Width)
	assert.Equal(t, 4, snap.Height)
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			want := "shelving"
			if row == 0 {
				want = "navigable"
			}
			assert.Equal(t, want, snap.Cells[col][row], "(%d,%d)", col, row)
		}
	}
}

func TestView_FindPath(t *testing.T) {
	fake, api := newFake(t)
	fake.SetPath("simple", models.Coord{0, 0}, models.Coord{3, 0}, []models.Coord{{0, 0}, {1, 0}, {2, 0}, {3, 0}})
	rec := &recorder{}
	v := New("simple", api, Options{ID: "v1", Recorder: rec})
	require.NoError(t, v.Load(context.Background()))

	require.NoError(t, v.FindPath(context.Background(), models.Coord{0, 0}, models.Coord{3, 0}))

	assert.Equal(t, "path-source", cell(t, v, 0, 0))
	assert.Equal(t, "path-intermediate", cell(t, v, 1, 0))
	assert.Equal(t, "path-intermediate", cell(t, v, 2, 0))
	assert.Equal(t, "path-destination", cell(t, v, 3, 0))
	assert.Equal(t, "shelving", cell(t, v, 1, 1))
	assert.Equal(t, "navigable", cell(t, v, 0, 3))

	require.Len(t, rec.routes, 1)
	assert.Equal(t, models.RouteKindPath, rec.routes[0].Kind)
	assert.Equal(t, "v1", rec.routes[0].ViewID)
	assert.Equal(t, "simple", rec.routes[0].WarehouseID)
	assert.Equal(t, 4, rec.routes[0].Length)
}

func TestView_FindPickPath(t *testing.T) {
	fake, api := newFake(t)
	fake.SetPickPath("line", &models.PickPathResponse{
		Path:  []models.Coord{{0, 0}, {1, 0}, {2, 0}},
		Items: []models.Coord{{1, 0}},
	})
	v := New("line", api, Options{})
	require.NoError(t, v.Load(context.Background()))

	require.NoError(t, v.FindPickPath(context.Background(), models.Coord{0, 0}, nil, []models.Coord{{1, 0}}))

	assert.Equal(t, "path-source", cell(t, v, 0, 0))
	assert.Equal(t, "path-item-to-pick-up", cell(t, v, 1, 0))
	assert.Equal(t, "path-destination", cell(t, v, 2, 0))

	layout, err := v.Layout()
	require.NoError(t, err)
	assert.Len(t, layout.Connectors, 2)
	assert.Equal(t, 200, layout.Width)

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	assert.Equal(t, 2, strings.Count(buf.String(), `class="connector"`))
}

func TestView_StalePathsPersistByDefault(t *testing.T) {
	fake, api := newFake(t)
	fake.SetPath("line", models.Coord{0, 0}, models.Coord{3, 0}, []models.Coord{{0, 0}, {1, 0}, {2, 0}, {3, 0}})
	fake.SetPath("line", models.Coord{2, 0}, models.Coord{3, 0}, []models.Coord{{2, 0}, {3, 0}})

	ctx := context.Background()
	v := New("line", api, Options{})
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.FindPath(ctx, models.Coord{0, 0}, models.Coord{3, 0}))
	require.NoError(t, v.FindPath(ctx, models.Coord{2, 0}, models.Coord{3, 0}))

	assert.Equal(t, "path-source", cell(t, v, 0, 0))
	assert.Equal(t, "path-intermediate", cell(t, v, 1, 0))
	assert.Equal(t, "path-source", cell(t, v, 2, 0))

	require.NoError(t, v.ClearPath())
	assert.Equal(t, "navigable", cell(t, v, 0, 0))
	assert.Empty(t, v.Snapshot().Path)
}

func TestView_ClearStalePathsOption(t *testing.T) {
	fake, api := newFake(t)
	fake.SetPath("line", models.Coord{0, 0}, models.Coord{3, 0}, []models.Coord{{0, 0}, {1, 0}, {2, 0}, {3, 0}})
	fake.SetPath("line", models.Coord{2, 0}, models.Coord{3, 0}, []models.Coord{{2, 0}, {3, 0}})

	ctx := context.Background()
	v := New("line", api, Options{ClearStalePaths: true})
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.FindPath(ctx, models.Coord{0, 0}, models.Coord{3, 0}))
	require.NoError(t, v.FindPath(ctx, models.Coord{2, 0}, models.Coord{3, 0}))

	assert.Equal(t, "navigable", cell(t, v, 0, 0))
	assert.Equal(t, "navigable", cell(t, v, 1, 0))
	assert.Equal(t, "path-source", cell(t, v, 2, 0))
	assert.Equal(t, []models.Coord{{2, 0}, {3, 0}}, v.Snapshot().Path)
}

func TestView_NotLoaded(t *testing.T) {
	_, api := newFake(t)
	v := New("line", api, Options{})

	assert.ErrorIs(t, v.FindPath(context.Background(), models.Coord{0, 0}, models.Coord{1, 0}), ErrNotLoaded)
	assert.ErrorIs(t, v.Render(&bytes.Buffer{}), ErrNotLoaded)
	assert.ErrorIs(t, v.ClearPath(), ErrNotLoaded)
	_, err := v.Layout()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, v.Snapshot().Loaded)
}

func TestView_Bootstrap(t *testing.T) {
	t.Run("point path", func(t *testing.T) {
		fake, api := newFake(t)
		fake.SetPath("line", models.Coord{0, 0}, models.Coord{2, 0}, []models.Coord{{0, 0}, {1, 0}, {2, 0}})
		v := New("line", api, Options{})

		dst := models.Coord{2, 0}
		require.NoError(t, v.Bootstrap(context.Background(), Params{WarehouseID: "line", Destination: &dst}))
		assert.Equal(t, "path-destination", cell(t, v, 2, 0))
	})

	t.Run("pick path", func(t *testing.T) {
		fake, api := newFake(t)
		fake.SetPickPath("line", &models.PickPathResponse{
			Path:  []models.Coord{{0, 0}, {1, 0}, {2, 0}},
			Items: []models.Coord{{1, 0}},
		})
		v := New("line", api, Options{})

		p := Params{WarehouseID: "line", Items: []models.Coord{{1, 0}}}
		require.NoError(t, v.Bootstrap(context.Background(), p))
		assert.Equal(t, "path-item-to-pick-up", cell(t, v, 1, 0))
	})

	t.Run("unknown warehouse fails at load", func(t *testing.T) {
		_, api := newFake(t)
		v := New("nowhere", api, Options{})

		dst := models.Coord{1, 0}
		err := v.Bootstrap(context.Background(), Params{WarehouseID: "nowhere", Destination: &dst})
		var fe *FlowError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, StageLoad, fe.Stage)
		assert.True(t, client.IsNotFound(err))
		assert.False(t, v.Loaded())
	})

	t.Run("point path failure leaves grid loaded and unpathed", func(t *testing.T) {
		fake, api := newFake(t)
		fake.FailPaths(http.StatusNotFound)
		v := New("line", api, Options{})

		dst := models.Coord{1, 0}
		err := v.Bootstrap(context.Background(), Params{WarehouseID: "line", Destination: &dst})
		var fe *FlowError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, StagePath, fe.Stage)

		assert.True(t, v.Loaded())
		snap := v.Snapshot()
		assert.Empty(t, snap.Path)
		assert.Equal(t, "navigable", snap.Cells[0][0])
		require.NoError(t, v.Render(&bytes.Buffer{}))
	})

	t.Run("pick path failure", func(t *testing.T) {
		fake, api := newFake(t)
		fake.FailPaths(http.StatusInternalServerError)
		v := New("line", api, Options{})

		err := v.Bootstrap(context.Background(), Params{WarehouseID: "line", Items: []models.Coord{}})
		var fe *FlowError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, StagePickPath, fe.Stage)
		assert.True(t, v.Loaded())
	})
}

// blockingAPI holds FindPath calls until released, so tests can control the
// order responses arrive in.
type blockingAPI struct {
	data    models.WarehouseData
	release map[models.Coord]chan struct{}
}

func (b *blockingAPI) FetchWarehouse(context.Context, string) (*models.WarehouseData, error) {
	return &b.data, nil
}

func (b *blockingAPI) FindPath(ctx context.Context, _ string, source, destination models.Coord) ([]models.Coord, error) {
	select {
	case <-b.release[source]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []models.Coord{source, destination}, nil
}

func (b *blockingAPI) FindPickPath(context.Context, string, models.Coord, *models.Coord, []models.Coord) (*models.PickPathResponse, error) {
	return nil, errors.New("not used")
}

func TestView_LateResponseIsDropped(t *testing.T) {
	api := &blockingAPI{
		data: testutil.LineWarehouse(4, 1),
		release: map[models.Coord]chan struct{}{
			{0, 0}: make(chan struct{}),
			{2, 0}: make(chan struct{}),
		},
	}
	ctx := context.Background()
	v := New("line", api, Options{})
	require.NoError(t, v.Load(ctx))

	slow := make(chan error, 1)
	go func() { slow <- v.FindPath(ctx, models.Coord{0, 0}, models.Coord{1, 0}) }()

	// Wait until the slow request has registered its generation.
	require.Eventually(t, func() bool {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.generation >= 2
	}, time.Second, 5*time.Millisecond)

	fast := make(chan error, 1)
	go func() { fast <- v.FindPath(ctx, models.Coord{2, 0}, models.Coord{3, 0}) }()
	require.Eventually(t, func() bool {
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.generation >= 3
	}, time.Second, 5*time.Millisecond)

	close(api.release[models.Coord{2, 0}])
	require.NoError(t, <-fast)
	close(api.release[models.Coord{0, 0}])
	assert.ErrorIs(t, <-slow, ErrSuperseded)

	assert.Equal(t, "navigable", cell(t, v, 0, 0))
	assert.Equal(t, "path-source", cell(t, v, 2, 0))
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, models.Route) error {
	return errors.New("disk full")
}

func TestRecorders_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	rec := Recorders(a, nil, failingRecorder{}, b)

	err := rec.Record(context.Background(), models.Route{Kind: models.RouteKindPath, Length: 3})
	assert.EqualError(t, err, "disk full")
	assert.Len(t, a.routes, 1)
	assert.Len(t, b.routes, 1)
}

func TestView_SetStyle(t *testing.T) {
	_, api := newFake(t)
	v := New("line", api, Options{ID: "v1"})
	require.NoError(t, v.Load(context.Background()))

	v.SetStyle(&models.Style{CellWidth: 5, CellHeight: 7, Stroke: "#abc"})

	layout, err := v.Layout()
	require.NoError(t, err)
	assert.Equal(t, 20, layout.Width)
	assert.Equal(t, 28, layout.Height)

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	assert.Contains(t, buf.String(), "#abc")
}
