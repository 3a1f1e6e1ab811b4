// Package view owns one rendered warehouse: it loads the floor from the
// upstream API, applies requested routes to the grid and renders the result.
package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/render"
	"github.com/warehouse-visualizer/backend/internal/warehouse"
	"go.uber.org/zap"
)

var (
	ErrNotLoaded  = errors.New("warehouse not loaded")
	ErrSuperseded = errors.New("path response superseded by a newer request")
)

// API is the part of the upstream client a view uses.
type API interface {
	FetchWarehouse(ctx context.Context, warehouseID string) (*models.WarehouseData, error)
	FindPath(ctx context.Context, warehouseID string, source, destination models.Coord) ([]models.Coord, error)
	FindPickPath(ctx context.Context, warehouseID string, source models.Coord, destination *models.Coord, items []models.Coord) (*models.PickPathResponse, error)
}

// RouteRecorder receives every route applied to a view.
type RouteRecorder interface {
	Record(ctx context.Context, route models.Route) error
}

// Recorders fans a route out to every non-nil recorder. The first error is
// returned after all recorders ran.
func Recorders(rs ...RouteRecorder) RouteRecorder {
	var out multiRecorder
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []RouteRecorder

func (m multiRecorder) Record(ctx context.Context, route models.Route) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, route); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Options configures a View. The zero value is usable.
type Options struct {
	ID       string
	Style    *models.Style
	Logger   *zap.Logger
	Recorder RouteRecorder
	// ClearStalePaths re-initializes the grid before each new route.
	// When false, markings from earlier routes stay on the grid.
	ClearStalePaths bool
}

// View exclusively owns a Grid, its Graph and the current PickSession.
// All methods are safe for concurrent use; grid mutation and rendering are
// serialized by mu.
type View struct {
	id          string
	warehouseID string
	api         API
	style       *models.Style
	mapper      render.Mapper
	recorder    RouteRecorder
	clearStale  bool
	logger      *zap.Logger

	mu         sync.Mutex
	grid       *warehouse.Grid
	graph      *warehouse.Graph
	pick       *warehouse.PickSession
	lastPath   []models.Coord
	generation uint64
}

// New creates an unloaded view of warehouseID.
func New(warehouseID string, api API, opts Options) *View {
	style := opts.Style.WithDefaults()
	return &View{
		id:          opts.ID,
		warehouseID: warehouseID,
		api:         api,
		style:       style,
		mapper:      render.NewMapper(style.CellWidth, style.CellHeight),
		recorder:    opts.Recorder,
		clearStale:  opts.ClearStalePaths,
		logger: logging.OrNop(opts.Logger).Named("view").With(
			zap.String("view", opts.ID),
			zap.String("warehouse", warehouseID),
		),
	}
}

// SetStyle swaps the style used by later renders. The grid is untouched.
func (v *View) SetStyle(style *models.Style) {
	style = style.WithDefaults()
	v.mu.Lock()
	v.style = style
	v.mapper = render.NewMapper(style.CellWidth, style.CellHeight)
	v.mu.Unlock()
}

// ID returns the view identifier given in Options.
func (v *View) ID() string { return v.id }

// WarehouseID returns the warehouse this view shows.
func (v *View) WarehouseID() string { return v.warehouseID }

// Loaded reports whether Load has succeeded.
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grid != nil
}

// Load fetches the warehouse and rebuilds the graph and grid. Any path
// request still in flight is superseded.
func (v *View) Load(ctx context.Context) error {
	data, err := v.api.FetchWarehouse(ctx, v.warehouseID)
	if err != nil {
		return err
	}

	grid, err := warehouse.NewGrid(data.Width(), data.Height(), warehouse.Shelving)
	if err != nil {
		return fmt.Errorf("warehouse %q: %w", v.warehouseID, err)
	}
	graph := warehouse.NewGraph(data.Graph)
	if skipped := grid.Seed(graph); skipped > 0 {
		v.logger.Warn("graph nodes outside grid", zap.Int("skipped", skipped))
	}
	if dangling := graph.Dangling(); len(dangling) > 0 {
		v.logger.Warn("links reference undeclared nodes", zap.Stringers("nodes", dangling))
	}

	v.mu.Lock()
	v.grid = grid
	v.graph = graph
	v.pick = nil
	v.lastPath = nil
	v.generation++
	v.mu.Unlock()

	v.logger.Info("warehouse loaded",
		zap.Int("width", grid.Width()),
		zap.Int("height", grid.Height()),
		zap.Int("nodes", len(graph.Nodes)),
	)
	return nil
}

// FindPath requests a point-to-point path and marks it on the grid.
func (v *View) FindPath(ctx context.Context, source, destination models.Coord) error {
	gen, err := v.begin()
	if err != nil {
		return err
	}

	path, err := v.api.FindPath(ctx, v.warehouseID, source, destination)
	if err != nil {
		return err
	}

	route := models.Route{
		Kind:        models.RouteKindPath,
		Source:      source,
		Destination: &destination,
		Length:      len(path),
	}
	return v.apply(ctx, gen, route, path, nil, false)
}

// FindPickPath requests a route through items and marks it on the grid,
// replacing the current pick session.
func (v *View) FindPickPath(ctx context.Context, source models.Coord, destination *models.Coord, items []models.Coord) error {
	gen, err := v.begin()
	if err != nil {
		return err
	}

	resp, err := v.api.FindPickPath(ctx, v.warehouseID, source, destination, items)
	if err != nil {
		return err
	}

	route := models.Route{
		Kind:        models.RouteKindPick,
		Source:      source,
		Destination: destination,
		Length:      len(resp.Path),
		ItemCount:   len(resp.Items),
	}
	return v.apply(ctx, gen, route, resp.Path, resp.Items, true)
}

// ClearPath re-initializes the grid from the graph, dropping every route
// marking and the pick session.
func (v *View) ClearPath() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.grid == nil {
		return ErrNotLoaded
	}
	v.resetLocked()
	v.generation++
	return nil
}

// begin registers a new path request and returns its generation.
func (v *View) begin() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.grid == nil {
		return 0, ErrNotLoaded
	}
	v.generation++
	return v.generation, nil
}

func (v *View) apply(ctx context.Context, gen uint64, route models.Route, path, items []models.Coord, pick bool) error {
	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		v.logger.Info("dropping superseded path response", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	if v.clearStale {
		v.resetLocked()
	}
	skipped := v.grid.ApplyPath(path, items)
	v.lastPath = path
	if pick {
		v.pick = &warehouse.PickSession{Path: path, Items: items}
	}
	v.mu.Unlock()

	if skipped > 0 {
		v.logger.Warn("path cells outside grid", zap.Int("skipped", skipped))
	}
	v.logger.Debug("route applied",
		zap.String("kind", string(route.Kind)),
		zap.Int("length", len(path)),
		zap.Int("items", len(items)),
	)

	if v.recorder != nil {
		route.ViewID = v.id
		route.WarehouseID = v.warehouseID
		if err := v.recorder.Record(ctx, route); err != nil {
			v.logger.Warn("recording route failed", zap.Error(err))
		}
	}
	return nil
}

func (v *View) resetLocked() {
	v.grid.Reset(warehouse.Shelving)
	v.grid.Seed(v.graph)
	v.pick = nil
	v.lastPath = nil
}

// Render writes the current grid as SVG. Nothing is written on error.
func (v *View) Render(w io.Writer) error {
	var buf bytes.Buffer

	v.mu.Lock()
	if v.grid == nil {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	err := render.WriteSVG(&buf, render.Canvas{
		Grid:   v.grid,
		Mapper: v.mapper,
		Style:  v.style,
		Pick:   v.pick,
	})
	v.mu.Unlock()

	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// Layout is the render geometry of a view.
type Layout struct {
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Cells      [][]render.Cell `json:"cells"`
	Connectors []render.Line   `json:"connectors,omitempty"`
}

// Layout returns pixel geometry for every cell plus pick connectors.
func (v *View) Layout() (*Layout, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.grid == nil {
		return nil, ErrNotLoaded
	}
	width, height := v.mapper.CanvasSize(v.grid.Width(), v.grid.Height())
	out := &Layout{
		Width:  width,
		Height: height,
		Cells:  v.mapper.Layout(v.grid),
	}
	if v.pick != nil {
		out.Connectors = v.mapper.Connectors(v.grid.Height(), v.pick.Path)
	}
	return out, nil
}

// Snapshot returns a serializable copy of the grid state.
func (v *View) Snapshot() models.GridSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := models.GridSnapshot{ViewID: v.id, WarehouseID: v.warehouseID}
	if v.grid == nil {
		return snap
	}
	snap.Loaded = true
	snap.Width = v.grid.Width()
	snap.Height = v.grid.Height()
	snap.Cells = make([][]string, v.grid.Width())
	for col := range snap.Cells {
		snap.Cells[col] = make([]string, v.grid.Height())
	}
	v.grid.Each(func(c models.Coord, s warehouse.CellState) {
		snap.Cells[c.Col()][c.Row()] = s.String()
	})
	snap.Path = append([]models.Coord(nil), v.lastPath...)
	if v.pick != nil {
		snap.Items = append([]models.Coord(nil), v.pick.Items...)
	}
	return snap
}
