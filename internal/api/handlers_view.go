// handlers_view.go - Warehouse view handlers
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/session"
	"github.com/warehouse-visualizer/backend/internal/view"
	"go.uber.org/zap"
)

// ViewHandlerImpl implements the ViewHandler interface
type ViewHandlerImpl struct {
	sessions SessionManager
	history  HistoryStore
	logger   *zap.Logger
}

// NewViewHandler creates a new view handler. history may be nil when the
// route log is disabled.
func NewViewHandler(sessions SessionManager, history HistoryStore, logger *zap.Logger) ViewHandler {
	return &ViewHandlerImpl{
		sessions: sessions,
		history:  history,
		logger:   logging.OrNop(logger).Named("api"),
	}
}

type createViewResponse struct {
	ViewID string              `json:"viewId"`
	Grid   models.GridSnapshot `json:"grid"`
	// PathError is set when the warehouse loaded but the route request failed.
	PathError *APIError `json:"pathError,omitempty"`
}

type viewSummary struct {
	ViewID       string      `json:"viewId"`
	WarehouseID  string      `json:"warehouseId"`
	Params       view.Params `json:"params"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastAccessed time.Time   `json:"lastAccessed"`
}

type findPathRequest struct {
	Source      *models.Coord `json:"source" validate:"required"`
	Destination *models.Coord `json:"destination" validate:"required"`
}

type findPickPathRequest struct {
	Source      *models.Coord  `json:"source" validate:"required"`
	Destination *models.Coord  `json:"destination,omitempty"`
	Items       []models.Coord `json:"items" validate:"required"`
}

func (r *findPathRequest) check() error {
	return checkCells(r.Source, r.Destination, nil)
}

func (r *findPickPathRequest) check() error {
	return checkCells(r.Source, r.Destination, r.Items)
}

// checkCells rejects negative coordinates. Nil cells are skipped.
func checkCells(source, destination *models.Coord, items []models.Coord) error {
	if source != nil && !source.NonNegative() {
		return fmt.Errorf("source %s has a negative coordinate", *source)
	}
	if destination != nil && !destination.NonNegative() {
		return fmt.Errorf("destination %s has a negative coordinate", *destination)
	}
	for _, item := range items {
		if !item.NonNegative() {
			return fmt.Errorf("item %s has a negative coordinate", item)
		}
	}
	return nil
}

type historyResponse struct {
	Routes []models.Route     `json:"routes"`
	Stats  *models.RouteStats `json:"stats"`
}

// HandleCreateView loads a warehouse and applies the requested route
func (h *ViewHandlerImpl) HandleCreateView(c echo.Context) error {
	var p view.Params
	if err := c.Bind(&p); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := p.Validate(); err != nil {
		return FromError(err)
	}

	entry, err := h.sessions.Create(c.Request().Context(), p)
	if entry == nil {
		return FromError(err)
	}

	resp := createViewResponse{
		ViewID: entry.View.ID(),
		Grid:   entry.View.Snapshot(),
	}
	if err != nil {
		h.logger.Warn("view created without route", zap.String("view", resp.ViewID), zap.Error(err))
		resp.PathError = FromError(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// HandleListViews returns every live view, most recently used first
func (h *ViewHandlerImpl) HandleListViews(c echo.Context) error {
	entries := h.sessions.List()
	out := make([]viewSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewSummary{
			ViewID:       e.View.ID(),
			WarehouseID:  e.View.WarehouseID(),
			Params:       e.Params,
			CreatedAt:    e.CreatedAt,
			LastAccessed: e.LastAccessed,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// HandleGetSVG renders the view as SVG
func (h *ViewHandlerImpl) HandleGetSVG(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := entry.View.Render(&buf); err != nil {
		return FromError(err)
	}
	return c.Blob(http.StatusOK, "image/svg+xml", buf.Bytes())
}

// HandleGetLayout returns the pixel geometry of every cell
func (h *ViewHandlerImpl) HandleGetLayout(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	layout, err := entry.View.Layout()
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, layout)
}

// HandleGetGrid returns the grid state as JSON
func (h *ViewHandlerImpl) HandleGetGrid(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry.View.Snapshot())
}

// HandleGetGridMsgpack returns the grid state as MessagePack
func (h *ViewHandlerImpl) HandleGetGridMsgpack(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(entry.View.Snapshot())
	if err != nil {
		return NewInternalError("failed to encode grid", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleFindPath requests a point-to-point path and marks it on the grid
func (h *ViewHandlerImpl) HandleFindPath(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	var req findPathRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := entry.View.FindPath(c.Request().Context(), *req.Source, *req.Destination); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, entry.View.Snapshot())
}

// HandleFindPickPath requests a pick route and marks it on the grid
func (h *ViewHandlerImpl) HandleFindPickPath(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	var req findPickPathRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := entry.View.FindPickPath(c.Request().Context(), *req.Source, req.Destination, req.Items); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, entry.View.Snapshot())
}

// HandleClearPath removes every route marking from the grid
func (h *ViewHandlerImpl) HandleClearPath(c echo.Context) error {
	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	if err := entry.View.ClearPath(); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, entry.View.Snapshot())
}

// HandleDeleteView drops a view
func (h *ViewHandlerImpl) HandleDeleteView(c echo.Context) error {
	id := c.Param("viewId")
	if id == "" {
		return NewValidationError("viewId")
	}

	if err := h.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return NewNotFoundError("view", id)
		}
		return FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetHistory returns recent routes of a view and stats for its warehouse
func (h *ViewHandlerImpl) HandleGetHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("route history is disabled")
	}

	entry, err := h.entry(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return NewValidationError("limit")
		}
	}

	ctx := c.Request().Context()
	routes, err := h.history.Recent(ctx, entry.View.ID(), limit)
	if err != nil {
		return NewInternalError("failed to read route history", err)
	}
	stats, err := h.history.Stats(ctx, entry.View.WarehouseID())
	if err != nil {
		return NewInternalError("failed to read route stats", err)
	}
	return c.JSON(http.StatusOK, historyResponse{Routes: routes, Stats: stats})
}

func (h *ViewHandlerImpl) entry(c echo.Context) (*session.Entry, error) {
	id := c.Param("viewId")
	if id == "" {
		return nil, NewValidationError("viewId")
	}

	entry, err := h.sessions.Get(id)
	if err != nil {
		return nil, NewNotFoundError("view", id)
	}
	return entry, nil
}
