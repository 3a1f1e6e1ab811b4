// handlers_page.go - Server-rendered view page
package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/view"
	"github.com/warehouse-visualizer/backend/internal/web"
	"go.uber.org/zap"
)

// PageHandlerImpl implements the PageHandler interface
type PageHandlerImpl struct {
	sessions SessionManager
	logger   *zap.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(sessions SessionManager, logger *zap.Logger) PageHandler {
	return &PageHandlerImpl{
		sessions: sessions,
		logger:   logging.OrNop(logger).Named("page"),
	}
}

// HandleViewPage bootstraps a view from the query string and renders it.
// A failed pick route shows a blocking alert. A failed point route only
// shows a notice above whatever grid could be drawn.
func (h *PageHandlerImpl) HandleViewPage(c echo.Context) error {
	q := c.QueryParams()
	page := web.Page{
		WarehouseID:  q.Get("warehouseId"),
		SourceX:      q.Get("sourceX"),
		SourceY:      q.Get("sourceY"),
		DestinationX: q.Get("destinationX"),
		DestinationY: q.Get("destinationY"),
		Items:        q.Get("itemsToPickUp"),
	}
	if page.WarehouseID == "" {
		return h.render(c, http.StatusOK, page)
	}

	p, err := view.ParseParams(q)
	if err != nil {
		page.Alert = err.Error()
		return h.render(c, http.StatusBadRequest, page)
	}

	entry, err := h.sessions.Create(c.Request().Context(), p)
	if entry == nil {
		apiErr := FromError(err)
		h.logger.Warn("warehouse load failed", zap.String("warehouse", p.WarehouseID), zap.Error(err))
		h.report(&page, p, "Failed to load warehouse "+p.WarehouseID)
		return h.render(c, apiErr.Status, page)
	}
	page.ViewID = entry.View.ID()

	if err != nil {
		h.logger.Warn("route request failed", zap.String("view", page.ViewID), zap.Error(err))
		if p.PickFlow() {
			h.report(&page, p, "Failed to find pick path")
		} else {
			h.report(&page, p, "Failed to find path")
		}
	}

	var buf bytes.Buffer
	if err := entry.View.Render(&buf); err != nil {
		return FromError(err)
	}
	page.SVG = template.HTML(buf.String())
	return h.render(c, http.StatusOK, page)
}

func (h *PageHandlerImpl) report(page *web.Page, p view.Params, msg string) {
	if p.PickFlow() {
		page.Alert = msg
	} else {
		page.Notice = msg
	}
}

func (h *PageHandlerImpl) render(c echo.Context, status int, page web.Page) error {
	var buf bytes.Buffer
	if err := web.RenderPage(&buf, page); err != nil {
		return NewInternalError("failed to render page", err)
	}
	return c.HTMLBlob(status, buf.Bytes())
}
