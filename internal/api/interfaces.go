// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/session"
	"github.com/warehouse-visualizer/backend/internal/view"
)

// ViewHandler handles warehouse view operations
type ViewHandler interface {
	HandleCreateView(c echo.Context) error
	HandleListViews(c echo.Context) error
	HandleGetSVG(c echo.Context) error
	HandleGetLayout(c echo.Context) error
	HandleGetGrid(c echo.Context) error
	HandleGetGridMsgpack(c echo.Context) error
	HandleFindPath(c echo.Context) error
	HandleFindPickPath(c echo.Context) error
	HandleClearPath(c echo.Context) error
	HandleDeleteView(c echo.Context) error
	HandleGetHistory(c echo.Context) error
}

// PageHandler serves the server-rendered view page
type PageHandler interface {
	HandleViewPage(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for view session management
// This allows mocking in tests
type SessionManager interface {
	Create(ctx context.Context, p view.Params) (*session.Entry, error)
	Get(id string) (*session.Entry, error)
	Delete(id string) error
	List() []session.Entry
	Len() int
}

// HistoryStore reads the route log
type HistoryStore interface {
	Recent(ctx context.Context, viewID string, limit int) ([]models.Route, error)
	Stats(ctx context.Context, warehouseID string) (*models.RouteStats, error)
}
