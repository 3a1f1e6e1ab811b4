// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions SessionManager
	// History is nil when the route log is disabled.
	History HistoryStore
	Logger  *zap.Logger
	Version string
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	View   ViewHandler
	Page   PageHandler
	// Metrics is nil when the Prometheus endpoint is disabled.
	Metrics http.Handler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Sessions),
		View:    NewViewHandler(deps.Sessions, deps.History, deps.Logger),
		Page:    NewPageHandler(deps.Sessions, deps.Logger),
		Metrics: deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Server-rendered page
	e.GET("/", handlers.Page.HandleViewPage)
	e.GET("/view", handlers.Page.HandleViewPage)

	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}

	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// View routes
	viewGroup := apiGroup.Group("/views")
	viewGroup.POST("", handlers.View.HandleCreateView)
	viewGroup.GET("", handlers.View.HandleListViews)
	viewGroup.GET("/:viewId/svg", handlers.View.HandleGetSVG)
	viewGroup.GET("/:viewId/layout", handlers.View.HandleGetLayout)
	viewGroup.GET("/:viewId/grid", handlers.View.HandleGetGrid)
	viewGroup.GET("/:viewId/grid/msgpack", handlers.View.HandleGetGridMsgpack)
	viewGroup.POST("/:viewId/path", handlers.View.HandleFindPath)
	viewGroup.POST("/:viewId/pick-path", handlers.View.HandleFindPickPath)
	viewGroup.POST("/:viewId/clear", handlers.View.HandleClearPath)
	viewGroup.DELETE("/:viewId", handlers.View.HandleDeleteView)
	viewGroup.GET("/:viewId/history", handlers.View.HandleGetHistory)
}
