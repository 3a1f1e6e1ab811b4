// middleware.go - Request logging and common middleware
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/metrics"
	"go.uber.org/zap"
)

// MiddlewareConfig selects the common middleware SetupMiddleware installs.
type MiddlewareConfig struct {
	Logger               *zap.Logger
	EnableRequestLogging bool
	EnableCompression    bool
	CompressionLevel     int
	EnableCORS           bool
	AllowOrigins         string
	BodyLimit            string
	RequestTimeout       time.Duration
	ShowErrorDetails     bool
	// Metrics is nil when the Prometheus endpoint is disabled.
	Metrics *metrics.Collector
}

// RequestLogger logs one line per request with zap.
func RequestLogger(logger *zap.Logger, skipper middleware.Skipper) echo.MiddlewareFunc {
	logger = logging.OrNop(logger).Named("http")
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Int64("bytes", res.Size),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("remoteAddr", c.RealIP()),
			}
			switch {
			case res.Status >= http.StatusInternalServerError:
				logger.Error("request", append(fields, zap.Error(err))...)
			case res.Status >= http.StatusBadRequest:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	// Use custom error handler
	showErrorDetails = cfg.ShowErrorDetails
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestID())

	if cfg.EnableRequestLogging {
		e.Use(RequestLogger(cfg.Logger, func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics" || strings.HasPrefix(path, "/static/")
		}))
	}

	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware())
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout:      cfg.RequestTimeout,
			ErrorMessage: "Request timeout - upstream took too long",
		}))
	}

	if cfg.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
