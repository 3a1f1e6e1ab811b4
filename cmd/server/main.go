package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/warehouse-visualizer/backend/internal/api"
	"github.com/warehouse-visualizer/backend/internal/client"
	"github.com/warehouse-visualizer/backend/internal/config"
	"github.com/warehouse-visualizer/backend/internal/history"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/metrics"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/parser"
	"github.com/warehouse-visualizer/backend/internal/session"
	"github.com/warehouse-visualizer/backend/internal/view"
	"github.com/warehouse-visualizer/backend/internal/web"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(filepath.Dir(exePath), config.DefaultFileName)
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Advanced.LogLevel, cfg.Advanced.Development)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, configPath, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, configPath string, logger *zap.Logger) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	style, err := loadStyle(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionCfg := session.Config{
		MaxSessions:     cfg.Session.MaxSessions,
		Style:           style,
		ClearStalePaths: cfg.Render.ClearStalePaths,
		Logger:          logger,
	}
	deps := &api.Dependencies{Logger: logger, Version: Version}
	var recorders []view.RouteRecorder
	var clientOpts []client.Option

	// Optional parts stay nil interfaces when disabled.
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
		recorders = append(recorders, collector)
		sessionCfg.Observer = collector
		clientOpts = append(clientOpts, client.WithObserver(collector))
		deps.Metrics = collector.Handler()
	}

	if path := cfg.HistoryPath(); path != "" {
		store, err := history.Open(path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		recorders = append(recorders, store)
		deps.History = store
	}
	if len(recorders) > 0 {
		sessionCfg.Recorder = view.Recorders(recorders...)
	}

	if cfg.Upstream.BreakerFailures > 0 {
		clientOpts = append(clientOpts, client.WithCircuitBreaker(client.BreakerSettings{
			ConsecutiveFailures: uint32(cfg.Upstream.BreakerFailures),
			OpenTimeout:         cfg.BreakerOpenTimeout(),
		}))
	}

	upstream := client.New(cfg.Upstream.BaseURL, cfg.UpstreamTimeout(), logger, clientOpts...)
	sessionMgr := session.NewManager(upstream, sessionCfg)
	deps.Sessions = sessionMgr
	collector.TrackActiveViews(cfg.Metrics.Namespace, sessionMgr.Len)

	if cfg.Render.StyleFile != "" && cfg.Render.WatchStyleFile {
		watcher, err := parser.NewStyleWatcher(cfg.Render.StyleFile, logger)
		if err != nil {
			return err
		}
		watcher.OnChange(func(s *models.Style) {
			sessionMgr.SetStyle(applyCellOverrides(cfg, s))
		})
		watcher.Start(ctx)
	}

	// Start background session cleanup
	if interval := cfg.CleanupInterval(); interval > 0 {
		sessionMgr.StartCleanup(ctx, interval, cfg.SessionMaxAge())
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:               logger,
		EnableRequestLogging: cfg.Advanced.EnableRequestLogging,
		EnableCompression:    cfg.Advanced.EnableCompression,
		CompressionLevel:     cfg.Advanced.CompressionLevel,
		EnableCORS:           cfg.Server.EnableCORS,
		AllowOrigins:         cfg.Server.AllowOrigins,
		BodyLimit:            cfg.Server.BodyLimit,
		RequestTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		ShowErrorDetails:     cfg.Advanced.Development,
		Metrics:              collector,
	})

	api.RegisterRoutes(e, api.NewHandlers(deps))
	if err := web.RegisterStaticRoutes(e); err != nil {
		logger.Warn("failed to register static routes", zap.Error(err))
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("warehouse visualizer starting",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("config", configPath),
		zap.String("listen", "http://"+cfg.GetServerAddr()),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("history", cfg.HistoryPath()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func loadStyle(cfg *config.AppConfig) (*models.Style, error) {
	var style *models.Style
	if cfg.Render.StyleFile != "" {
		parsed, err := parser.ParseStyle(cfg.Render.StyleFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load style sheet: %w", err)
		}
		style = parsed
	} else {
		style = models.DefaultStyle()
	}
	return applyCellOverrides(cfg, style), nil
}

// applyCellOverrides lets explicit cell sizes in the config win over the
// style sheet.
func applyCellOverrides(cfg *config.AppConfig, style *models.Style) *models.Style {
	if cfg.Render.CellWidth > 0 {
		style.CellWidth = cfg.Render.CellWidth
	}
	if cfg.Render.CellHeight > 0 {
		style.CellHeight = cfg.Render.CellHeight
	}
	return style
}
