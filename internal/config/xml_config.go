// Package config provides XML-based configuration management.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultFileName is the config file looked up next to the binary.
const DefaultFileName = "WarehouseVisualizer.config"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"WarehouseVisualizer"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Upstream warehouse API
	Upstream UpstreamConfig `xml:"Upstream"`

	// Rendering
	Render RenderConfig `xml:"Render"`

	// View sessions
	Session SessionConfig `xml:"Session"`

	// Route history
	History HistoryConfig `xml:"History"`

	// Prometheus metrics
	Metrics MetricsConfig `xml:"Metrics"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// UpstreamConfig points at the service that owns warehouse data and
// computes paths.
type UpstreamConfig struct {
	BaseURL        string `xml:"BaseURL"`
	TimeoutSeconds int    `xml:"TimeoutSeconds"`
	// BreakerFailures consecutive failures open the circuit; 0 disables it.
	BreakerFailures    int `xml:"BreakerFailures"`
	BreakerOpenSeconds int `xml:"BreakerOpenSeconds"`
}

// RenderConfig controls the SVG output. A zero cell size keeps the size
// from the style sheet.
type RenderConfig struct {
	CellWidth  int    `xml:"CellWidth"`
	CellHeight int    `xml:"CellHeight"`
	StyleFile  string `xml:"StyleFile"`
	// ClearStalePaths wipes earlier route markings before a new route is drawn.
	ClearStalePaths bool `xml:"ClearStalePaths"`
	// WatchStyleFile reloads StyleFile when it changes on disk.
	WatchStyleFile bool `xml:"WatchStyleFile"`
}

// SessionConfig bounds the number and lifetime of live views.
type SessionConfig struct {
	MaxSessions            int `xml:"MaxSessions"`
	SessionTimeoutMinutes  int `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
}

// HistoryConfig controls the DuckDB route log.
type HistoryConfig struct {
	Enabled       bool   `xml:"Enabled"`
	DataDirectory string `xml:"DataDirectory"`
	FileName      string `xml:"FileName"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `xml:"Enabled"`
	Namespace string `xml:"Namespace"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	Development          bool   `xml:"Development"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	EnableCompression    bool   `xml:"EnableCompression"`
	CompressionLevel     int    `xml:"CompressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		Upstream: UpstreamConfig{
			BaseURL:            "http://localhost:8000",
			TimeoutSeconds:     10,
			BreakerFailures:    5,
			BreakerOpenSeconds: 30,
		},
		Session: SessionConfig{
			MaxSessions:            50,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		History: HistoryConfig{
			Enabled:       true,
			DataDirectory: "./data",
			FileName:      "routes.duckdb",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "warehouse_visualizer",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Warehouse Visualizer Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid Server.Port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return fmt.Errorf("Upstream.BaseURL is required")
	}
	if c.Render.CellWidth < 0 || c.Render.CellHeight < 0 {
		return fmt.Errorf("Render cell size must not be negative")
	}
	if c.Upstream.BreakerFailures < 0 || c.Upstream.BreakerOpenSeconds < 0 {
		return fmt.Errorf("Upstream breaker settings must not be negative")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		return fmt.Errorf("Metrics.Namespace is required when metrics are enabled")
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.History.DataDirectory = dataDir
	}

	// UPSTREAM_URL override
	if upstream := os.Getenv("UPSTREAM_URL"); upstream != "" {
		c.Upstream.BaseURL = upstream
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.History.DataDirectory != "" && !filepath.IsAbs(c.History.DataDirectory) {
		c.History.DataDirectory = filepath.Join(configDir, c.History.DataDirectory)
	}
	if c.Render.StyleFile != "" && !filepath.IsAbs(c.Render.StyleFile) {
		c.Render.StyleFile = filepath.Join(configDir, c.Render.StyleFile)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// HistoryPath returns the route log file, or "" when history is disabled.
func (c *AppConfig) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	return filepath.Join(c.History.DataDirectory, c.History.FileName)
}

// UpstreamTimeout returns the per-request upstream timeout.
func (c *AppConfig) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// BreakerOpenTimeout returns how long an open circuit rejects requests.
func (c *AppConfig) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.Upstream.BreakerOpenSeconds) * time.Second
}

// SessionMaxAge returns how long idle views are kept.
func (c *AppConfig) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle views are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if !c.History.Enabled {
		return nil
	}
	if err := os.MkdirAll(c.History.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.History.DataDirectory, err)
	}
	return nil
}
