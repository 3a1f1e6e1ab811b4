// Package web provides the embedded view page and its static assets.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/view.html"))

// Page is everything the view page template renders.
type Page struct {
	WarehouseID  string
	SourceX      string
	SourceY      string
	DestinationX string
	DestinationY string
	Items        string

	ViewID string
	// SVG is trusted markup produced by the renderer.
	SVG template.HTML
	// Alert, when set, is shown as a blocking browser alert on load.
	Alert string
	// Notice is shown inline without blocking.
	Notice string
}

// RenderPage writes the view page.
func RenderPage(w io.Writer, p Page) error {
	return pageTemplate.Execute(w, p)
}

// GetFileSystem returns the embedded static assets with static/ as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// RegisterStaticRoutes serves the embedded assets under /static/.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	e.GET("/static/*", echo.WrapHandler(fileServer))
	return nil
}
