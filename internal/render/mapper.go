// Package render turns a warehouse grid into drawing geometry and writes it
// out as SVG.
package render

import (
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/warehouse"
)

// Rect is a cell's pixel rectangle. Y grows downward, as in SVG.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: float64(r.X) + float64(r.Width)/2, Y: float64(r.Y) + float64(r.Height)/2}
}

// Point is a pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a directed segment between two cell centres.
type Line struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Cell is the render data for one grid cell.
type Cell struct {
	Rect
	State warehouse.CellState `json:"state"`
}

// Mapper converts grid indices to pixels.
//
// The row axis is inverted: row 0 is drawn at the bottom of the canvas and
// higher rows move up, so north is up on the floor plan.
type Mapper struct {
	CellWidth  int
	CellHeight int
}

// NewMapper returns a Mapper for the given cell size in pixels.
func NewMapper(cellWidth, cellHeight int) Mapper {
	return Mapper{CellWidth: cellWidth, CellHeight: cellHeight}
}

// CanvasSize returns the pixel size of a grid with the given dimensions.
func (m Mapper) CanvasSize(cols, rows int) (width, height int) {
	return cols * m.CellWidth, rows * m.CellHeight
}

// CellRect returns the rectangle of c in a grid that has rows rows.
func (m Mapper) CellRect(rows int, c models.Coord) Rect {
	canvasHeight := rows * m.CellHeight
	return Rect{
		X:      c.Col() * m.CellWidth,
		Y:      canvasHeight - m.CellHeight - c.Row()*m.CellHeight,
		Width:  m.CellWidth,
		Height: m.CellHeight,
	}
}

// Layout returns render data for every cell, indexed [col][row] like the grid.
func (m Mapper) Layout(g *warehouse.Grid) [][]Cell {
	out := make([][]Cell, g.Width())
	for col := range out {
		out[col] = make([]Cell, g.Height())
	}
	g.Each(func(c models.Coord, s warehouse.CellState) {
		out[c.Col()][c.Row()] = Cell{Rect: m.CellRect(g.Height(), c), State: s}
	})
	return out
}

// Connectors returns one centre-to-centre segment per consecutive pair of
// path cells.
func (m Mapper) Connectors(rows int, path []models.Coord) []Line {
	if len(path) < 2 {
		return nil
	}
	lines := make([]Line, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		lines = append(lines, Line{
			From: m.CellRect(rows, path[i-1]).Center(),
			To:   m.CellRect(rows, path[i]).Center(),
		})
	}
	return lines
}
