package warehouse

import (
	"errors"
	"fmt"

	"github.com/warehouse-visualizer/backend/internal/models"
)

var (
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
	ErrOutOfBounds       = errors.New("coordinate outside grid")
)

// Grid is a fixed-size, column-major array of cell states.
//
// Cells are addressed as cells[col][row]. All reads and writes go through
// At and Set so the indexing convention lives in one place.
type Grid struct {
	width  int
	height int
	cells  [][]CellState
}

// NewGrid allocates a width x height grid with every cell set to fill.
func NewGrid(width, height int, fill CellState) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	g := &Grid{width: width, height: height}
	g.cells = make([][]CellState, width)
	for col := range g.cells {
		g.cells[col] = make([]CellState, height)
	}
	g.Reset(fill)
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether c addresses a cell of the grid.
func (g *Grid) InBounds(c models.Coord) bool {
	return c.Col() >= 0 && c.Col() < g.width && c.Row() >= 0 && c.Row() < g.height
}

// At returns the state of the cell at c.
func (g *Grid) At(c models.Coord) (CellState, bool) {
	if !g.InBounds(c) {
		return 0, false
	}
	return g.cells[c.Col()][c.Row()], true
}

// Set overwrites the state of the cell at c.
func (g *Grid) Set(c models.Coord, s CellState) error {
	if !g.InBounds(c) {
		return fmt.Errorf("%w: %s in %dx%d", ErrOutOfBounds, c, g.width, g.height)
	}
	g.cells[c.Col()][c.Row()] = s
	return nil
}

// Reset sets every cell to fill.
func (g *Grid) Reset(fill CellState) {
	for col := range g.cells {
		for row := range g.cells[col] {
			g.cells[col][row] = fill
		}
	}
}

// Seed marks every node of graph as Navigable. Nodes that fall outside the
// grid are skipped; the number skipped is returned.
func (g *Grid) Seed(graph *Graph) int {
	skipped := 0
	for _, node := range graph.Nodes {
		if err := g.Set(node, Navigable); err != nil {
			skipped++
		}
	}
	return skipped
}

// Each visits every cell column by column, bottom row first.
func (g *Grid) Each(fn func(c models.Coord, s CellState)) {
	for col := 0; col < g.width; col++ {
		for row := 0; row < g.height; row++ {
			fn(models.Coord{col, row}, g.cells[col][row])
		}
	}
}

// Count returns how many cells currently hold s.
func (g *Grid) Count(s CellState) int {
	n := 0
	g.Each(func(_ models.Coord, state CellState) {
		if state == s {
			n++
		}
	})
	return n
}
