package warehouse

import "github.com/warehouse-visualizer/backend/internal/models"

// PickSession is the last computed pick route and the cells to collect on it.
// A view replaces it wholesale on every pick-path request.
type PickSession struct {
	Path  []models.Coord `json:"path"`
	Items []models.Coord `json:"items"`
}

// Classify returns the state each path index should take.
//
// Index 0 is PathSource, the last index PathDestination, an intermediate
// index whose cell is in items PathItemToPickUp, anything else
// PathIntermediate. The first-index rule is checked before the last-index
// rule, so a single-cell path is a PathSource.
func Classify(path []models.Coord, items []models.Coord) []CellState {
	if len(path) == 0 {
		return nil
	}
	wanted := make(map[models.Coord]struct{}, len(items))
	for _, it := range items {
		wanted[it] = struct{}{}
	}

	states := make([]CellState, len(path))
	last := len(path) - 1
	for i, cell := range path {
		switch {
		case i == 0:
			states[i] = PathSource
		case i == last:
			states[i] = PathDestination
		default:
			if _, ok := wanted[cell]; ok {
				states[i] = PathItemToPickUp
			} else {
				states[i] = PathIntermediate
			}
		}
	}
	return states
}

// ApplyPath classifies path and writes the result into the grid in path
// order. Earlier markings are not cleared. Cells outside the grid are
// skipped; the number skipped is returned.
func (g *Grid) ApplyPath(path []models.Coord, items []models.Coord) int {
	skipped := 0
	for i, s := range Classify(path, items) {
		if err := g.Set(path[i], s); err != nil {
			skipped++
		}
	}
	return skipped
}
