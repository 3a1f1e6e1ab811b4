// Package warehouse holds the display model of a warehouse floor: the
// navigation graph, the cell grid and the path classifier that marks routes
// onto it.
package warehouse

import "fmt"

// CellState is the semantic classification of one grid cell.
// A cell holds exactly one state; the last write wins.
type CellState uint8

const (
	Navigable CellState = iota + 1
	Shelving

	PathIntermediate
	PathSource
	PathDestination

	// PathItemToPickUp only appears in pick-path flows.
	PathItemToPickUp
)

var cellStateNames = map[CellState]string{
	Navigable:        "navigable",
	Shelving:         "shelving",
	PathIntermediate: "path-intermediate",
	PathSource:       "path-source",
	PathDestination:  "path-destination",
	PathItemToPickUp: "path-item-to-pick-up",
}

// Valid reports whether s is one of the known states.
func (s CellState) Valid() bool {
	_, ok := cellStateNames[s]
	return ok
}

// IsPath reports whether s marks a cell as part of a route.
func (s CellState) IsPath() bool {
	return s >= PathIntermediate && s <= PathItemToPickUp
}

func (s CellState) String() string {
	if name, ok := cellStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// MarshalText encodes s by name, so JSON output reads "path-source" rather
// than a bare number.
func (s CellState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *CellState) UnmarshalText(text []byte) error {
	for state, name := range cellStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown cell state %q", text)
}
