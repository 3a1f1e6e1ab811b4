package models

import (
	"encoding/json"
	"fmt"
)

// Coord addresses a grid cell as (column, row). It travels over the wire as a
// two-element JSON array, matching the upstream node ids.
type Coord [2]int

// Col returns the column index.
func (c Coord) Col() int { return c[0] }

// Row returns the row index.
func (c Coord) Row() int { return c[1] }

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c[0], c[1])
}

// NonNegative reports whether both indices are >= 0.
func (c Coord) NonNegative() bool { return c[0] >= 0 && c[1] >= 0 }

// UnmarshalJSON accepts exactly two integers. The default array decoding
// would silently pad or truncate.
func (c *Coord) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("coordinate must have 2 elements, got %d", len(raw))
	}
	c[0], c[1] = raw[0], raw[1]
	return nil
}

// WarehouseData is the body returned by the warehouse endpoint.
type WarehouseData struct {
	Dimensions [2]int       `json:"dimensions"` // width, height
	Graph      NodeLinkData `json:"graph"`
}

// Width returns the number of columns.
func (w WarehouseData) Width() int { return w.Dimensions[0] }

// Height returns the number of rows.
func (w WarehouseData) Height() int { return w.Dimensions[1] }

// NodeLinkData is a node/edge description in networkx node-link form.
type NodeLinkData struct {
	Directed   bool         `json:"directed"`
	Multigraph bool         `json:"multigraph"`
	Nodes      []NodeRecord `json:"nodes"`
	Links      []LinkRecord `json:"links"`
}

// NodeRecord is a single navigable location.
type NodeRecord struct {
	ID Coord `json:"id"`
}

// LinkRecord connects two navigable locations.
type LinkRecord struct {
	Source Coord    `json:"source"`
	Target Coord    `json:"target"`
	Weight *float64 `json:"weight,omitempty"`
}
