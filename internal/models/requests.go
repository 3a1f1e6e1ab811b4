package models

// PathRequest is the point-to-point path request body.
type PathRequest struct {
	Source      Coord `json:"source"`
	Destination Coord `json:"destination"`
}

// PickPathRequest asks for a route that visits every item.
type PickPathRequest struct {
	Source      Coord   `json:"source"`
	Destination *Coord  `json:"destination,omitempty"`
	Items       []Coord `json:"items"`
}

// PickPathResponse is the computed route plus the cells to collect.
type PickPathResponse struct {
	Path  []Coord `json:"path"`
	Items []Coord `json:"items"`
}

// GridSnapshot is a serializable dump of a view's grid.
// Cells are column-major: Cells[col][row].
type GridSnapshot struct {
	ViewID      string     `json:"viewId" msgpack:"viewId"`
	WarehouseID string     `json:"warehouseId" msgpack:"warehouseId"`
	Width       int        `json:"width" msgpack:"width"`
	Height      int        `json:"height" msgpack:"height"`
	Loaded      bool       `json:"loaded" msgpack:"loaded"`
	Cells       [][]string `json:"cells" msgpack:"cells"`
	Path        []Coord    `json:"path,omitempty" msgpack:"path,omitempty"`
	Items       []Coord    `json:"items,omitempty" msgpack:"items,omitempty"`
}
