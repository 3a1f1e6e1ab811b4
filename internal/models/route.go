package models

import "time"

// RouteKind distinguishes point-to-point paths from pick routes.
type RouteKind string

const (
	RouteKindPath RouteKind = "path"
	RouteKindPick RouteKind = "pick"
)

// Route is one applied path, as recorded in the route history.
type Route struct {
	ViewID      string    `json:"viewId"`
	WarehouseID string    `json:"warehouseId"`
	Kind        RouteKind `json:"kind"`
	Source      Coord     `json:"source"`
	Destination *Coord    `json:"destination,omitempty"`
	Length      int       `json:"length"`
	ItemCount   int       `json:"itemCount"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// RouteStats aggregates the route history of one warehouse.
type RouteStats struct {
	WarehouseID string  `json:"warehouseId"`
	Routes      int64   `json:"routes"`
	PickRoutes  int64   `json:"pickRoutes"`
	AvgLength   float64 `json:"avgLength"`
}
