package testutil

import "github.com/warehouse-visualizer/backend/internal/models"

// SimpleWarehouse is a 4x4 floor with a 2x2 shelving block in the middle:
//
//	row 3  + + + +
//	row 2  + x x +
//	row 1  + x x +
//	row 0  + + + +
func SimpleWarehouse() models.WarehouseData {
	shelving := map[models.Coord]bool{
		{1, 1}: true, {1, 2}: true,
		{2, 1}: true, {2, 2}: true,
	}
	return gridWarehouse(4, 4, func(c models.Coord) bool { return !shelving[c] })
}

// LineWarehouse is a width x height floor where only row 0 is navigable.
func LineWarehouse(width, height int) models.WarehouseData {
	return gridWarehouse(width, height, func(c models.Coord) bool { return c.Row() == 0 })
}

// gridWarehouse links every navigable cell to its navigable right and upper
// neighbours, which yields the full 4-neighbourhood once undirected.
func gridWarehouse(width, height int, navigable func(models.Coord) bool) models.WarehouseData {
	data := models.WarehouseData{Dimensions: [2]int{width, height}}
	for col := 0; col < width; col++ {
		for row := 0; row < height; row++ {
			c := models.Coord{col, row}
			if !navigable(c) {
				continue
			}
			data.Graph.Nodes = append(data.Graph.Nodes, models.NodeRecord{ID: c})
			for _, n := range []models.Coord{{col + 1, row}, {col, row + 1}} {
				if n.Col() < width && n.Row() < height && navigable(n) {
					data.Graph.Links = append(data.Graph.Links, models.LinkRecord{Source: c, Target: n})
				}
			}
		}
	}
	return data
}
