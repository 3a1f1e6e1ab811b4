package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/warehouse"
)

func TestMapper_CellRectInvertsRows(t *testing.T) {
	m := NewMapper(50, 40)
	const rows = 4
	_, canvasHeight := m.CanvasSize(3, rows)
	require.Equal(t, 160, canvasHeight)

	tests := []struct {
		name string
		cell models.Coord
		want Rect
	}{
		{name: "origin is bottom left", cell: models.Coord{0, 0}, want: Rect{X: 0, Y: canvasHeight - 40, Width: 50, Height: 40}},
		{name: "top row is at y zero", cell: models.Coord{0, rows - 1}, want: Rect{X: 0, Y: 0, Width: 50, Height: 40}},
		{name: "columns move right", cell: models.Coord{2, 0}, want: Rect{X: 100, Y: 120, Width: 50, Height: 40}},
		{name: "middle", cell: models.Coord{1, 2}, want: Rect{X: 50, Y: 40, Width: 50, Height: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.CellRect(rows, tt.cell))
		})
	}
}

func TestMapper_Monotonic(t *testing.T) {
	m := NewMapper(50, 50)
	const rows = 6
	for row := 1; row < rows; row++ {
		lower := m.CellRect(rows, models.Coord{0, row - 1})
		upper := m.CellRect(rows, models.Coord{0, row})
		assert.Less(t, upper.Y, lower.Y, "row %d should be drawn above row %d", row, row-1)
	}
	for col := 1; col < 5; col++ {
		left := m.CellRect(rows, models.Coord{col - 1, 0})
		right := m.CellRect(rows, models.Coord{col, 0})
		assert.Greater(t, right.X, left.X)
	}
}

func TestMapper_Layout(t *testing.T) {
	g, err := warehouse.NewGrid(2, 3, warehouse.Shelving)
	require.NoError(t, err)
	require.NoError(t, g.Set(models.Coord{1, 2}, warehouse.PathSource))

	layout := NewMapper(10, 10).Layout(g)
	require.Len(t, layout, 2)
	require.Len(t, layout[1], 3)
	assert.Equal(t, warehouse.PathSource, layout[1][2].State)
	assert.Equal(t, Rect{X: 10, Y: 0, Width: 10, Height: 10}, layout[1][2].Rect)
	assert.Equal(t, Rect{X: 0, Y: 20, Width: 10, Height: 10}, layout[0][0].Rect)
}

func TestMapper_Connectors(t *testing.T) {
	m := NewMapper(50, 50)
	assert.Nil(t, m.Connectors(4, nil))
	assert.Nil(t, m.Connectors(4, []models.Coord{{0, 0}}))

	lines := m.Connectors(4, []models.Coord{{0, 0}, {1, 0}, {1, 1}})
	require.Len(t, lines, 2)
	assert.Equal(t, Line{From: Point{25, 175}, To: Point{75, 175}}, lines[0])
	assert.Equal(t, Line{From: Point{75, 175}, To: Point{75, 125}}, lines[1])
}
