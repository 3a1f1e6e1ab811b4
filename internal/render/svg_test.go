package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/warehouse"
)

func TestClassName(t *testing.T) {
	tests := []struct {
		state warehouse.CellState
		want  string
	}{
		{warehouse.Navigable, "navigable-cell"},
		{warehouse.Shelving, "shelving-cell"},
		{warehouse.PathSource, "source-cell"},
		{warehouse.PathIntermediate, "intermediate-cell"},
		{warehouse.PathDestination, "destination-cell"},
		{warehouse.PathItemToPickUp, "path-item-to-pick-up-cell"},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			got, err := ClassName(tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ClassName(warehouse.CellState(0))
	assert.True(t, errors.Is(err, ErrUnknownCellState))
}

func TestWriteSVG(t *testing.T) {
	g, err := warehouse.NewGrid(2, 2, warehouse.Shelving)
	require.NoError(t, err)
	g.ApplyPath([]models.Coord{{0, 0}, {1, 0}}, nil)

	var buf bytes.Buffer
	err = WriteSVG(&buf, Canvas{Grid: g, Mapper: NewMapper(50, 50)})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100"`))
	assert.Equal(t, 2, strings.Count(out, `<g class="col">`))
	assert.Equal(t, 4, strings.Count(out, "<rect "))
	assert.Contains(t, out, `<rect class="square source-cell" x="0" y="50" width="50" height="50" style="stroke: #222"/>`)
	assert.Contains(t, out, `<rect class="square destination-cell" x="50" y="50"`)
	assert.Contains(t, out, `<rect class="square shelving-cell" x="0" y="0"`)
	assert.Contains(t, out, ".shelving-cell { fill: #8d6e63; }")
	assert.NotContains(t, out, "<line")
}

func TestWriteSVG_PickConnectors(t *testing.T) {
	g, err := warehouse.NewGrid(3, 1, warehouse.Navigable)
	require.NoError(t, err)
	pick := &warehouse.PickSession{
		Path:  []models.Coord{{0, 0}, {1, 0}, {2, 0}},
		Items: []models.Coord{{1, 0}},
	}
	g.ApplyPath(pick.Path, pick.Items)

	style := &models.Style{Fills: map[string]string{"path-item-to-pick-up-cell": "orange"}}

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, Canvas{Grid: g, Mapper: NewMapper(20, 20), Style: style, Pick: pick}))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `<line class="connector"`))
	assert.Contains(t, out, `x1="10" y1="10" x2="30" y2="10"`)
	assert.Contains(t, out, ".path-item-to-pick-up-cell { fill: orange; }")
	assert.Contains(t, out, ".navigable-cell { fill: #ffffff; }")
}

func TestWriteSVG_UnknownStateIsFatal(t *testing.T) {
	g, err := warehouse.NewGrid(2, 2, warehouse.Navigable)
	require.NoError(t, err)
	require.NoError(t, g.Set(models.Coord{1, 1}, warehouse.CellState(99)))

	var buf bytes.Buffer
	err = WriteSVG(&buf, Canvas{Grid: g, Mapper: NewMapper(50, 50)})
	assert.True(t, errors.Is(err, ErrUnknownCellState))
	assert.Zero(t, buf.Len())
}
