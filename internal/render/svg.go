package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/warehouse"
)

// ErrUnknownCellState is returned when a cell holds a state the renderer has
// no class for. It is never recovered: it means the enum and the renderer
// have drifted apart.
var ErrUnknownCellState = errors.New("unknown cell state")

// ClassName returns the CSS class used for a cell state.
func ClassName(s warehouse.CellState) (string, error) {
	switch s {
	case warehouse.Navigable:
		return "navigable-cell", nil
	case warehouse.Shelving:
		return "shelving-cell", nil
	case warehouse.PathSource:
		return "source-cell", nil
	case warehouse.PathIntermediate:
		return "intermediate-cell", nil
	case warehouse.PathDestination:
		return "destination-cell", nil
	case warehouse.PathItemToPickUp:
		return "path-item-to-pick-up-cell", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownCellState, uint8(s))
	}
}

// Canvas bundles what the SVG writer needs for one frame.
type Canvas struct {
	Grid   *warehouse.Grid
	Mapper Mapper
	Style  *models.Style
	// Pick, when set, adds directional connectors along the pick route.
	Pick *warehouse.PickSession
}

// WriteSVG writes the canvas as a standalone SVG document.
// Nothing is flushed to w if a cell fails to classify.
func WriteSVG(w io.Writer, cv Canvas) error {
	style := cv.Style.WithDefaults()
	g := cv.Grid
	width, height := cv.Mapper.CanvasSize(g.Width(), g.Height())

	classes := make([][]string, g.Width())
	for col := range classes {
		classes[col] = make([]string, g.Height())
	}
	var classErr error
	g.Each(func(c models.Coord, s warehouse.CellState) {
		if classErr != nil {
			return
		}
		name, err := ClassName(s)
		if err != nil {
			classErr = fmt.Errorf("cell %s: %w", c, err)
			return
		}
		classes[c.Col()][c.Row()] = name
	})
	if classErr != nil {
		return classErr
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	writeStyle(bw, style)

	for col := 0; col < g.Width(); col++ {
		bw.WriteString(`<g class="col">` + "\n")
		for row := 0; row < g.Height(); row++ {
			r := cv.Mapper.CellRect(g.Height(), models.Coord{col, row})
			fmt.Fprintf(bw, `<rect class="square %s" x="%d" y="%d" width="%d" height="%d" style="stroke: %s"/>`+"\n",
				classes[col][row], r.X, r.Y, r.Width, r.Height, style.Stroke)
		}
		bw.WriteString("</g>\n")
	}

	if cv.Pick != nil {
		lines := cv.Mapper.Connectors(g.Height(), cv.Pick.Path)
		if len(lines) > 0 {
			bw.WriteString(`<g class="connectors">` + "\n")
			for _, l := range lines {
				fmt.Fprintf(bw, `<line class="connector" x1="%g" y1="%g" x2="%g" y2="%g" marker-end="url(#arrow)"/>`+"\n",
					l.From.X, l.From.Y, l.To.X, l.To.Y)
			}
			bw.WriteString("</g>\n")
		}
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func writeStyle(bw *bufio.Writer, style *models.Style) {
	bw.WriteString("<defs>\n")
	fmt.Fprintf(bw, `<marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n",
		style.ConnectorColor)
	bw.WriteString("</defs>\n<style>\n")

	names := make([]string, 0, len(style.Fills))
	for name := range style.Fills {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(bw, ".%s { fill: %s; }\n", name, style.Fills[name])
	}
	fmt.Fprintf(bw, ".connector { stroke: %s; stroke-width: 3; }\n", style.ConnectorColor)
	bw.WriteString("</style>\n")
}
