package models

// Style controls how the SVG sink paints the grid. It is loaded from YAML
// and mirrors the shape of the CSS classes emitted per cell.
type Style struct {
	CellWidth      int               `json:"cellWidth" yaml:"cell_width"`
	CellHeight     int               `json:"cellHeight" yaml:"cell_height"`
	Stroke         string            `json:"stroke" yaml:"stroke"`
	ConnectorColor string            `json:"connectorColor" yaml:"connector_color"`
	Fills          map[string]string `json:"fills" yaml:"fills"` // css class -> fill colour
}

// DefaultStyle returns the built-in palette.
func DefaultStyle() *Style {
	return &Style{
		CellWidth:      50,
		CellHeight:     50,
		Stroke:         "#222",
		ConnectorColor: "#1565c0",
		Fills: map[string]string{
			"navigable-cell":            "#ffffff",
			"shelving-cell":             "#8d6e63",
			"source-cell":               "#43a047",
			"intermediate-cell":         "#90caf9",
			"destination-cell":          "#e53935",
			"path-item-to-pick-up-cell": "#fdd835",
		},
	}
}

// WithDefaults fills any zero-valued field from DefaultStyle.
func (s *Style) WithDefaults() *Style {
	def := DefaultStyle()
	if s == nil {
		return def
	}
	out := *s
	if out.CellWidth <= 0 {
		out.CellWidth = def.CellWidth
	}
	if out.CellHeight <= 0 {
		out.CellHeight = def.CellHeight
	}
	if out.Stroke == "" {
		out.Stroke = def.Stroke
	}
	if out.ConnectorColor == "" {
		out.ConnectorColor = def.ConnectorColor
	}
	fills := make(map[string]string, len(def.Fills))
	for k, v := range def.Fills {
		fills[k] = v
	}
	for k, v := range s.Fills {
		fills[k] = v
	}
	out.Fills = fills
	return &out
}
