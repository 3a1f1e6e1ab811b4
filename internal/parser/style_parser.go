package parser

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/warehouse-visualizer/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ParseStyle parses a YAML style sheet for the grid renderer.
// Fields left out of the file keep their default values.
func ParseStyle(filePath string) (*models.Style, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseStyleFromReader(file)
}

// ParseStyleFromReader parses a style sheet from an io.Reader.
func ParseStyleFromReader(r io.Reader) (*models.Style, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var style models.Style
	if err := yaml.Unmarshal(data, &style); err != nil {
		return nil, err
	}

	if style.CellWidth < 0 || style.CellHeight < 0 {
		return nil, fmt.Errorf("cell size must not be negative: %dx%d", style.CellWidth, style.CellHeight)
	}

	if err := checkStyleTokens(&style); err != nil {
		return nil, err
	}

	return style.WithDefaults(), nil
}

var validate = validator.New()

const (
	// colorRule accepts hex, rgb(a), hsl(a) and named colours.
	colorRule = "hexcolor|rgb|rgba|hsl|hsla|alpha"
	classRule = "required,printascii,excludesall=<>{};"
)

// checkStyleTokens rejects values that would not survive being written into
// the SVG <style> block verbatim. Empty values are left for the defaults.
func checkStyleTokens(style *models.Style) error {
	for field, value := range map[string]string{
		"stroke":          style.Stroke,
		"connector_color": style.ConnectorColor,
	} {
		if value != "" && validate.Var(value, colorRule) != nil {
			return fmt.Errorf("%s: %q is not a colour", field, value)
		}
	}

	names := make([]string, 0, len(style.Fills))
	for name := range style.Fills {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if validate.Var(name, classRule) != nil {
			return fmt.Errorf("fills: %q is not a class name", name)
		}
		if validate.Var(style.Fills[name], colorRule) != nil {
			return fmt.Errorf("fills.%s: %q is not a colour", name, style.Fills[name])
		}
	}
	return nil
}
