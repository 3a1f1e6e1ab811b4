package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warehouse-visualizer/backend/internal/models"
)

// ErrInvalidParams wraps every problem found while reading Params.
var ErrInvalidParams = errors.New("invalid view parameters")

var validate = validator.New()

// Params is what a view needs to bootstrap: which warehouse to show and
// which route to request once it is loaded.
type Params struct {
	WarehouseID string        `json:"warehouseId" validate:"required,max=128"`
	Source      models.Coord  `json:"source"`
	Destination *models.Coord `json:"destination,omitempty" validate:"required_without=Items"`
	// Items selects the pick-path flow when non-nil.
	Items []models.Coord `json:"items,omitempty"`
}

// PickFlow reports whether bootstrapping requests a pick path.
func (p Params) PickFlow() bool {
	return p.Items != nil
}

// Validate checks p against its struct tags.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidParams, formatValidationError(err))
	}
	if !p.Source.NonNegative() {
		return fmt.Errorf("%w: source %s has a negative coordinate", ErrInvalidParams, p.Source)
	}
	if p.Destination != nil && !p.Destination.NonNegative() {
		return fmt.Errorf("%w: destination %s has a negative coordinate", ErrInvalidParams, *p.Destination)
	}
	for _, item := range p.Items {
		if !item.NonNegative() {
			return fmt.Errorf("%w: item %s has a negative coordinate", ErrInvalidParams, item)
		}
	}
	return nil
}

// ParseParams reads Params from page query values:
// warehouseId, sourceX, sourceY, destinationX, destinationY and
// itemsToPickUp (a JSON list of [col,row] pairs).
//
// The destination is optional for pick flows; when only one of its two
// coordinates is given that is an error.
func ParseParams(q url.Values) (Params, error) {
	p := Params{WarehouseID: strings.TrimSpace(q.Get("warehouseId"))}

	var err error
	if p.Source, err = coordParam(q, "sourceX", "sourceY"); err != nil {
		return Params{}, err
	}

	hasDestination := q.Get("destinationX") != "" || q.Get("destinationY") != ""
	if hasDestination {
		dst, err := coordParam(q, "destinationX", "destinationY")
		if err != nil {
			return Params{}, err
		}
		p.Destination = &dst
	}

	if raw := strings.TrimSpace(q.Get("itemsToPickUp")); raw != "" && raw != "null" {
		var items []models.Coord
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return Params{}, fmt.Errorf("%w: itemsToPickUp: %v", ErrInvalidParams, err)
		}
		if items == nil {
			items = []models.Coord{}
		}
		p.Items = items
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Query encodes p back into page query values.
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("warehouseId", p.WarehouseID)
	q.Set("sourceX", strconv.Itoa(p.Source.Col()))
	q.Set("sourceY", strconv.Itoa(p.Source.Row()))
	if p.Destination != nil {
		q.Set("destinationX", strconv.Itoa(p.Destination.Col()))
		q.Set("destinationY", strconv.Itoa(p.Destination.Row()))
	}
	if p.Items != nil {
		raw, _ := json.Marshal(p.Items)
		q.Set("itemsToPickUp", string(raw))
	}
	return q
}

func coordParam(q url.Values, xKey, yKey string) (models.Coord, error) {
	x, err := intParam(q, xKey)
	if err != nil {
		return models.Coord{}, err
	}
	y, err := intParam(q, yKey)
	if err != nil {
		return models.Coord{}, err
	}
	return models.Coord{x, y}, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParams, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidParams, key, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidParams, key)
	}
	return v, nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field()[:1]) + e.Field()[1:]
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "required_without":
			msgs = append(msgs, field+" is required when no items are given")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
