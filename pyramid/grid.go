package pyramid

import (
	"fmt"
	"math"

	"github.com/muesli/reflow/truncate"

	"github.com/pdok/tilematrix/crs"
	"github.com/pdok/tilematrix/mapslicehelp"
)

const CustomType = "custom"

// GridSpec is anything a GridDefinition can be built from:
// a Preset name, a CustomGrid, or an existing GridDefinition.
type GridSpec interface {
	gridSpec()
}

// Preset names a registered grid, e.g. "geodetic", "mercator" or "utm-33N".
type Preset string

func (Preset) gridSpec() {}

// CustomGrid describes a grid by its zoom level 0 shape, its bounds and its CRS.
type CustomGrid struct {
	Shape    Shape
	Bounds   Bounds
	SRS      crs.SRS
	IsGlobal bool
}

func (CustomGrid) gridSpec() {}

// GridDefinition is the immutable zoom level 0 layout of a tile pyramid.
type GridDefinition struct {
	typ      string
	shape    Shape
	bounds   Bounds
	crs      crs.CRS
	isGlobal bool
}

func (GridDefinition) gridSpec() {}

func NewGridDefinition(spec GridSpec) (GridDefinition, error) {
	switch s := spec.(type) {
	case Preset:
		g, ok := Presets()[string(s)]
		if !ok {
			return GridDefinition{}, fmt.Errorf("%w: invalid grid definition: %s", ErrConfiguration, s)
		}
		return g, nil
	case CustomGrid:
		g, err := newCustomGrid(CustomType, s)
		if err != nil {
			return GridDefinition{}, err
		}
		presets := Presets()
		for _, name := range mapslicehelp.SortedKeys(presets) {
			if g.Equal(presets[name]) {
				g.typ = name
				break
			}
		}
		return g, nil
	case GridDefinition:
		if s.shape == (Shape{}) {
			return GridDefinition{}, fmt.Errorf("%w: empty grid definition", ErrConfiguration)
		}
		return s, nil
	case nil:
		return GridDefinition{}, fmt.Errorf("%w: grid definition required", ErrConfiguration)
	}
	return GridDefinition{}, fmt.Errorf("%w: invalid grid definition: %v", ErrConfiguration, spec)
}

func MustNewGridDefinition(spec GridSpec) GridDefinition {
	g, err := NewGridDefinition(spec)
	if err != nil {
		panic(err)
	}
	return g
}

func newCustomGrid(typ string, s CustomGrid) (GridDefinition, error) {
	if err := verifyShapeBounds(s.Shape, s.Bounds); err != nil {
		return GridDefinition{}, err
	}
	c, err := crs.Resolve(s.SRS)
	if err != nil {
		return GridDefinition{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return GridDefinition{
		typ:      typ,
		shape:    s.Shape,
		bounds:   s.Bounds,
		crs:      c,
		isGlobal: s.IsGlobal,
	}, nil
}

// verifyShapeBounds checks that the shape has the same aspect ratio as the bounds.
func verifyShapeBounds(shape Shape, bounds Bounds) error {
	if shape.Height <= 0 || shape.Width <= 0 {
		return fmt.Errorf("%w: shape must have two positive elements (height, width): %v", ErrConfiguration, shape)
	}
	if !(bounds.Left < bounds.Right && bounds.Bottom < bounds.Top) {
		return fmt.Errorf("%w: bounds must span a positive area: %v", ErrConfiguration, bounds)
	}
	width := bounds.Right - bounds.Left
	height := bounds.Top - bounds.Bottom
	shapeRatio := float64(shape.Width) / float64(shape.Height)
	boundsRatio := width / height
	if math.Abs(shapeRatio-boundsRatio) > Delta {
		minLength := math.Min(width/float64(shape.Width), height/float64(shape.Height))
		proposed := Bounds{
			Left:   bounds.Left,
			Bottom: bounds.Bottom,
			Right:  bounds.Left + float64(shape.Width)*minLength,
			Top:    bounds.Bottom + float64(shape.Height)*minLength,
		}
		return fmt.Errorf("%w: shape ratio (%v) must equal bounds ratio (%v); try %v",
			ErrConfiguration, shapeRatio, boundsRatio, proposed)
	}
	return nil
}

// Type is the preset name, or "custom".
func (g GridDefinition) Type() string {
	return g.typ
}

func (g GridDefinition) Shape() Shape {
	return g.shape
}

func (g GridDefinition) Bounds() Bounds {
	return g.bounds
}

func (g GridDefinition) CRS() crs.CRS {
	return g.crs
}

// IsGlobal reports whether the grid wraps around the antimeridian.
func (g GridDefinition) IsGlobal() bool {
	return g.isGlobal
}

// Equal compares shape, bounds, is_global and CRS. The type is not compared.
func (g GridDefinition) Equal(other GridDefinition) bool {
	return g.shape == other.shape &&
		g.bounds == other.bounds &&
		g.isGlobal == other.isGlobal &&
		g.crs == other.crs
}

func (g GridDefinition) String() string {
	if _, ok := Presets()[g.typ]; ok {
		return fmt.Sprintf("GridDefinition(%q)", g.typ)
	}
	return fmt.Sprintf("GridDefinition(%q, shape=(%d, %d), bounds=(%v, %v, %v, %v), is_global=%t, srs=%s)",
		g.typ, g.shape.Height, g.shape.Width,
		g.bounds.Left, g.bounds.Bottom, g.bounds.Right, g.bounds.Top,
		g.isGlobal, truncate.StringWithTail(g.crs.String(), 80, "..."))
}
