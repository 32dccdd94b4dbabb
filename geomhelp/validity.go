package geomhelp

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	sfgeom "github.com/peterstace/simplefeatures/geom"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

// Shape is a geometry that passed validation, ready for repeated tests against bounds.
type Shape struct {
	g   sfgeom.Geometry
	dim int
}

// NewShape validates the geometry against the simple features rules and prepares it
// for intersection tests. Rings do not need to be explicitly closed.
func NewShape(g orb.Geometry) (Shape, error) {
	if g == nil {
		return Shape{}, fmt.Errorf("nil geometry: %w", ErrInvalidGeometry)
	}
	if err := checkFinite(g); err != nil {
		return Shape{}, err
	}
	sg, err := toSimpleFeatures(CloseRings(g))
	if err != nil {
		return Shape{}, fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
	}
	return Shape{g: sg, dim: g.Dimensions()}, nil
}

// Validate returns an ErrInvalidGeometry when the geometry is not valid.
// Overlapping polygons of a multipolygon, crossing or nested holes and self
// intersecting rings are all invalid.
func Validate(g orb.Geometry) error {
	_, err := NewShape(g)
	return err
}

func toSimpleFeatures(g orb.Geometry) (sfgeom.Geometry, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return sfgeom.Geometry{}, err
	}
	return sfgeom.UnmarshalWKB(data)
}

func checkFinite(g orb.Geometry) error {
	var check func(pts []orb.Point) error
	check = func(pts []orb.Point) error {
		for _, p := range pts {
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
				return fmt.Errorf("non finite coordinate %v: %w", p, ErrInvalidGeometry)
			}
		}
		return nil
	}
	switch g := g.(type) {
	case orb.Point:
		return check([]orb.Point{g})
	case orb.MultiPoint:
		return check(g)
	case orb.LineString:
		return check(g)
	case orb.Ring:
		return check(g)
	case orb.Bound:
		return check([]orb.Point{g.Min, g.Max})
	case orb.MultiLineString:
		for _, ls := range g {
			if err := check(ls); err != nil {
				return err
			}
		}
	case orb.Polygon:
		for _, r := range g {
			if err := check(r); err != nil {
				return err
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if err := checkFinite(p); err != nil {
				return err
			}
		}
	case orb.Collection:
		for _, member := range g {
			if err := checkFinite(member); err != nil {
				return err
			}
		}
	}
	return nil
}
