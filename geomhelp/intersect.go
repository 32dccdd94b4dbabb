package geomhelp

import (
	"github.com/paulmach/orb"
	sfgeom "github.com/peterstace/simplefeatures/geom"
)

// IntersectsBound reports whether the shape and the bound share at least one point.
// Touching counts as intersecting.
func (s Shape) IntersectsBound(b orb.Bound) bool {
	box, err := boundGeometry(b)
	if err != nil {
		return false
	}
	return sfgeom.Intersects(s.g, box)
}

// IntersectionArea returns the area the shape shares with the bound.
// Points and lines have no area.
func (s Shape) IntersectionArea(b orb.Bound) (float64, error) {
	if s.dim < 2 || b.Min[0] == b.Max[0] || b.Min[1] == b.Max[1] {
		return 0, nil
	}
	box, err := boundGeometry(b)
	if err != nil {
		return 0, err
	}
	if !sfgeom.Intersects(s.g, box) {
		return 0, nil
	}
	shared, err := sfgeom.Intersection(s.g, box)
	if err != nil {
		return 0, err
	}
	return shared.Area(), nil
}

// boundGeometry degrades to a line or a point for bounds without width or height.
func boundGeometry(b orb.Bound) (sfgeom.Geometry, error) {
	var g orb.Geometry
	switch {
	case b.Min == b.Max:
		g = b.Min
	case b.Min[0] == b.Max[0] || b.Min[1] == b.Max[1]:
		g = orb.LineString{b.Min, b.Max}
	default:
		g = BoundPolygon(b)
	}
	return toSimpleFeatures(g)
}
