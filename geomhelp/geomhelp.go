// Package geomhelp holds the planar geometry operations the tile queries need on top of paulmach/orb.
package geomhelp

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/project"
)

// IsEmpty reports whether the geometry has no coordinates at all.
func IsEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point, orb.Bound:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		for _, p := range g {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, member := range g {
			if !IsEmpty(member) {
				return false
			}
		}
		return true
	}
	panic(fmt.Sprintf("geometry type not supported: %T", g))
}

// CloseRings returns a copy of the geometry in which every ring ends on its first point.
func CloseRings(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Ring:
		return closeRing(g)
	case orb.Polygon:
		return closePolygon(g)
	case orb.MultiPolygon:
		mp := make(orb.MultiPolygon, len(g))
		for i := range g {
			mp[i] = closePolygon(g[i])
		}
		return mp
	case orb.Collection:
		c := make(orb.Collection, len(g))
		for i := range g {
			c[i] = CloseRings(g[i])
		}
		return c
	}
	return orb.Clone(g)
}

func closePolygon(p orb.Polygon) orb.Polygon {
	closed := make(orb.Polygon, len(p))
	for i := range p {
		closed[i] = closeRing(p[i])
	}
	return closed
}

func closeRing(r orb.Ring) orb.Ring {
	closed := make(orb.Ring, len(r), len(r)+1)
	copy(closed, r)
	if len(closed) > 0 && closed[0] != closed[len(closed)-1] {
		closed = append(closed, closed[0])
	}
	return closed
}

// Translate returns a copy of the geometry shifted by dx horizontally.
func Translate(g orb.Geometry, dx float64) orb.Geometry {
	return project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		return orb.Point{p[0] + dx, p[1]}
	})
}

// Clip returns the part of the geometry inside the bound, or nil when there is none.
// The input is left untouched.
func Clip(g orb.Geometry, b orb.Bound) orb.Geometry {
	clipped := clip.Geometry(b, orb.Clone(g))
	if clipped == nil || IsEmpty(clipped) {
		return nil
	}
	return clipped
}

// BoundPolygon returns the bound as a closed polygon, in counter clockwise order starting at the lower right.
func BoundPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{{
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
	}}
}

// WktMustEncode encodes the polygon as WKT, truncated to maxLen when maxLen is not zero.
func WktMustEncode(p orb.Polygon, maxLen uint) string {
	gp := make(geom.Polygon, len(p))
	for i, r := range p {
		gp[i] = make([][2]float64, len(r))
		for j, pt := range r {
			gp[i][j] = pt
		}
	}
	return wktMustEncodeTruncated(gp, maxLen)
}

func wktMustEncodeTruncated(g geom.Geometry, width uint) string {
	if width == 0 {
		return wkt.MustEncode(g)
	}
	return truncate.StringWithTail(wkt.MustEncode(g), width, "...")
}
