package pyramid

import (
	"github.com/paulmach/orb"
)

// SnapBounds extends the bounds to the edges of the tiles they touch, plus pixelbuffer pixels.
func SnapBounds(bounds Bounds, tp *TilePyramid, zoom int, pixelbuffer uint) (Bounds, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return Bounds{}, err
	}
	lb, err := tp.tileFromXY(bounds.Left, bounds.Bottom, zoom, RightTop)
	if err != nil {
		return Bounds{}, err
	}
	rt, err := tp.tileFromXY(bounds.Right, bounds.Top, zoom, LeftBottom)
	if err != nil {
		return Bounds{}, err
	}
	lbBounds := lb.Bounds(pixelbuffer)
	rtBounds := rt.Bounds(pixelbuffer)
	return Bounds{
		Left:   lbBounds.Left,
		Bottom: lbBounds.Bottom,
		Right:  rtBounds.Right,
		Top:    rtBounds.Top,
	}, nil
}

// SnapBBox returns the snapped bounds as a polygon.
func SnapBBox(bounds Bounds, tp *TilePyramid, zoom int, pixelbuffer uint) (orb.Polygon, error) {
	snapped, err := SnapBounds(bounds, tp, zoom, pixelbuffer)
	if err != nil {
		return nil, err
	}
	return snapped.Polygon(), nil
}
