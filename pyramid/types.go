package pyramid

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/paulmach/orb"

	"github.com/pdok/tilematrix/geomhelp"
)

const (
	// Round is the number of decimal places every size computation is rounded to.
	Round = 20
	// Delta is the tolerance between the shape ratio and the bounds ratio of a grid.
	Delta = 1e-6
)

// Bounds is an axis aligned box in grid CRS units.
type Bounds struct {
	Left   float64
	Bottom float64
	Right  float64
	Top    float64
}

// BoundsFromSlice takes left, bottom, right, top.
func BoundsFromSlice(v []float64) (Bounds, error) {
	if len(v) != 4 {
		return Bounds{}, fmt.Errorf("%w: bounds must have four elements (left, bottom, right, top): %v", ErrOutOfRange, v)
	}
	return Bounds{Left: v[0], Bottom: v[1], Right: v[2], Top: v[3]}, nil
}

func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{Left: b.Min[0], Bottom: b.Min[1], Right: b.Max[0], Top: b.Max[1]}
}

func (b Bounds) Valid() bool {
	return b.Left <= b.Right && b.Bottom <= b.Top
}

func (b Bounds) Slice() []float64 {
	return []float64{b.Left, b.Bottom, b.Right, b.Top}
}

func (b Bounds) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.Left, b.Bottom}, Max: orb.Point{b.Right, b.Top}}
}

// Polygon returns the box starting at the lower right corner, counter clockwise.
func (b Bounds) Polygon() orb.Polygon {
	return geomhelp.BoundPolygon(b.Bound())
}

func (b Bounds) Extent() geom.Extent {
	return geom.Extent{b.Left, b.Bottom, b.Right, b.Top}
}

func (b Bounds) String() string {
	return fmt.Sprintf("Bounds(left=%v, bottom=%v, right=%v, top=%v)", b.Left, b.Bottom, b.Right, b.Top)
}

// Shape is a number of rows (height) and columns (width), of tiles or pixels.
type Shape struct {
	Height int
	Width  int
}

// ShapeFromSlice takes height, width.
func ShapeFromSlice(v []int) (Shape, error) {
	if len(v) != 2 || v[0] <= 0 || v[1] <= 0 {
		return Shape{}, fmt.Errorf("%w: shape must have two positive elements (height, width): %v", ErrOutOfRange, v)
	}
	return Shape{Height: v[0], Width: v[1]}, nil
}

func (s Shape) Slice() []int {
	return []int{s.Height, s.Width}
}

func (s Shape) String() string {
	return fmt.Sprintf("Shape(height=%d, width=%d)", s.Height, s.Width)
}

type TileIndex struct {
	Zoom int
	Row  int
	Col  int
}

func (i TileIndex) String() string {
	return fmt.Sprintf("%d %d %d", i.Zoom, i.Row, i.Col)
}

// Affine maps pixel (col, row) to grid coordinates:
// x = A*col + B*row + C, y = D*col + E*row + F.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

func (a Affine) Apply(col, row float64) (x, y float64) {
	x = a.A*col + a.B*row + a.C
	y = a.D*col + a.E*row + a.F
	return x, y
}

// EdgeUse picks the tile when a point lies exactly on a grid edge.
type EdgeUse string

const (
	RightBottom EdgeUse = "rb"
	LeftBottom  EdgeUse = "lb"
	RightTop    EdgeUse = "rt"
	LeftTop     EdgeUse = "lt"
)

func (e EdgeUse) valid() bool {
	switch e {
	case RightBottom, LeftBottom, RightTop, LeftTop:
		return true
	}
	return false
}

func (e EdgeUse) left() bool {
	return e == LeftBottom || e == LeftTop
}

func (e EdgeUse) top() bool {
	return e == RightTop || e == LeftTop
}

// BatchBy groups query results per matrix row or column.
type BatchBy string

const (
	BatchNone     BatchBy = ""
	BatchByRow    BatchBy = "row"
	BatchByColumn BatchBy = "column"
)

func ParseBatchBy(s string) (BatchBy, error) {
	switch b := BatchBy(s); b {
	case BatchNone, BatchByRow, BatchByColumn:
		return b, nil
	}
	return BatchNone, fmt.Errorf("%w: 'batch_by' must either be empty, 'row' or 'column', got %q", ErrOutOfRange, s)
}
