package pyramid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/tilematrix/crs"
	"github.com/pdok/tilematrix/mapslicehelp"
	"github.com/pdok/tilematrix/mathhelp"
)

// Tile is a (meta)tile of a TilePyramid. Its base bounds are clipped to the pyramid bounds.
type Tile struct {
	tp     *TilePyramid
	index  TileIndex
	pixelX float64
	pixelY float64
	left   float64
	bottom float64
	right  float64
	top    float64
	shape  Shape
}

// newTile expects a valid index.
func newTile(tp *TilePyramid, index TileIndex) Tile {
	t := Tile{
		tp:     tp,
		index:  index,
		pixelX: tp.pixelXSize(index.Zoom),
		pixelY: tp.pixelYSize(index.Zoom),
	}
	b := tp.grid.bounds
	baseHeight := tp.metatileSpan(t.pixelY)
	baseWidth := tp.metatileSpan(t.pixelX)
	t.top = mathhelp.Round(b.Top-float64(index.Row)*baseHeight, Round)
	t.bottom = math.Max(t.top-baseHeight, b.Bottom)
	t.left = mathhelp.Round(b.Left+float64(index.Col)*baseWidth, Round)
	t.right = math.Min(t.left+baseWidth, b.Right)
	t.shape = Shape{
		Height: int(math.RoundToEven((t.top - t.bottom) / t.pixelY)),
		Width:  int(math.RoundToEven((t.right - t.left) / t.pixelX)),
	}
	return t
}

func (t Tile) Pyramid() *TilePyramid {
	return t.tp
}

func (t Tile) Index() TileIndex {
	return t.index
}

func (t Tile) Zoom() int {
	return t.index.Zoom
}

func (t Tile) Row() int {
	return t.index.Row
}

func (t Tile) Col() int {
	return t.index.Col
}

func (t Tile) CRS() crs.CRS {
	return t.tp.grid.crs
}

func (t Tile) PixelXSize() float64 {
	return t.pixelX
}

func (t Tile) PixelYSize() float64 {
	return t.pixelY
}

// Bounds returns the tile bounds grown by pixelbuffer pixels on every side.
// On global grids the result is clipped at the top and bottom of the pyramid;
// overflow across the antimeridian is kept.
func (t Tile) Bounds(pixelbuffer uint) Bounds {
	b := Bounds{Left: t.left, Bottom: t.bottom, Right: t.right, Top: t.top}
	if pixelbuffer > 0 {
		xOffset := t.pixelX * float64(pixelbuffer)
		yOffset := t.pixelY * float64(pixelbuffer)
		b.Left -= xOffset
		b.Bottom -= yOffset
		b.Right += xOffset
		b.Top += yOffset
	}
	if t.tp.grid.isGlobal {
		b.Top = math.Min(b.Top, t.tp.grid.bounds.Top)
		b.Bottom = math.Max(b.Bottom, t.tp.grid.bounds.Bottom)
	}
	return b
}

func (t Tile) BBox(pixelbuffer uint) orb.Polygon {
	return t.Bounds(pixelbuffer).Polygon()
}

func (t Tile) Affine(pixelbuffer uint) Affine {
	b := t.Bounds(pixelbuffer)
	return Affine{A: t.pixelX, B: 0, C: b.Left, D: 0, E: -t.pixelY, F: b.Top}
}

// Shape returns the tile size in pixels including the pixelbuffer. On global grids no
// buffer is added beyond the top or bottom of the pyramid.
func (t Tile) Shape(pixelbuffer uint) Shape {
	pb := int(pixelbuffer)
	s := Shape{Height: t.shape.Height + 2*pb, Width: t.shape.Width + 2*pb}
	if pb > 0 && t.tp.grid.isGlobal {
		matrixHeight := t.tp.matrixHeight(t.index.Zoom)
		switch {
		case matrixHeight == 1:
			s.Height = t.shape.Height
		case t.index.Row == 0 || t.index.Row == matrixHeight-1:
			s.Height = t.shape.Height + pb
		}
	}
	return s
}

func (t Tile) Left() float64 {
	return t.Bounds(0).Left
}

func (t Tile) Bottom() float64 {
	return t.Bounds(0).Bottom
}

func (t Tile) Right() float64 {
	return t.Bounds(0).Right
}

func (t Tile) Top() float64 {
	return t.Bounds(0).Top
}

// Width in pixels.
func (t Tile) Width() int {
	return t.Shape(0).Width
}

// Height in pixels.
func (t Tile) Height() int {
	return t.Shape(0).Height
}

// XSize is the tile width in CRS units.
func (t Tile) XSize() float64 {
	b := t.Bounds(0)
	return b.Right - b.Left
}

// YSize is the tile height in CRS units.
func (t Tile) YSize() float64 {
	b := t.Bounds(0)
	return b.Top - b.Bottom
}

// IsValid reports whether the tile index exists in its pyramid.
func (t Tile) IsValid() error {
	if t.tp == nil {
		return fmt.Errorf("%w: tile without pyramid", ErrOutOfRange)
	}
	_, err := t.tp.Tile(t.index.Zoom, t.index.Row, t.index.Col)
	return err
}

// Parent returns the tile covering this one on the previous zoom level.
func (t Tile) Parent() (Tile, bool) {
	if t.index.Zoom == 0 {
		return Tile{}, false
	}
	parent, err := t.tp.Tile(t.index.Zoom-1, t.index.Row/2, t.index.Col/2)
	if err != nil {
		return Tile{}, false
	}
	return parent, true
}

// Children returns the tiles on the next zoom level covered by this one, in
// top left, top right, bottom right, bottom left order.
func (t Tile) Children() []Tile {
	nextZoom := t.index.Zoom + 1
	if nextZoom > t.tp.MaxZoom() {
		return nil
	}
	rows := t.tp.matrixHeight(nextZoom)
	cols := t.tp.matrixWidth(nextZoom)
	children := make([]Tile, 0, 4)
	for _, offset := range [4][2]int{{0, 0}, {0, 1}, {1, 1}, {1, 0}} {
		row := 2*t.index.Row + offset[0]
		col := 2*t.index.Col + offset[1]
		if row < rows && col < cols {
			children = append(children, newTile(t.tp, TileIndex{Zoom: nextZoom, Row: row, Col: col}))
		}
	}
	return children
}

var neighborOffsets = [8][2]int{
	{-1, 0},  // above
	{0, 1},   // right
	{1, 0},   // below
	{0, -1},  // left
	{-1, 1},  // above right
	{1, 1},   // below right
	{1, -1},  // below left
	{-1, -1}, // above left
}

// Neighbors returns the unique direct (connectedness 4) or direct and diagonal (connectedness 8)
// neighbors. Rows never wrap; columns wrap around the antimeridian on global grids.
func (t Tile) Neighbors(connectedness int) ([]Tile, error) {
	if connectedness != 4 && connectedness != 8 {
		return nil, fmt.Errorf("%w: only connectedness values 8 or 4 are allowed, got %d", ErrOutOfRange, connectedness)
	}
	rows := t.tp.matrixHeight(t.index.Zoom)
	cols := t.tp.matrixWidth(t.index.Zoom)
	unique := orderedmap.New[TileIndex, Tile]()
	for _, offset := range neighborOffsets[:connectedness] {
		row := t.index.Row + offset[0]
		col := t.index.Col + offset[1]
		if row < 0 || row >= rows {
			continue
		}
		if col < 0 || col >= cols {
			if !t.tp.grid.isGlobal {
				continue
			}
			col = mathhelp.EuclidianMod(col, cols)
		}
		index := TileIndex{Zoom: t.index.Zoom, Row: row, Col: col}
		if index == t.index {
			continue
		}
		unique.Set(index, newTile(t.tp, index))
	}
	return mapslicehelp.OrderedMapValues(unique), nil
}

// Intersecting returns the tiles of another pyramid on the same grid that cover this tile.
func (t Tile) Intersecting(other *TilePyramid) ([]Tile, error) {
	return tileIntersectingPyramid(t, other)
}

// Equal compares the pyramids by value and the indices.
func (t Tile) Equal(other Tile) bool {
	return t.index == other.index && t.tp.Equal(other.tp)
}

func (t Tile) String() string {
	return fmt.Sprintf("Tile(%s, %s)", t.index, t.tp)
}
