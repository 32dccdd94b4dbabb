package pyramid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/pdok/tilematrix/geomhelp"
	"github.com/pdok/tilematrix/mapslicehelp"
)

// TileFromXY returns the tile covering the point. edge decides which tile a point on
// a tile edge belongs to, RightBottom when empty.
func (tp *TilePyramid) TileFromXY(x, y float64, zoom int, edge EdgeUse) (Tile, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return Tile{}, err
	}
	b := tp.grid.bounds
	if x < b.Left || x > b.Right || y < b.Bottom || y > b.Top {
		return Tile{}, fmt.Errorf("%w: x or y are outside of grid bounds: (%v, %v)", ErrOutOfRange, x, y)
	}
	if edge == "" {
		edge = RightBottom
	}
	if !edge.valid() {
		return Tile{}, fmt.Errorf("%w: on_edge_use must be one of lb, rb, rt or lt, got %q", ErrOutOfRange, edge)
	}
	return tp.tileFromXY(x, y, zoom, edge)
}

// tileFromXY skips the bounds check, so it can also resolve points on or just
// beyond the pyramid edge.
func (tp *TilePyramid) tileFromXY(x, y float64, zoom int, edge EdgeUse) (Tile, error) {
	b := tp.grid.bounds

	tileY := tp.tileYSize(zoom)
	row := int((b.Top - y) / tileY)
	if edge.top() && math.Mod(b.Top-y, tileY) == 0 {
		row--
	}

	tileX := tp.tileXSize(zoom)
	col := int((x - b.Left) / tileX)
	if edge.left() && math.Mod(x-b.Left, tileX) == 0 {
		col--
	}

	if tp.grid.isGlobal {
		width := tp.matrixWidth(zoom)
		if col == -1 {
			col = width - 1
		} else if col >= width {
			col %= width
		}
	}

	t, err := tp.Tile(zoom, row, col)
	if err != nil {
		return Tile{}, fmt.Errorf("on_edge_use '%s' results in an invalid tile: %w", edge, err)
	}
	return t, nil
}

// TilesFromBounds returns all tiles intersecting the bounds, row by row.
// On global grids bounds crossing the antimeridian wrap around.
func (tp *TilePyramid) TilesFromBounds(bounds Bounds, zoom int) (*TileIterator, error) {
	q, err := tp.boundsQuery(bounds, zoom)
	if err != nil {
		return nil, err
	}
	return q.tiles(), nil
}

// TilesFromBoundsBatched returns the tiles of TilesFromBounds grouped per row or column.
func (tp *TilePyramid) TilesFromBoundsBatched(bounds Bounds, zoom int, by BatchBy) (*BatchIterator, error) {
	if err := validateBatchBy(by); err != nil {
		return nil, err
	}
	q, err := tp.boundsQuery(bounds, zoom)
	if err != nil {
		return nil, err
	}
	return q.batches(by), nil
}

// TilesFromBBox returns all tiles intersecting the bounding box of the geometry.
func (tp *TilePyramid) TilesFromBBox(g orb.Geometry, zoom int) (*TileIterator, error) {
	if geomhelp.IsEmpty(g) {
		return emptyTileIterator(), nil
	}
	return tp.TilesFromBounds(BoundsFromOrb(g.Bound()), zoom)
}

func (tp *TilePyramid) TilesFromBBoxBatched(g orb.Geometry, zoom int, by BatchBy) (*BatchIterator, error) {
	if geomhelp.IsEmpty(g) {
		if err := validateBatchBy(by); err != nil {
			return nil, err
		}
		return sliceBatchIterator(nil), nil
	}
	return tp.TilesFromBoundsBatched(BoundsFromOrb(g.Bound()), zoom, by)
}

// TilesFromGeom returns all tiles intersecting the geometry. With exact only tiles
// sharing a positive area with the geometry are returned, which excludes all tiles
// for points and lines.
func (tp *TilePyramid) TilesFromGeom(g orb.Geometry, zoom int, exact bool) (*TileIterator, error) {
	q, err := tp.geomQuery(g, zoom, exact)
	if err != nil {
		return nil, err
	}
	switch {
	case q.empty:
		return emptyTileIterator(), nil
	case q.points != nil:
		return sliceTileIterator(q.points), nil
	}
	return q.bounds.tiles().filter(q.keep), nil
}

// TilesFromGeomBatched returns the tiles of TilesFromGeom grouped per row or column.
func (tp *TilePyramid) TilesFromGeomBatched(g orb.Geometry, zoom int, by BatchBy, exact bool) (*BatchIterator, error) {
	if err := validateBatchBy(by); err != nil {
		return nil, err
	}
	q, err := tp.geomQuery(g, zoom, exact)
	if err != nil {
		return nil, err
	}
	switch {
	case q.empty:
		return sliceBatchIterator(nil), nil
	case q.points != nil:
		key := func(t Tile) int { return t.index.Row }
		if by == BatchByColumn {
			key = func(t Tile) int { return t.index.Col }
		}
		return sliceBatchIterator(mapslicehelp.GroupBy(q.points, key)), nil
	}
	return q.bounds.batches(by).filter(q.keep), nil
}

type geomQuery struct {
	empty  bool
	points []Tile
	bounds boundsQuery
	keep   func(Tile) bool
}

func (tp *TilePyramid) geomQuery(g orb.Geometry, zoom int, exact bool) (geomQuery, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return geomQuery{}, err
	}
	if geomhelp.IsEmpty(g) {
		return geomQuery{empty: true}, nil
	}
	shape, err := geomhelp.NewShape(g)
	if err != nil {
		return geomQuery{}, fmt.Errorf("%w: no valid geometry: %s: %w", ErrGeometry, g.GeoJSONType(), err)
	}
	switch g := g.(type) {
	case orb.Point:
		t, err := tp.TileFromXY(g[0], g[1], zoom, RightBottom)
		if err != nil {
			return geomQuery{}, err
		}
		return geomQuery{points: []Tile{t}}, nil
	case orb.MultiPoint:
		tiles := make([]Tile, 0, len(g))
		for _, p := range g {
			t, err := tp.TileFromXY(p[0], p[1], zoom, RightBottom)
			if err != nil {
				return geomQuery{}, err
			}
			tiles = append(tiles, t)
		}
		return geomQuery{points: tiles}, nil
	}

	bq, err := tp.boundsQuery(BoundsFromOrb(g.Bound()), zoom)
	if err != nil {
		return geomQuery{}, err
	}
	offsets := tp.wrapOffsets(g)
	keep := func(t Tile) bool {
		for _, b := range shiftedBounds(t.Bounds(0).Bound(), offsets) {
			if shape.IntersectsBound(b) {
				return true
			}
		}
		return false
	}
	if exact {
		keep = func(t Tile) bool {
			for _, b := range shiftedBounds(t.Bounds(0).Bound(), offsets) {
				area, err := shape.IntersectionArea(b)
				if err != nil {
					zap.L().Warn("could not compute intersection area, falling back to intersects",
						zap.Stringer("tile", t.Index()), zap.Error(err))
					if shape.IntersectsBound(b) {
						return true
					}
					continue
				}
				if area > 0 {
					return true
				}
			}
			return false
		}
	}
	return geomQuery{bounds: bq, keep: keep}, nil
}

// Intersecting returns the tiles of this pyramid covering the tile of another pyramid on the same grid.
func (tp *TilePyramid) Intersecting(t Tile) ([]Tile, error) {
	return tileIntersectingPyramid(t, tp)
}

func tileIntersectingPyramid(t Tile, tp *TilePyramid) ([]Tile, error) {
	if !t.tp.grid.Equal(tp.grid) {
		return nil, fmt.Errorf("%w: Tile and TilePyramid source grids must be the same", ErrCrossGrid)
	}
	tileMetatiling := t.tp.metatiling
	pyramidMetatiling := tp.metatiling
	switch {
	case tileMetatiling > pyramidMetatiling:
		multiplier := tileMetatiling / pyramidMetatiling
		tiles := make([]Tile, 0, multiplier*multiplier)
		for rowOffset := 0; rowOffset < multiplier; rowOffset++ {
			for colOffset := 0; colOffset < multiplier; colOffset++ {
				sub, err := tp.Tile(t.index.Zoom, multiplier*t.index.Row+rowOffset, multiplier*t.index.Col+colOffset)
				if err != nil {
					return nil, err
				}
				tiles = append(tiles, sub)
			}
		}
		return tiles, nil
	case tileMetatiling < pyramidMetatiling:
		divisor := pyramidMetatiling / tileMetatiling
		super, err := tp.Tile(t.index.Zoom, t.index.Row/divisor, t.index.Col/divisor)
		if err != nil {
			return nil, err
		}
		return []Tile{super}, nil
	}
	same, err := tp.Tile(t.index.Zoom, t.index.Row, t.index.Col)
	if err != nil {
		return nil, err
	}
	return []Tile{same}, nil
}

func validateBatchBy(by BatchBy) error {
	switch by {
	case BatchByRow, BatchByColumn:
		return nil
	}
	return fmt.Errorf("%w: batched queries need 'row' or 'column', got %q", ErrOutOfRange, by)
}

// tileRange is a dense rectangle of tiles on one zoom level.
type tileRange struct {
	tp     *TilePyramid
	zoom   int
	minRow int
	maxRow int
	minCol int
	maxCol int
}

// cleanedBoundsRange expects bounds within the left and right pyramid edge.
func (tp *TilePyramid) cleanedBoundsRange(b Bounds, zoom int) (tileRange, error) {
	lb, err := tp.tileFromXY(b.Left, b.Bottom, zoom, RightTop)
	if err != nil {
		return tileRange{}, err
	}
	rt, err := tp.tileFromXY(b.Right, b.Top, zoom, LeftBottom)
	if err != nil {
		return tileRange{}, err
	}
	return tileRange{
		tp:     tp,
		zoom:   zoom,
		minRow: rt.index.Row,
		maxRow: lb.index.Row,
		minCol: lb.index.Col,
		maxCol: rt.index.Col,
	}, nil
}

func (r tileRange) tile(row, col int) Tile {
	return newTile(r.tp, TileIndex{Zoom: r.zoom, Row: row, Col: col})
}

func (r tileRange) tiles() *TileIterator {
	row, col := r.minRow, r.minCol
	return newTileIterator(func() (Tile, bool) {
		if col > r.maxCol {
			row++
			col = r.minCol
		}
		if row > r.maxRow || r.minCol > r.maxCol {
			return Tile{}, false
		}
		t := r.tile(row, col)
		col++
		return t, true
	})
}

func (r tileRange) batches(by BatchBy) *BatchIterator {
	if by == BatchByColumn {
		col := r.minCol
		return newBatchIterator(func() (*TileIterator, bool) {
			if col > r.maxCol || r.minRow > r.maxRow {
				return nil, false
			}
			c := col
			col++
			row := r.minRow
			return newTileIterator(func() (Tile, bool) {
				if row > r.maxRow {
					return Tile{}, false
				}
				row++
				return r.tile(row-1, c), true
			}), true
		})
	}
	row := r.minRow
	return newBatchIterator(func() (*TileIterator, bool) {
		if row > r.maxRow || r.minCol > r.maxCol {
			return nil, false
		}
		rw := row
		row++
		col := r.minCol
		return newTileIterator(func() (Tile, bool) {
			if col > r.maxCol {
				return Tile{}, false
			}
			col++
			return r.tile(rw, col-1), true
		}), true
	})
}
