package pyramid

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileFromXY(t *testing.T) {
	tp := geodetic(t)
	tests := []struct {
		name    string
		x, y    float64
		edge    EdgeUse
		want    TileIndex
		wantErr error
	}{
		{name: "inside rb", x: 0.5, y: 0.5, edge: RightBottom, want: TileIndex{5, 15, 32}},
		{name: "inside lb", x: 0.5, y: 0.5, edge: LeftBottom, want: TileIndex{5, 15, 32}},
		{name: "inside rt", x: 0.5, y: 0.5, edge: RightTop, want: TileIndex{5, 15, 32}},
		{name: "inside lt", x: 0.5, y: 0.5, edge: LeftTop, want: TileIndex{5, 15, 32}},
		{name: "edge default", x: 0, y: 0, want: TileIndex{5, 16, 32}},
		{name: "edge rb", x: 0, y: 0, edge: RightBottom, want: TileIndex{5, 16, 32}},
		{name: "edge lb", x: 0, y: 0, edge: LeftBottom, want: TileIndex{5, 16, 31}},
		{name: "edge rt", x: 0, y: 0, edge: RightTop, want: TileIndex{5, 15, 32}},
		{name: "edge lt", x: 0, y: 0, edge: LeftTop, want: TileIndex{5, 15, 31}},
		{name: "bottom right corner rb", x: 180, y: -90, edge: RightBottom, wantErr: ErrOutOfRange},
		{name: "bottom right corner lb", x: 180, y: -90, edge: LeftBottom, wantErr: ErrOutOfRange},
		{name: "bottom right corner rt", x: 180, y: -90, edge: RightTop, want: TileIndex{5, 31, 0}},
		{name: "bottom right corner lt", x: 180, y: -90, edge: LeftTop, want: TileIndex{5, 31, 63}},
		{name: "top left corner lt", x: -180, y: 90, edge: LeftTop, wantErr: ErrOutOfRange},
		{name: "top left corner rt", x: -180, y: 90, edge: RightTop, wantErr: ErrOutOfRange},
		{name: "top left corner rb", x: -180, y: 90, edge: RightBottom, want: TileIndex{5, 0, 0}},
		{name: "top left corner lb", x: -180, y: 90, edge: LeftBottom, want: TileIndex{5, 0, 63}},
		{name: "invalid edge", x: -180, y: 90, edge: "invalid", wantErr: ErrOutOfRange},
		{name: "outside", x: -300, y: 100, edge: RightBottom, wantErr: ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile, err := tp.TileFromXY(tt.x, tt.y, 5, tt.edge)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tile.Index())
			if tt.x > -180 && tt.x < 180 {
				assert.True(t, tile.Bounds(0).Bound().Contains(orb.Point{tt.x, tt.y}))
			}
		})
	}

	_, err := tp.TileFromXY(0, 0, -1, RightBottom)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestTilesFromBounds(t *testing.T) {
	tp := geodetic(t)
	allColumns := make([]TileIndex, 16)
	for col := range allColumns {
		allColumns[col] = TileIndex{3, 0, col}
	}
	tests := []struct {
		name   string
		bounds Bounds
		zoom   int
		want   map[TileIndex]bool
	}{
		{
			name:   "tile bounds",
			bounds: Bounds{Left: -163.125, Bottom: 67.5, Right: -157.5, Top: 73.125},
			zoom:   5,
			want:   idSet(TileIndex{5, 3, 3}),
		},
		{
			name:   "crossing the antimeridian west",
			bounds: Bounds{Left: -183.125, Bottom: 67.5, Right: -177.5, Top: 73.125},
			zoom:   5,
			want:   idSet(TileIndex{5, 3, 0}, TileIndex{5, 3, 63}),
		},
		{
			name:   "crossing the antimeridian east",
			bounds: Bounds{Left: 177.5, Bottom: 67.5, Right: 183.125, Top: 73.125},
			zoom:   5,
			want:   idSet(TileIndex{5, 3, 0}, TileIndex{5, 3, 63}),
		},
		{
			name:   "crossing the antimeridian on both sides",
			bounds: Bounds{Left: -183, Bottom: 67.5, Right: 183.125, Top: 73.125},
			zoom:   3,
			want:   idSet(allColumns...),
		},
		{
			name:   "beyond the poles",
			bounds: Bounds{Left: -10, Bottom: -100, Right: 10, Top: 100},
			zoom:   0,
			want:   idSet(TileIndex{0, 0, 0}, TileIndex{0, 0, 1}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := tp.TilesFromBounds(tt.bounds, tt.zoom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(it.Collect()))
		})
	}

	_, err := tp.TilesFromBounds(Bounds{}, -1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestTilesFromBoundsMatchChildren(t *testing.T) {
	for _, tp := range []*TilePyramid{geodetic(t), MustNewTilePyramid(gridProj())} {
		parent := tp.MustTile(8, 5, 5)
		if !tp.IsGlobal() {
			parent = tp.MustTile(8, 0, 0)
		}
		it, err := tp.TilesFromBounds(parent.Bounds(0), 9)
		require.NoError(t, err)
		assert.Equal(t, ids(parent.Children()), ids(it.Collect()))
	}
}

func TestTilesFromBoundsOrder(t *testing.T) {
	tp := geodetic(t)
	it, err := tp.TilesFromBounds(Bounds{Left: 0, Bottom: 0, Right: 90, Top: 90}, 3)
	require.NoError(t, err)
	tiles := it.Collect()
	require.Len(t, tiles, 16)
	for i := 1; i < len(tiles); i++ {
		prev, cur := tiles[i-1].Index(), tiles[i].Index()
		assert.True(t, cur.Row > prev.Row || (cur.Row == prev.Row && cur.Col == prev.Col+1), "%s after %s", cur, prev)
	}

	// a fresh iterator per call
	again, err := tp.TilesFromBounds(Bounds{Left: 0, Bottom: 0, Right: 90, Top: 90}, 3)
	require.NoError(t, err)
	assert.Equal(t, tiles, again.Collect())
	assert.False(t, it.Next())
}

func TestTilesFromBoundsBatched(t *testing.T) {
	tp := geodetic(t)
	tests := []struct {
		name   string
		bounds Bounds
		by     BatchBy
	}{
		{name: "row", bounds: Bounds{Left: 0, Bottom: 0, Right: 90, Top: 90}, by: BatchByRow},
		{name: "column", bounds: Bounds{Left: 0, Bottom: 0, Right: 90, Top: 90}, by: BatchByColumn},
		{name: "row antimeridian", bounds: Bounds{Left: 0, Bottom: 0, Right: 185, Top: 95}, by: BatchByRow},
		{name: "row both antimeridians", bounds: Bounds{Left: -185, Bottom: 0, Right: 185, Top: 95}, by: BatchByRow},
		{name: "row split", bounds: Bounds{Left: -183.125, Bottom: 67.5, Right: -177.5, Top: 73.125}, by: BatchByRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batched, err := tp.TilesFromBoundsBatched(tt.bounds, 8, tt.by)
			require.NoError(t, err)
			batches := batched.Collect()
			require.NotEmpty(t, batches)

			count := 0
			previousBatch := -1
			for _, batch := range batches {
				for i, tile := range batch {
					count++
					inner, outer := tile.Col(), tile.Row()
					if tt.by == BatchByColumn {
						inner, outer = tile.Row(), tile.Col()
					}
					if i > 0 {
						prevInner, prevOuter := batch[i-1].Col(), batch[i-1].Row()
						if tt.by == BatchByColumn {
							prevInner, prevOuter = batch[i-1].Row(), batch[i-1].Col()
						}
						assert.Greater(t, inner, prevInner)
						assert.Equal(t, outer, prevOuter)
					}
					if i == 0 {
						assert.Greater(t, outer, previousBatch)
						previousBatch = outer
					}
				}
			}

			flat, err := tp.TilesFromBounds(tt.bounds, 8)
			require.NoError(t, err)
			assert.Equal(t, len(flat.Collect()), count)
		})
	}

	_, err := tp.TilesFromBoundsBatched(Bounds{Left: 0, Bottom: 0, Right: 1, Top: 1}, 8, BatchNone)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = tp.TilesFromBoundsBatched(Bounds{Left: 0, Bottom: 0, Right: 1, Top: 1}, 8, "diagonal")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestTilesFromBBox(t *testing.T) {
	tp := geodetic(t)
	bbox := orb.Polygon{{
		{5.625, 61.875}, {56.25, 61.875}, {56.25, 28.125}, {5.625, 28.125}, {5.625, 28.125}, {5.625, 61.875},
	}}
	want := map[TileIndex]bool{}
	for row := 5; row <= 10; row++ {
		for col := 33; col <= 41; col++ {
			want[TileIndex{5, row, col}] = true
		}
	}
	it, err := tp.TilesFromBBox(bbox, 5)
	require.NoError(t, err)
	assert.Equal(t, want, ids(it.Collect()))

	empty, err := tp.TilesFromBBox(orb.Polygon{}, 5)
	require.NoError(t, err)
	assert.Empty(t, empty.Collect())
}

func TestTilesFromGeom(t *testing.T) {
	tp := geodetic(t)
	southGermanyTiles := []TileIndex{
		{8, 58, 270}, {8, 58, 271}, {8, 58, 272}, {8, 58, 273},
		{8, 59, 267}, {8, 59, 268}, {8, 59, 269}, {8, 59, 270},
	}
	southGermanyPolygonTiles := []TileIndex{
		{9, 116, 544}, {9, 116, 545}, {9, 116, 546},
		{9, 117, 540}, {9, 117, 541}, {9, 117, 542}, {9, 117, 543}, {9, 117, 544}, {9, 117, 545},
		{9, 118, 536}, {9, 118, 537}, {9, 118, 538}, {9, 118, 539}, {9, 118, 540}, {9, 118, 541},
		{9, 119, 535}, {9, 119, 536}, {9, 119, 537}, {9, 119, 538},
	}
	lakeVictoriaPolygonTiles := []TileIndex{
		{9, 251, 604}, {9, 251, 605}, {9, 252, 604}, {9, 252, 605}, {9, 253, 605},
		{9, 253, 606}, {9, 254, 605}, {9, 254, 606}, {9, 255, 606},
	}
	tests := []struct {
		name  string
		geom  orb.Geometry
		zoom  int
		exact bool
		want  []TileIndex
	}{
		{name: "empty", geom: orb.Polygon{}, zoom: 6},
		{name: "multipoint", geom: multiPoint, zoom: 9, want: []TileIndex{{9, 113, 553}, {9, 118, 558}}},
		{name: "linestring", geom: southGermany, zoom: 8, want: southGermanyTiles},
		{
			name: "multilinestring",
			geom: orb.MultiLineString{southGermany, lakeVictoria},
			zoom: 8,
			want: append([]TileIndex{{8, 125, 302}, {8, 126, 302}, {8, 126, 303}, {8, 127, 303}}, southGermanyTiles...),
		},
		{name: "linestring exact", geom: southGermany, zoom: 8, exact: true},
		{name: "polygon", geom: orb.Polygon{closed(southGermany)}, zoom: 9, want: southGermanyPolygonTiles},
		{
			// rings are not closed
			name: "multipolygon",
			geom: orb.MultiPolygon{
				{orb.Ring(southGermany)},
				{orb.Ring(lakeVictoria)},
			},
			zoom: 9,
			want: append(append([]TileIndex{}, southGermanyPolygonTiles...), lakeVictoriaPolygonTiles...),
		},
		{
			name: "touching tile",
			geom: tileBoundsPolygon,
			zoom: 3,
			want: []TileIndex{{3, 2, 8}, {3, 2, 9}, {3, 3, 8}, {3, 3, 9}},
		},
		{
			name:  "touching tile exact",
			geom:  tileBoundsPolygon,
			zoom:  3,
			exact: true,
			want:  []TileIndex{{3, 2, 8}, {3, 3, 8}, {3, 3, 9}},
		},
		{
			name: "polygon across the antimeridian",
			geom: Bounds{Left: -183.125, Bottom: 67.5, Right: -177.5, Top: 73.125}.Polygon(),
			zoom: 5,
			want: []TileIndex{{5, 3, 0}, {5, 3, 63}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := tp.TilesFromGeom(tt.geom, tt.zoom, tt.exact)
			require.NoError(t, err)
			assert.Equal(t, idSet(tt.want...), ids(it.Collect()))

			batched, err := tp.TilesFromGeomBatched(tt.geom, tt.zoom, BatchByRow, tt.exact)
			require.NoError(t, err)
			var flat []Tile
			for _, batch := range batched.Collect() {
				flat = append(flat, batch...)
			}
			assert.Len(t, flat, len(tt.want))
			assert.Equal(t, idSet(tt.want...), ids(flat))
		})
	}
}

func TestTilesFromGeomPoint(t *testing.T) {
	point := orb.Point{16.36, 48.20}
	for _, metatiling := range []int{1, 2, 4, 8, 16} {
		tp := geodetic(t, WithMetatiling(metatiling))
		it, err := tp.TilesFromGeom(point, 6, false)
		require.NoError(t, err)
		tiles := it.Collect()
		require.Len(t, tiles, 1)
		assert.True(t, tiles[0].Bounds(0).Bound().Contains(point))
	}

	_, err := geodetic(t).TilesFromGeom(orb.Point{-300, 100}, 6, false)
	require.ErrorIs(t, err, ErrOutOfRange)

	batched, err := geodetic(t).TilesFromGeomBatched(multiPoint, 9, BatchByColumn, false)
	require.NoError(t, err)
	batches := batched.Collect()
	require.Len(t, batches, 2)
	assert.Equal(t, 553, batches[0][0].Col())
	assert.Equal(t, 558, batches[1][0].Col())
}

func TestTilesFromGeomErrors(t *testing.T) {
	tp := geodetic(t)

	_, err := tp.TilesFromGeom(invalidPolygon, 6, false)
	require.ErrorIs(t, err, ErrGeometry)
	assert.Contains(t, err.Error(), "no valid geometry: Polygon")

	_, err = tp.TilesFromGeomBatched(invalidPolygon, 6, BatchByRow, false)
	require.ErrorIs(t, err, ErrGeometry)

	_, err = tp.TilesFromGeom(southGermany, -1, false)
	require.ErrorIs(t, err, ErrOutOfRange)

	square := func(l, b, r, top float64) orb.Ring {
		return orb.Ring{{l, b}, {r, b}, {r, top}, {l, top}, {l, b}}
	}
	invalid := []struct {
		name string
		g    orb.Geometry
	}{
		{name: "overlapping parts", g: orb.MultiPolygon{{square(0, 0, 10, 10)}, {square(5, 5, 15, 15)}}},
		{name: "overlapping holes", g: orb.Polygon{square(0, 0, 10, 10), square(1, 1, 5, 5), square(3, 3, 7, 7)}},
		{name: "nested holes", g: orb.Polygon{square(0, 0, 10, 10), square(1, 1, 9, 9), square(3, 3, 6, 6)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tp.TilesFromGeom(tt.g, 3, false)
			require.ErrorIs(t, err, ErrGeometry)
		})
	}

	_, err = tp.TilesFromGeomBatched(southGermany, 8, BatchNone, false)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestPyramidIntersecting(t *testing.T) {
	tests := []struct {
		name    string
		tp      *TilePyramid
		tile    Tile
		want    map[TileIndex]bool
		wantErr error
	}{
		{
			name: "same metatiling",
			tp:   geodetic(t),
			tile: geodetic(t).MustTile(5, 1, 1),
			want: idSet(TileIndex{5, 1, 1}),
		},
		{
			name: "smaller metatiling",
			tp:   geodetic(t),
			tile: geodetic(t, WithMetatiling(2)).MustTile(5, 1, 1),
			want: idSet(TileIndex{5, 2, 2}, TileIndex{5, 2, 3}, TileIndex{5, 3, 3}, TileIndex{5, 3, 2}),
		},
		{
			name: "bigger metatiling",
			tp:   geodetic(t, WithMetatiling(2)),
			tile: geodetic(t).MustTile(5, 1, 1),
			want: idSet(TileIndex{5, 0, 0}),
		},
		{
			name: "bigger metatiling far east",
			tp:   geodetic(t, WithMetatiling(2)),
			tile: geodetic(t).MustTile(4, 12, 31),
			want: idSet(TileIndex{4, 6, 15}),
		},
		{
			name:    "different grids",
			tp:      geodetic(t),
			tile:    MustNewTilePyramid(Preset(Mercator)).MustTile(5, 1, 1),
			wantErr: ErrCrossGrid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tp.Intersecting(tt.tile)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestParseBatchBy(t *testing.T) {
	for in, want := range map[string]BatchBy{"": BatchNone, "row": BatchByRow, "column": BatchByColumn} {
		got, err := ParseBatchBy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseBatchBy("diagonal")
	require.ErrorIs(t, err, ErrOutOfRange)
}
