package pyramid

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileConstruction(t *testing.T) {
	tp := geodetic(t)
	tests := []struct {
		name    string
		index   TileIndex
		wantErr string
	}{
		{name: "valid", index: TileIndex{Zoom: 5, Row: 5, Col: 5}},
		{name: "negative zoom", index: TileIndex{Zoom: -1}, wantErr: "zoom must be greater or equal 0"},
		{name: "negative col", index: TileIndex{Zoom: 10, Col: -11}, wantErr: "col and row must be integers >= 0"},
		{name: "row exceeds", index: TileIndex{Zoom: 5, Row: 500}, wantErr: "row (500) exceeds matrix height (32)"},
		{name: "col exceeds", index: TileIndex{Zoom: 5, Col: 500}, wantErr: "col (500) exceeds matrix width (64)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile, err := tp.Tile(tt.index.Zoom, tt.index.Row, tt.index.Col)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrOutOfRange)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.index, tile.Index())
			assert.NoError(t, tile.IsValid())
		})
	}
	assert.Panics(t, func() { tp.MustTile(5, 500, 0) })
}

func TestTileBounds(t *testing.T) {
	tp := geodetic(t)
	tests := []struct {
		name        string
		index       TileIndex
		pixelbuffer uint
		want        Bounds
	}{
		{
			name:  "default",
			index: TileIndex{Zoom: 5, Row: 3, Col: 3},
			want:  Bounds{Left: -163.125, Bottom: 67.5, Right: -157.5, Top: 73.125},
		},
		{
			name:        "buffered",
			index:       TileIndex{Zoom: 5, Row: 3, Col: 3},
			pixelbuffer: 1,
			want:        Bounds{Left: -163.14697265625, Bottom: 67.47802734375, Right: -157.47802734375, Top: 73.14697265625},
		},
		{
			name:        "first row",
			index:       TileIndex{Zoom: 5, Row: 0, Col: 0},
			pixelbuffer: 1,
			want:        Bounds{Left: -180.02197265625, Bottom: 84.35302734375, Right: -174.35302734375, Top: 90},
		},
		{
			name:        "last row",
			index:       TileIndex{Zoom: 5, Row: 31, Col: 0},
			pixelbuffer: 1,
			want:        Bounds{Left: -180.02197265625, Bottom: -90, Right: -174.35302734375, Top: -84.35302734375},
		},
		{
			name:        "overflowing all pyramid bounds",
			index:       TileIndex{Zoom: 0, Row: 0, Col: 0},
			pixelbuffer: 1,
			want:        Bounds{Left: -180.703125, Bottom: -90, Right: 0.703125, Top: 90},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile := tp.MustTile(tt.index.Zoom, tt.index.Row, tt.index.Col)
			assert.Equal(t, tt.want, tile.Bounds(tt.pixelbuffer))
			assert.True(t, orb.Equal(tt.want.Polygon(), tile.BBox(tt.pixelbuffer)))
		})
	}

	tile := tp.MustTile(5, 3, 3)
	assert.Equal(t, -163.125, tile.Left())
	assert.Equal(t, 73.125, tile.Top())
	assert.Equal(t, tile.XSize(), tile.YSize())
	assert.Equal(t, orb.Polygon{{
		{-157.5, 67.5}, {-157.5, 73.125}, {-163.125, 73.125}, {-163.125, 67.5}, {-157.5, 67.5},
	}}, tile.BBox(0))
}

func TestTileAffine(t *testing.T) {
	tp := geodetic(t)
	for _, index := range []TileIndex{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}} {
		tile := tp.MustTile(index.Zoom, index.Row, index.Col)
		assert.Equal(t,
			Affine{A: tile.PixelXSize(), C: tile.Left(), E: -tile.PixelYSize(), F: tile.Top()},
			tile.Affine(0))
		buffered := tile.Bounds(10)
		assert.Equal(t,
			Affine{A: tile.PixelXSize(), C: buffered.Left, E: -tile.PixelYSize(), F: buffered.Top},
			tile.Affine(10))
	}

	x, y := tp.MustTile(5, 3, 3).Affine(0).Apply(256, 256)
	assert.Equal(t, -157.5, x)
	assert.Equal(t, 67.5, y)
}

func TestTileShapes(t *testing.T) {
	tests := []struct {
		name        string
		tileSize    int
		metatiling  int
		pixelbuffer uint
		shapes      map[TileIndex]Shape
	}{
		{
			name: "default", tileSize: 256, metatiling: 1,
			shapes: map[TileIndex]Shape{{0, 0, 0}: {256, 256}},
		},
		{
			name: "512", tileSize: 512, metatiling: 1,
			shapes: map[TileIndex]Shape{{0, 0, 0}: {512, 512}},
		},
		{
			name: "metatiling 2", tileSize: 256, metatiling: 2,
			shapes: map[TileIndex]Shape{
				{0, 0, 0}: {256, 512}, {1, 0, 0}: {512, 512}, {2, 0, 0}: {512, 512}, {5, 0, 0}: {512, 512},
			},
		},
		{
			name: "metatiling 16", tileSize: 256, metatiling: 16,
			shapes: map[TileIndex]Shape{
				{0, 0, 0}: {256, 512}, {1, 0, 0}: {512, 1024}, {2, 0, 0}: {1024, 2048},
				{3, 0, 0}: {2048, 4096}, {4, 0, 0}: {4096, 4096}, {5, 0, 0}: {4096, 4096},
			},
		},
		{
			name: "pixelbuffer", tileSize: 256, metatiling: 1, pixelbuffer: 10,
			shapes: map[TileIndex]Shape{
				{0, 0, 0}:  {256, 276}, // single row at zoom 0
				{1, 0, 0}:  {266, 276}, // top left
				{2, 0, 2}:  {266, 276}, // top middle
				{2, 3, 7}:  {266, 276}, // bottom right
				{3, 1, 0}:  {276, 276}, // middle left
				{3, 1, 15}: {276, 276}, // middle right
			},
		},
		{
			name: "pixelbuffer metatiling 2", tileSize: 256, metatiling: 2, pixelbuffer: 10,
			shapes: map[TileIndex]Shape{
				{0, 0, 0}: {256, 532}, {1, 0, 0}: {512, 532}, {2, 0, 0}: {522, 532}, {5, 1, 1}: {532, 532},
			},
		},
		{
			name: "pixelbuffer metatiling 16", tileSize: 256, metatiling: 16, pixelbuffer: 10,
			shapes: map[TileIndex]Shape{
				{0, 0, 0}: {256, 532}, {1, 0, 0}: {512, 1044}, {2, 0, 0}: {1024, 2068},
				{3, 0, 0}: {2048, 4116}, {4, 0, 0}: {4096, 4116}, {5, 0, 0}: {4106, 4116}, {6, 1, 1}: {4116, 4116},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := geodetic(t, WithTileSize(tt.tileSize), WithMetatiling(tt.metatiling))
			for index, want := range tt.shapes {
				tile := tp.MustTile(index.Zoom, index.Row, index.Col)
				assert.Equal(t, want, tile.Shape(tt.pixelbuffer), "tile %s", index)
				if tt.pixelbuffer == 0 {
					assert.Equal(t, want.Width, tile.Width())
					assert.Equal(t, want.Height, tile.Height())
				}
			}
		})
	}
}

func TestTileParent(t *testing.T) {
	tp := geodetic(t)
	parent, ok := tp.MustTile(8, 100, 100).Parent()
	require.True(t, ok)
	assert.Equal(t, TileIndex{Zoom: 7, Row: 50, Col: 50}, parent.Index())

	_, ok = tp.MustTile(0, 0, 0).Parent()
	assert.False(t, ok)
}

func TestTileChildren(t *testing.T) {
	tests := []struct {
		name       string
		metatiling int
		index      TileIndex
		want       []TileIndex
	}{
		{
			name: "no metatiling", metatiling: 1, index: TileIndex{8, 100, 100},
			want: []TileIndex{{9, 200, 200}, {9, 200, 201}, {9, 201, 201}, {9, 201, 200}},
		},
		{
			name: "metatiling 2", metatiling: 2, index: TileIndex{0, 0, 0},
			want: []TileIndex{{1, 0, 0}, {1, 0, 1}},
		},
		{
			name: "metatiling 4", metatiling: 4, index: TileIndex{0, 0, 0},
			want: []TileIndex{{1, 0, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := geodetic(t, WithMetatiling(tt.metatiling))
			var got []TileIndex
			for _, child := range tp.MustTile(tt.index.Zoom, tt.index.Row, tt.index.Col).Children() {
				got = append(got, child.Index())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTileNeighbors(t *testing.T) {
	tests := []struct {
		name          string
		tp            *TilePyramid
		index         TileIndex
		connectedness int
		want          []TileIndex
	}{
		{
			name: "8 neighbors", tp: geodetic(t), index: TileIndex{8, 100, 100}, connectedness: 8,
			want: []TileIndex{
				{8, 99, 100}, {8, 100, 101}, {8, 101, 100}, {8, 100, 99},
				{8, 99, 101}, {8, 101, 101}, {8, 101, 99}, {8, 99, 99},
			},
		},
		{
			name: "4 neighbors", tp: geodetic(t), index: TileIndex{8, 100, 100}, connectedness: 4,
			want: []TileIndex{{8, 99, 100}, {8, 100, 101}, {8, 101, 100}, {8, 100, 99}},
		},
		{
			name: "over antimeridian", tp: geodetic(t), index: TileIndex{3, 1, 0}, connectedness: 8,
			want: []TileIndex{
				{3, 0, 0}, {3, 1, 1}, {3, 2, 0}, {3, 1, 15},
				{3, 0, 1}, {3, 2, 1}, {3, 2, 15}, {3, 0, 15},
			},
		},
		{
			name: "over antimeridian 4", tp: geodetic(t), index: TileIndex{3, 1, 0}, connectedness: 4,
			want: []TileIndex{{3, 0, 0}, {3, 1, 1}, {3, 2, 0}, {3, 1, 15}},
		},
		{
			name: "two identical neighbors", tp: geodetic(t), index: TileIndex{0, 0, 0}, connectedness: 8,
			want: []TileIndex{{0, 0, 1}},
		},
		{
			name: "alone", tp: geodetic(t, WithMetatiling(2)), index: TileIndex{0, 0, 0}, connectedness: 8,
			want: []TileIndex{},
		},
		{
			name: "custom grid corner", tp: MustNewTilePyramid(gridEPSG()), index: TileIndex{1, 0, 0}, connectedness: 8,
			want: []TileIndex{{1, 0, 1}, {1, 1, 0}, {1, 1, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			neighbors, err := tt.tp.MustTile(tt.index.Zoom, tt.index.Row, tt.index.Col).Neighbors(tt.connectedness)
			require.NoError(t, err)
			got := make([]TileIndex, 0, len(neighbors))
			for _, n := range neighbors {
				got = append(got, n.Index())
			}
			assert.Equal(t, tt.want, got)
		})
	}

	// non-global grids do not wrap around the antimeridian
	tp := MustNewTilePyramid(gridProj())
	width, _ := tp.MatrixWidth(5)
	neighbors, err := tp.MustTile(5, 3, width-1).Neighbors(8)
	require.NoError(t, err)
	assert.Len(t, neighbors, 5)

	_, err = tp.MustTile(5, 3, 3).Neighbors(6)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestTileIntersecting(t *testing.T) {
	source := geodetic(t, WithMetatiling(2))
	target := geodetic(t)
	got, err := source.MustTile(5, 2, 2).Intersecting(target)
	require.NoError(t, err)
	assert.Equal(t, idSet(TileIndex{5, 4, 4}, TileIndex{5, 4, 5}, TileIndex{5, 5, 4}, TileIndex{5, 5, 5}), ids(got))
}

func TestTileEqual(t *testing.T) {
	tp := geodetic(t)
	a := tp.MustTile(5, 5, 5)
	b := geodetic(t).MustTile(5, 5, 5)
	c := tp.MustTile(5, 5, 6)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(geodetic(t, WithMetatiling(2)).MustTile(5, 5, 5)))
	assert.Equal(t, "5 5 5", a.Index().String())
	assert.Equal(t, `Tile(5 5 5, TilePyramid(GridDefinition("geodetic"), tile_size=256, metatiling=1))`, a.String())
}

func TestBoundsConversions(t *testing.T) {
	b := Bounds{Left: -180, Bottom: 67.5, Right: -174.375, Top: 73.125}

	assert.Equal(t, orb.Bound{Min: orb.Point{-180, 67.5}, Max: orb.Point{-174.375, 73.125}}, b.Bound())
	assert.Equal(t, orb.Polygon{{{-174.375, 67.5}, {-174.375, 73.125}, {-180, 73.125}, {-180, 67.5}, {-174.375, 67.5}}}, b.Polygon())

	extent := b.Extent()
	assert.Equal(t, -180.0, extent.MinX())
	assert.Equal(t, 73.125, extent.MaxY())
	assert.Equal(t, 5.625, extent.XSpan())
}

func TestParentChildInverse(t *testing.T) {
	for name, tp := range metatiledPyramids(t) {
		t.Run(name, func(t *testing.T) {
			for zoom := 1; zoom <= 5; zoom++ {
				forEachTile(t, tp, zoom, func(tile Tile) {
					parent, ok := tile.Parent()
					require.True(t, ok, tile.Index())
					assert.Contains(t, ids(parent.Children()), tile.Index())
					for _, child := range tile.Children() {
						p, ok := child.Parent()
						require.True(t, ok, child.Index())
						assert.Equal(t, tile.Index(), p.Index())
					}
				})
			}
		})
	}
}

func TestNeighborSymmetry(t *testing.T) {
	for name, tp := range metatiledPyramids(t) {
		t.Run(name, func(t *testing.T) {
			for zoom := 0; zoom <= 4; zoom++ {
				for _, connectedness := range []int{4, 8} {
					forEachTile(t, tp, zoom, func(tile Tile) {
						neighbors, err := tile.Neighbors(connectedness)
						require.NoError(t, err)
						assert.NotContains(t, ids(neighbors), tile.Index())
						for _, n := range neighbors {
							back, err := n.Neighbors(connectedness)
							require.NoError(t, err)
							assert.Contains(t, ids(back), tile.Index(), "%s is a neighbor of %s", n.Index(), tile.Index())
						}
					})
				}
			}
		})
	}
}
