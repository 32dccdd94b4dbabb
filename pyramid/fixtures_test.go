package pyramid

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdok/tilematrix/crs"
)

const orthoProj = `
        +proj=ortho
        +lat_0=-90
        +lon_0=0
        +x_0=0
        +y_0=0
        +ellps=WGS84
        +units=m +no_defs
    `

func gridProj() CustomGrid {
	return CustomGrid{
		Shape:  Shape{Height: 1, Width: 1},
		Bounds: Bounds{Left: -4000000.0, Bottom: -4000000.0, Right: 4000000.0, Top: 4000000.0},
		SRS:    crs.SRS{Proj: orthoProj},
	}
}

func gridEPSG() CustomGrid {
	return CustomGrid{
		Shape:  Shape{Height: 1, Width: 1},
		Bounds: Bounds{Left: 2426378.0132, Bottom: 1528101.2618, Right: 6293974.6215, Top: 5395697.8701},
		SRS:    crs.SRS{EPSG: 3035},
	}
}

func gridIrregular() CustomGrid {
	return CustomGrid{
		Shape:  Shape{Height: 161, Width: 315},
		Bounds: Bounds{Left: 141920, Bottom: 89840, Right: 948320, Top: 502000},
		SRS:    crs.SRS{EPSG: 31259},
	}
}

func gridSmall() CustomGrid {
	return CustomGrid{
		Shape:  Shape{Height: 3, Width: 5},
		Bounds: Bounds{Left: 0, Bottom: 0, Right: 5000, Top: 3000},
		SRS:    crs.SRS{EPSG: 25832},
	}
}

// metatiledPyramids is the global geodetic grid and a small regional grid, each metatiled by 1, 4 and 16.
func metatiledPyramids(t *testing.T) map[string]*TilePyramid {
	t.Helper()
	pyramids := make(map[string]*TilePyramid)
	for _, metatiling := range []int{1, 4, 16} {
		pyramids[fmt.Sprintf("geodetic metatiling %d", metatiling)] = geodetic(t, WithMetatiling(metatiling))
		small, err := NewTilePyramid(gridSmall(), WithMetatiling(metatiling))
		require.NoError(t, err)
		pyramids[fmt.Sprintf("regional metatiling %d", metatiling)] = small
	}
	return pyramids
}

func forEachTile(t *testing.T, tp *TilePyramid, zoom int, fn func(Tile)) {
	t.Helper()
	rows, err := tp.MatrixHeight(zoom)
	require.NoError(t, err)
	cols, err := tp.MatrixWidth(zoom)
	require.NoError(t, err)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			fn(tp.MustTile(zoom, row, col))
		}
	}
}

func geodetic(t *testing.T, opts ...Option) *TilePyramid {
	t.Helper()
	tp, err := NewTilePyramid(Preset(Geodetic), opts...)
	require.NoError(t, err)
	return tp
}

func ids(tiles []Tile) map[TileIndex]bool {
	result := make(map[TileIndex]bool, len(tiles))
	for _, tile := range tiles {
		result[tile.Index()] = true
	}
	return result
}

func idSet(indices ...TileIndex) map[TileIndex]bool {
	result := make(map[TileIndex]bool, len(indices))
	for _, i := range indices {
		result[i] = true
	}
	return result
}

func observeWarnings(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

var (
	invalidPolygon = orb.Polygon{{
		{0, 0}, {0, 3}, {3, 3}, {3, 0}, {2, 0}, {2, 2}, {1, 2}, {1, 1}, {2, 1}, {2, 0}, {0, 0},
	}}

	tileBoundsPolygon = orb.Polygon{{
		{0, 0}, {0, 45}, {22.5, 45}, {22.5, 22.5}, {45, 22.5}, {45, 0}, {0, 0},
	}}

	multiPoint = orb.MultiPoint{
		{14.464033917048539, 50.08528287347832},
		{16.364693096743736, 48.20196113681686},
	}

	southGermany = orb.LineString{
		{8.219788038779399, 48.04680919045518},
		{8.553359409223447, 47.98081838641845},
		{9.41408206547689, 48.13835399026023},
		{10.71989383306024, 48.64871043557477},
		{11.683555942439085, 48.794127916044104},
		{12.032991977596737, 49.02749868427421},
	}

	lakeVictoria = orb.LineString{
		{33.206893344868945, 0.261534735511418},
		{33.18725630059802, 0.428191229652711},
		{32.8931140479927, 1.31144481038541},
		{32.80150465264725, 1.366544806316611},
		{32.62475833510098, 1.471712805584616},
		{32.51003665541302, 1.536754055177965},
		{32.36248752211165, 1.606878973798047},
	}
)

func closed(ls orb.LineString) orb.Ring {
	ring := append(orb.Ring{}, ls...)
	return append(ring, ls[0])
}
