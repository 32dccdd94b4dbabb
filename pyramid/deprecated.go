package pyramid

import (
	"go.uber.org/zap"

	"github.com/pdok/tilematrix/mathhelp"
)

// deprecated logs a deprecation warning on the global zap logger.
func deprecated(msg string, fields ...zap.Field) {
	zap.L().Warn("deprecated: "+msg, fields...)
}

// Type returns the grid type.
//
// Deprecated: use Grid().Type().
func (tp *TilePyramid) Type() string {
	deprecated("'type' attribute is deprecated", zap.String("use", "Grid().Type()"))
	return tp.grid.typ
}

// SRID returns the EPSG code of the grid CRS.
//
// Deprecated: use CRS().EPSG().
func (tp *TilePyramid) SRID() (int, bool) {
	deprecated("'srid' attribute is deprecated", zap.String("use", "CRS().EPSG()"))
	return tp.grid.crs.EPSG()
}

// TileXSize returns the width of a tile in CRS units.
//
// Deprecated: use Tile.XSize().
func (tp *TilePyramid) TileXSize(zoom int) (float64, error) {
	deprecated("tile_x_size is deprecated", zap.Int("zoom", zoom))
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	return mathhelp.Round(tp.XSize()/float64(tp.matrixWidth(zoom)), Round), nil
}

// TileYSize returns the height of a tile in CRS units.
//
// Deprecated: use Tile.YSize().
func (tp *TilePyramid) TileYSize(zoom int) (float64, error) {
	deprecated("tile_y_size is deprecated", zap.Int("zoom", zoom))
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	return mathhelp.Round(tp.YSize()/float64(tp.matrixHeight(zoom)), Round), nil
}

// TileWidth returns the width of a tile in pixels.
//
// Deprecated: use Tile.Width().
func (tp *TilePyramid) TileWidth(zoom int) (int, error) {
	deprecated("tile_width is deprecated", zap.Int("zoom", zoom))
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	matrixPixels := (1 << zoom) * tp.tileSize * tp.grid.shape.Width
	return mathhelp.Min(matrixPixels, tp.MetatileSize()), nil
}

// TileHeight returns the height of a tile in pixels.
//
// Deprecated: use Tile.Height().
func (tp *TilePyramid) TileHeight(zoom int) (int, error) {
	deprecated("tile_height is deprecated", zap.Int("zoom", zoom))
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	matrixPixels := (1 << zoom) * tp.tileSize * tp.grid.shape.Height
	return mathhelp.Min(matrixPixels, tp.MetatileSize()), nil
}

// SRID returns the EPSG code of the grid CRS.
//
// Deprecated: use CRS().EPSG().
func (g GridDefinition) SRID() (int, bool) {
	deprecated("'srid' attribute is deprecated", zap.String("use", "CRS().EPSG()"))
	return g.crs.EPSG()
}

// SRID returns the EPSG code of the tile's CRS.
//
// Deprecated: use CRS().EPSG().
func (t Tile) SRID() (int, bool) {
	deprecated("'srid' attribute is deprecated", zap.String("use", "CRS().EPSG()"))
	return t.tp.grid.crs.EPSG()
}

// NewMetaTilePyramid returns a pyramid on the same grid with the given metatiling.
//
// Deprecated: use NewTilePyramid with WithMetatiling.
func NewMetaTilePyramid(tp *TilePyramid, metatiles int) (*TilePyramid, error) {
	deprecated("MetaTilePyramid is deprecated", zap.String("use", "NewTilePyramid(grid, WithMetatiling(n))"))
	return NewTilePyramid(tp.grid, WithTileSize(tp.tileSize), WithMetatiling(metatiles))
}
