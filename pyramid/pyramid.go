// Package pyramid indexes a planar grid into tile pyramids: per zoom level a matrix of
// (meta)tiles addressed by row and column, and the queries that map points, bounds and
// geometries onto those tiles, including wrapping around the antimeridian on global grids.
package pyramid

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/pdok/tilematrix/crs"
	"github.com/pdok/tilematrix/mathhelp"
)

const (
	DefaultTileSize   = 256
	DefaultMetatiling = 1
	maxMetatilingExp  = 9
)

// MetatilingOptions lists the supported metatiling factors.
func MetatilingOptions() []int {
	opts := make([]int, 0, maxMetatilingExp+1)
	for e := uint(0); e <= maxMetatilingExp; e++ {
		opts = append(opts, int(mathhelp.Pow2(e)))
	}
	return opts
}

// TilePyramid is an immutable grid plus tile size (pixels per tile side) and
// metatiling (tiles per metatile side).
type TilePyramid struct {
	grid       GridDefinition
	tileSize   int
	metatiling int
}

type Option func(*TilePyramid)

func WithTileSize(tileSize int) Option {
	return func(tp *TilePyramid) {
		tp.tileSize = tileSize
	}
}

func WithMetatiling(metatiling int) Option {
	return func(tp *TilePyramid) {
		tp.metatiling = metatiling
	}
}

func NewTilePyramid(spec GridSpec, opts ...Option) (*TilePyramid, error) {
	grid, err := NewGridDefinition(spec)
	if err != nil {
		return nil, err
	}
	tp := &TilePyramid{
		grid:       grid,
		tileSize:   DefaultTileSize,
		metatiling: DefaultMetatiling,
	}
	for _, opt := range opts {
		opt(tp)
	}
	if tp.tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile_size must be positive, got %d", ErrConfiguration, tp.tileSize)
	}
	validMetatiling := false
	for _, m := range MetatilingOptions() {
		if tp.metatiling == m {
			validMetatiling = true
		}
	}
	if !validMetatiling {
		return nil, fmt.Errorf("%w: metatiling must be one of %v", ErrConfiguration, MetatilingOptions())
	}
	return tp, nil
}

func MustNewTilePyramid(spec GridSpec, opts ...Option) *TilePyramid {
	tp, err := NewTilePyramid(spec, opts...)
	if err != nil {
		panic(err)
	}
	return tp
}

// maxExactZoom keeps 2^zoom, and so tile counts, exact in a float64.
const maxExactZoom = 53

func ValidateZoom(zoom int) error {
	if zoom < 0 {
		return fmt.Errorf("%w: zoom must be greater or equal 0, got %d", ErrOutOfRange, zoom)
	}
	if zoom > maxExactZoom {
		return fmt.Errorf("%w: zoom must be lower or equal %d, got %d", ErrOutOfRange, maxExactZoom, zoom)
	}
	return nil
}

// MaxZoom is the deepest zoom level at which the matrix dimensions of the pyramid
// are still exact integers.
func (tp *TilePyramid) MaxZoom() int {
	largest := mathhelp.Max(tp.grid.shape.Width, tp.grid.shape.Height)
	return maxExactZoom - bits.Len(uint(largest-1))
}

// ValidateZoom is the package level ValidateZoom, also rejecting zoom levels beyond MaxZoom.
func (tp *TilePyramid) ValidateZoom(zoom int) error {
	if err := ValidateZoom(zoom); err != nil {
		return err
	}
	if maxZoom := tp.MaxZoom(); zoom > maxZoom {
		return fmt.Errorf("%w: zoom must be lower or equal %d for this grid, got %d", ErrOutOfRange, maxZoom, zoom)
	}
	return nil
}

func (tp *TilePyramid) Grid() GridDefinition {
	return tp.grid
}

func (tp *TilePyramid) Bounds() Bounds {
	return tp.grid.bounds
}

func (tp *TilePyramid) CRS() crs.CRS {
	return tp.grid.crs
}

func (tp *TilePyramid) IsGlobal() bool {
	return tp.grid.isGlobal
}

func (tp *TilePyramid) TileSize() int {
	return tp.tileSize
}

func (tp *TilePyramid) Metatiling() int {
	return tp.metatiling
}

// MetatileSize is the side of a metatile in pixels.
func (tp *TilePyramid) MetatileSize() int {
	return tp.tileSize * tp.metatiling
}

// XSize is the grid width in CRS units.
func (tp *TilePyramid) XSize() float64 {
	return mathhelp.Round(tp.grid.bounds.Right-tp.grid.bounds.Left, Round)
}

// YSize is the grid height in CRS units.
func (tp *TilePyramid) YSize() float64 {
	return mathhelp.Round(tp.grid.bounds.Top-tp.grid.bounds.Bottom, Round)
}

// MatrixWidth is the number of (meta)tile columns at the zoom level.
func (tp *TilePyramid) MatrixWidth(zoom int) (int, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	return tp.matrixWidth(zoom), nil
}

// MatrixHeight is the number of (meta)tile rows at the zoom level.
func (tp *TilePyramid) MatrixHeight(zoom int) (int, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	return tp.matrixHeight(zoom), nil
}

// PixelXSize is the width of a pixel in CRS units at the zoom level.
func (tp *TilePyramid) PixelXSize(zoom int) (float64, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	return tp.pixelXSize(zoom), nil
}

// PixelYSize is the height of a pixel in CRS units at the zoom level.
func (tp *TilePyramid) PixelYSize(zoom int) (float64, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return 0, err
	}
	return tp.pixelYSize(zoom), nil
}

func (tp *TilePyramid) matrixWidth(zoom int) int {
	return matrixDim(tp.grid.shape.Width, zoom, tp.metatiling)
}

func (tp *TilePyramid) matrixHeight(zoom int) int {
	return matrixDim(tp.grid.shape.Height, zoom, tp.metatiling)
}

func matrixDim(shapeDim int, zoom int, metatiling int) int {
	dim := int(math.Ceil(float64(shapeDim) * mathhelp.Pow2F(zoom) / float64(metatiling)))
	return mathhelp.Max(dim, 1)
}

func (tp *TilePyramid) pixelXSize(zoom int) float64 {
	b := tp.grid.bounds
	return mathhelp.Round((b.Right-b.Left)/(float64(tp.grid.shape.Width)*mathhelp.Pow2F(zoom)*float64(tp.tileSize)), Round)
}

func (tp *TilePyramid) pixelYSize(zoom int) float64 {
	b := tp.grid.bounds
	return mathhelp.Round((b.Top-b.Bottom)/(float64(tp.grid.shape.Height)*mathhelp.Pow2F(zoom)*float64(tp.tileSize)), Round)
}

// tileXSize is the width of a metatile in CRS units.
func (tp *TilePyramid) tileXSize(zoom int) float64 {
	return mathhelp.Round(tp.metatileSpan(tp.pixelXSize(zoom)), Round)
}

// tileYSize is the height of a metatile in CRS units.
func (tp *TilePyramid) tileYSize(zoom int) float64 {
	return mathhelp.Round(tp.metatileSpan(tp.pixelYSize(zoom)), Round)
}

func (tp *TilePyramid) metatileSpan(pixelSize float64) float64 {
	return pixelSize * float64(tp.tileSize) * float64(tp.metatiling)
}

// Tile returns the tile at the given index.
func (tp *TilePyramid) Tile(zoom, row, col int) (Tile, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return Tile{}, err
	}
	if row < 0 || col < 0 {
		return Tile{}, fmt.Errorf("%w: col and row must be integers >= 0", ErrOutOfRange)
	}
	if cols := tp.matrixWidth(zoom); col >= cols {
		return Tile{}, fmt.Errorf("%w: col (%d) exceeds matrix width (%d)", ErrOutOfRange, col, cols)
	}
	if rows := tp.matrixHeight(zoom); row >= rows {
		return Tile{}, fmt.Errorf("%w: row (%d) exceeds matrix height (%d)", ErrOutOfRange, row, rows)
	}
	return newTile(tp, TileIndex{Zoom: zoom, Row: row, Col: col}), nil
}

func (tp *TilePyramid) MustTile(zoom, row, col int) Tile {
	t, err := tp.Tile(zoom, row, col)
	if err != nil {
		panic(err)
	}
	return t
}

// Equal compares grid, tile size and metatiling.
func (tp *TilePyramid) Equal(other *TilePyramid) bool {
	if tp == other {
		return true
	}
	if tp == nil || other == nil {
		return false
	}
	return tp.grid.Equal(other.grid) && tp.tileSize == other.tileSize && tp.metatiling == other.metatiling
}

func (tp *TilePyramid) String() string {
	return fmt.Sprintf("TilePyramid(%s, tile_size=%d, metatiling=%d)", tp.grid, tp.tileSize, tp.metatiling)
}
