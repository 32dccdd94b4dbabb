package pyramid

import "errors"

var (
	// ErrConfiguration signals an invalid grid or pyramid definition.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrOutOfRange signals an argument outside of its domain: a negative zoom, a tile
	// outside the matrix, a point outside the grid, an unknown option.
	ErrOutOfRange = errors.New("out of range")
	// ErrGeometry signals an invalid input geometry.
	ErrGeometry = errors.New("invalid geometry")
	// ErrCrossGrid signals an operation between pyramids on different grids.
	ErrCrossGrid = errors.New("different grids")
)
