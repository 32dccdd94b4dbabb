package pyramid

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapBounds(t *testing.T) {
	tp := geodetic(t)
	bounds := Bounds{Left: 0, Bottom: 1, Right: 2, Top: 3}
	for _, pixelbuffer := range []uint{0, 10} {
		it, err := tp.TilesFromBounds(bounds, 8)
		require.NoError(t, err)
		tiles := it.Collect()
		require.NotEmpty(t, tiles)
		union := tiles[0].Bounds(pixelbuffer).Bound()
		for _, tile := range tiles[1:] {
			union = union.Union(tile.Bounds(pixelbuffer).Bound())
		}

		snapped, err := SnapBounds(bounds, tp, 8, pixelbuffer)
		require.NoError(t, err)
		assert.Equal(t, BoundsFromOrb(union), snapped)

		polygon, err := SnapBBox(bounds, tp, 8, pixelbuffer)
		require.NoError(t, err)
		assert.True(t, orb.Equal(snapped.Polygon(), polygon))
	}

	_, err := SnapBounds(bounds, tp, -1, 0)
	require.ErrorIs(t, err, ErrOutOfRange)
}
