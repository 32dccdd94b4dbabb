package pyramid

// TileIterator streams tiles. It is single use and not safe for concurrent use.
//
//	for it.Next() {
//		tile := it.Tile()
//	}
type TileIterator struct {
	next    func() (Tile, bool)
	current Tile
}

func newTileIterator(next func() (Tile, bool)) *TileIterator {
	return &TileIterator{next: next}
}

func emptyTileIterator() *TileIterator {
	return newTileIterator(func() (Tile, bool) { return Tile{}, false })
}

func sliceTileIterator(tiles []Tile) *TileIterator {
	i := 0
	return newTileIterator(func() (Tile, bool) {
		if i >= len(tiles) {
			return Tile{}, false
		}
		i++
		return tiles[i-1], true
	})
}

// filter returns an iterator over the tiles for which keep returns true.
func (it *TileIterator) filter(keep func(Tile) bool) *TileIterator {
	return newTileIterator(func() (Tile, bool) {
		for it.Next() {
			if keep(it.current) {
				return it.current, true
			}
		}
		return Tile{}, false
	})
}

// Next advances to the next tile and reports whether there is one.
func (it *TileIterator) Next() bool {
	if it.next == nil {
		return false
	}
	t, ok := it.next()
	if !ok {
		it.next = nil
		return false
	}
	it.current = t
	return true
}

// Tile returns the current tile.
func (it *TileIterator) Tile() Tile {
	return it.current
}

// Collect drains the iterator.
func (it *TileIterator) Collect() []Tile {
	var tiles []Tile
	for it.Next() {
		tiles = append(tiles, it.current)
	}
	return tiles
}

// BatchIterator streams batches of tiles, one per matrix row or column.
type BatchIterator struct {
	next    func() (*TileIterator, bool)
	current *TileIterator
}

func newBatchIterator(next func() (*TileIterator, bool)) *BatchIterator {
	return &BatchIterator{next: next}
}

func sliceBatchIterator(batches [][]Tile) *BatchIterator {
	i := 0
	return newBatchIterator(func() (*TileIterator, bool) {
		if i >= len(batches) {
			return nil, false
		}
		i++
		return sliceTileIterator(batches[i-1]), true
	})
}

// filter applies keep to the tiles of every batch. Batches are kept even when they end up empty.
func (it *BatchIterator) filter(keep func(Tile) bool) *BatchIterator {
	return newBatchIterator(func() (*TileIterator, bool) {
		if !it.Next() {
			return nil, false
		}
		return it.current.filter(keep), true
	})
}

func (it *BatchIterator) Next() bool {
	if it.next == nil {
		return false
	}
	b, ok := it.next()
	if !ok {
		it.next = nil
		return false
	}
	it.current = b
	return true
}

// Batch returns the current batch.
func (it *BatchIterator) Batch() *TileIterator {
	return it.current
}

// Collect drains the iterator, batch by batch.
func (it *BatchIterator) Collect() [][]Tile {
	var batches [][]Tile
	for it.Next() {
		batches = append(batches, it.current.Collect())
	}
	return batches
}
