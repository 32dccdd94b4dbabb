package pyramid

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/pdok/tilematrix/geomhelp"
)

// boundsQuery is a tile range, optionally restricted to the tiles touching one of parts.
type boundsQuery struct {
	rng   tileRange
	parts []Bounds
}

func (q boundsQuery) tiles() *TileIterator {
	if q.parts == nil {
		return q.rng.tiles()
	}
	return q.rng.tiles().filter(q.intersectsParts)
}

func (q boundsQuery) batches(by BatchBy) *BatchIterator {
	if q.parts == nil {
		return q.rng.batches(by)
	}
	return q.rng.batches(by).filter(q.intersectsParts)
}

func (q boundsQuery) intersectsParts(t Tile) bool {
	tileBound := t.Bounds(0).Bound()
	for _, part := range q.parts {
		if part.Bound().Intersects(tileBound) {
			return true
		}
	}
	return false
}

// boundsQuery resolves bounds to tiles. On global grids the bounds are clamped to
// the top and bottom of the pyramid and everything beyond the left or right edge
// is wrapped to the other side.
func (tp *TilePyramid) boundsQuery(b Bounds, zoom int) (boundsQuery, error) {
	if err := tp.ValidateZoom(zoom); err != nil {
		return boundsQuery{}, err
	}
	if !tp.grid.isGlobal {
		rng, err := tp.cleanedBoundsRange(b, zoom)
		return boundsQuery{rng: rng}, err
	}

	pb := tp.grid.bounds
	b.Top = math.Min(b.Top, pb.Top)
	b.Bottom = math.Max(b.Bottom, pb.Bottom)
	if b.Left < pb.Left || b.Right > pb.Right {
		width := pb.Right - pb.Left
		var spans [][2]float64
		if b.Left < pb.Left {
			spans = append(spans,
				[2]float64{b.Left + width, pb.Right},
				[2]float64{pb.Left, math.Min(b.Right, pb.Right)})
		}
		if b.Right > pb.Right {
			spans = append(spans,
				[2]float64{pb.Left, b.Right - width},
				[2]float64{math.Max(b.Left, pb.Left), pb.Right})
		}
		merged := mergeSpans(spans)
		if len(merged) > 1 {
			parts := make([]Bounds, len(merged))
			for i, s := range merged {
				parts[i] = Bounds{Left: s[0], Bottom: b.Bottom, Right: s[1], Top: b.Top}
			}
			envelope := Bounds{Left: merged[0][0], Bottom: b.Bottom, Right: merged[len(merged)-1][1], Top: b.Top}
			rng, err := tp.cleanedBoundsRange(envelope, zoom)
			return boundsQuery{rng: rng, parts: parts}, err
		}
		b.Left, b.Right = merged[0][0], merged[0][1]
	}
	rng, err := tp.cleanedBoundsRange(b, zoom)
	return boundsQuery{rng: rng}, err
}

// mergeSpans unions horizontal intervals. Touching intervals merge.
func mergeSpans(spans [][2]float64) [][2]float64 {
	normalized := make([][2]float64, len(spans))
	for i, s := range spans {
		normalized[i] = [2]float64{math.Min(s[0], s[1]), math.Max(s[0], s[1])}
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i][0] < normalized[j][0]
	})
	var merged [][2]float64
	for _, s := range normalized {
		if n := len(merged); n > 0 && s[0] <= merged[n-1][1] {
			merged[n-1][1] = math.Max(merged[n-1][1], s[1])
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// ClipGeometryToSRSBounds clips the geometry to the pyramid bounds. On global grids the
// parts beyond the left or right edge are shifted by the pyramid width to the other
// side and returned together with the inside part as a collection.
func ClipGeometryToSRSBounds(g orb.Geometry, tp *TilePyramid) (orb.Geometry, error) {
	parts, err := ClipGeometryToSRSBoundsMultipart(g, tp)
	if err != nil {
		return nil, err
	}
	if !tp.needsSplit(g) {
		return g, nil
	}
	return orb.Collection(parts), nil
}

// ClipGeometryToSRSBoundsMultipart is ClipGeometryToSRSBounds returning the parts separately.
func ClipGeometryToSRSBoundsMultipart(g orb.Geometry, tp *TilePyramid) ([]orb.Geometry, error) {
	if err := geomhelp.Validate(g); err != nil {
		return nil, fmt.Errorf("%w: invalid geometry given: %w", ErrGeometry, err)
	}
	if !tp.needsSplit(g) {
		return []orb.Geometry{g}, nil
	}
	return tp.clipToSRSBounds(geomhelp.CloseRings(g))
}

func (tp *TilePyramid) needsSplit(g orb.Geometry) bool {
	pb := tp.grid.bounds.Bound()
	gb := g.Bound()
	return tp.grid.isGlobal && !(pb.Contains(gb.Min) && pb.Contains(gb.Max))
}

// wrapOffsets returns the horizontal shifts under which a tile bound is compared with a
// geometry that crosses the left or right edge of a global pyramid. Shifting the tile by
// minus the pyramid width finds the part beyond the left edge, and vice versa.
func (tp *TilePyramid) wrapOffsets(g orb.Geometry) []float64 {
	offsets := []float64{0}
	if !tp.needsSplit(g) {
		return offsets
	}
	pb := tp.grid.bounds.Bound()
	gb := g.Bound()
	width := pb.Max[0] - pb.Min[0]
	if gb.Min[0] < pb.Min[0] {
		offsets = append(offsets, -width)
	}
	if gb.Max[0] > pb.Max[0] {
		offsets = append(offsets, width)
	}
	return offsets
}

func shiftedBounds(b orb.Bound, offsets []float64) []orb.Bound {
	shifted := make([]orb.Bound, len(offsets))
	for i, dx := range offsets {
		shifted[i] = orb.Bound{Min: orb.Point{b.Min[0] + dx, b.Min[1]}, Max: orb.Point{b.Max[0] + dx, b.Max[1]}}
	}
	return shifted
}

func (tp *TilePyramid) clipToSRSBounds(g orb.Geometry) ([]orb.Geometry, error) {
	if !tp.needsSplit(g) {
		return []orb.Geometry{g}, nil
	}
	pb := tp.grid.bounds.Bound()
	gb := g.Bound()
	width := pb.Max[0] - pb.Min[0]
	var parts []orb.Geometry
	if inside := geomhelp.Clip(g, pb); inside != nil {
		parts = append(parts, inside)
	}
	west := orb.Bound{Min: orb.Point{pb.Min[0] - width, pb.Min[1]}, Max: orb.Point{pb.Min[0], pb.Max[1]}}
	if gb.Min[0] < pb.Min[0] {
		if part := geomhelp.Clip(g, west); part != nil {
			parts = append(parts, geomhelp.Translate(part, width))
		}
	}
	east := orb.Bound{Min: orb.Point{pb.Max[0], pb.Min[1]}, Max: orb.Point{pb.Max[0] + width, pb.Max[1]}}
	if gb.Max[0] > pb.Max[0] {
		if part := geomhelp.Clip(g, east); part != nil {
			parts = append(parts, geomhelp.Translate(part, -width))
		}
	}
	return parts, nil
}
