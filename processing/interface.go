package processing

import (
	"github.com/paulmach/orb"

	"github.com/pdok/tilematrix/pyramid"
)

type Feature interface {
	ID() interface{}
	Geometry() orb.Geometry
}

// FeatureForTile is a feature paired with one of the tiles its geometry intersects.
type FeatureForTile interface {
	Feature
	Tile() pyramid.Tile
}

type Source interface {
	ReadFeatures(chan<- Feature)
}

type Target interface {
	WriteFeatures(<-chan FeatureForTile)
}
