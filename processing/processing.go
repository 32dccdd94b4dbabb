// Package processing takes care of the logistics around resolving the tiles of a stream of features:
// reading from a Source, resolving per zoom level and writing to a Target per zoom level.
package processing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/pdok/tilematrix/pyramid"
)

// readFeaturesFromSource reads the features from the given Source.
// The source is expected to close the channel.
func readFeaturesFromSource(source Source, features chan<- Feature) {
	source.ReadFeatures(features)
}

// resolveFeatures resolves the tiles of every feature on every zoom level.
// Features with an invalid geometry are skipped; their errors are joined into the result.
func resolveFeatures(featuresIn <-chan Feature, featuresOut chan<- FeatureForTile, tp *pyramid.TilePyramid, zooms []int, exact bool) error {
	var errs []error
	var preCount, skippedCount, tileCount uint64
	for feature := range featuresIn {
		preCount++
		tilesPerZoom := make([][]pyramid.Tile, 0, len(zooms))
		var err error
		for _, zoom := range zooms {
			var it *pyramid.TileIterator
			it, err = tp.TilesFromGeom(feature.Geometry(), zoom, exact)
			if err != nil {
				break
			}
			tilesPerZoom = append(tilesPerZoom, it.Collect())
		}
		if err != nil {
			skippedCount++
			errs = append(errs, fmt.Errorf("feature %v: %w", feature.ID(), err))
			continue
		}
		for _, tiles := range tilesPerZoom {
			for _, tile := range tiles {
				tileCount++
				featuresOut <- wrapFeatureForTile(feature, tile)
			}
		}
	}
	close(featuresOut)

	zap.L().Info("resolved features",
		zap.Uint64("features", preCount),
		zap.Uint64("skipped", skippedCount),
		zap.Uint64("tiles", tileCount))
	return errors.Join(errs...)
}

// writeFeaturesToTargets distributes the resolved features over the targets by zoom level.
func writeFeaturesToTargets(featuresForTiles <-chan FeatureForTile, targets map[int]Target) {
	targetChannels := make(map[int]chan<- FeatureForTile)
	wg := sync.WaitGroup{}

	// create a channel and start a goroutine per zoom level target
	for zoom, target := range targets {
		targetChannel := make(chan FeatureForTile)
		targetChannels[zoom] = targetChannel
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()
			target.WriteFeatures(targetChannel)
		}(target)
	}

	for feature := range featuresForTiles {
		targetChannels[feature.Tile().Zoom()] <- feature
	}

	// close the channels, the targets will do their last writing
	for _, targetChannel := range targetChannels {
		close(targetChannel)
	}

	wg.Wait()
}

// ResolveTiles streams every feature of the source, paired with each tile it intersects,
// to the target of the tile's zoom level. It returns once all targets are done.
func ResolveTiles(source Source, tp *pyramid.TilePyramid, targets map[int]Target, exact bool) error {
	zooms := make([]int, 0, len(targets))
	for zoom := range targets {
		if err := tp.ValidateZoom(zoom); err != nil {
			return err
		}
		zooms = append(zooms, zoom)
	}

	featuresBefore := make(chan Feature)
	featuresAfter := make(chan FeatureForTile)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeFeaturesToTargets(featuresAfter, targets)
	}()
	var resolveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		resolveErr = resolveFeatures(featuresBefore, featuresAfter, tp, zooms, exact)
	}()
	go readFeaturesFromSource(source, featuresBefore)

	wg.Wait()
	return resolveErr
}

type featureForTileWrapper struct {
	wrapped Feature
	tile    pyramid.Tile
}

func (f *featureForTileWrapper) ID() interface{} {
	return f.wrapped.ID()
}

func (f *featureForTileWrapper) Geometry() orb.Geometry {
	return f.wrapped.Geometry()
}

func (f *featureForTileWrapper) Tile() pyramid.Tile {
	return f.tile
}

func wrapFeatureForTile(feature Feature, tile pyramid.Tile) FeatureForTile {
	return &featureForTileWrapper{
		wrapped: feature,
		tile:    tile,
	}
}
