package pyramid

import (
	"fmt"
	"maps"
	"sync"

	"github.com/pdok/tilematrix/crs"
	"github.com/pdok/tilematrix/mapslicehelp"
	"github.com/pdok/tilematrix/utm"
)

const (
	Geodetic = "geodetic"
	Mercator = "mercator"

	mercatorExtent = 20037508.3427892
)

var (
	presets     map[string]GridDefinition
	presetsOnce sync.Once
)

// Presets returns a copy of the registered grids by name.
func Presets() map[string]GridDefinition {
	presetsOnce.Do(func() {
		presets = buildPresets()
	})
	return maps.Clone(presets)
}

func PresetNames() []string {
	return mapslicehelp.SortedKeys(Presets())
}

func buildPresets() map[string]GridDefinition {
	specs := map[string]CustomGrid{
		Geodetic: {
			Shape:    Shape{Height: 1, Width: 2},
			Bounds:   Bounds{Left: -180, Bottom: -90, Right: 180, Top: 90},
			SRS:      crs.SRS{EPSG: 4326},
			IsGlobal: true,
		},
		Mercator: {
			Shape:    Shape{Height: 1, Width: 1},
			Bounds:   Bounds{Left: -mercatorExtent, Bottom: -mercatorExtent, Right: mercatorExtent, Top: mercatorExtent},
			SRS:      crs.SRS{EPSG: 3857},
			IsGlobal: true,
		},
	}
	for _, stripe := range utm.Stripes() {
		specs[stripe.PresetName()] = CustomGrid{
			Shape: Shape{Height: utm.PresetHeight, Width: utm.PresetWidth},
			Bounds: Bounds{
				Left:   utm.PresetBounds[0],
				Bottom: utm.PresetBounds[1],
				Right:  utm.PresetBounds[2],
				Top:    utm.PresetBounds[3],
			},
			SRS: crs.SRS{EPSG: stripe.EPSG()},
		}
	}

	result := make(map[string]GridDefinition, len(specs))
	for name, spec := range specs {
		g, err := newCustomGrid(name, spec)
		if err != nil {
			panic(fmt.Errorf("invalid preset grid %s: %w", name, err))
		}
		result[name] = g
	}
	return result
}
