package processing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

type feature struct {
	id       interface{}
	geometry orb.Geometry
}

func (f feature) ID() interface{} {
	return f.id
}

func (f feature) Geometry() orb.Geometry {
	return f.geometry
}

// GeometrySource is a Source over geometries parsed up front.
type GeometrySource struct {
	features []Feature
}

// ParseGeometries reads a GeoJSON FeatureCollection, Feature or Geometry, or a WKT geometry.
// Features without an id are numbered from 0 in order of appearance.
func ParseGeometries(data []byte) (*GeometrySource, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no geometry given")
	}
	if trimmed[0] != '{' {
		g, err := wkt.Unmarshal(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("invalid WKT: %w", err)
		}
		return NewGeometrySource(g), nil
	}

	var typed struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &typed); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}
	switch typed.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON: %w", err)
		}
		source := &GeometrySource{features: make([]Feature, 0, len(fc.Features))}
		for i, f := range fc.Features {
			source.features = append(source.features, feature{id: featureID(f.ID, i), geometry: f.Geometry})
		}
		return source, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON: %w", err)
		}
		return &GeometrySource{features: []Feature{feature{id: featureID(f.ID, 0), geometry: f.Geometry}}}, nil
	}
	g, err := geojson.UnmarshalGeometry(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}
	return NewGeometrySource(g.Geometry()), nil
}

// NewGeometrySource numbers the geometries from 0.
func NewGeometrySource(geometries ...orb.Geometry) *GeometrySource {
	source := &GeometrySource{features: make([]Feature, 0, len(geometries))}
	for i, g := range geometries {
		source.features = append(source.features, feature{id: i, geometry: g})
	}
	return source
}

func featureID(id interface{}, index int) interface{} {
	if id == nil {
		return index
	}
	return id
}

func (s *GeometrySource) ReadFeatures(features chan<- Feature) {
	for _, f := range s.features {
		features <- f
	}
	close(features)
}

func (s *GeometrySource) Len() int {
	return len(s.features)
}
