package pyramid

import (
	"encoding/json"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
	"go.uber.org/zap"

	"github.com/pdok/tilematrix/crs"
)

// Record is the persisted form of a TilePyramid.
//
//	{"grid": {...}, "metatiling": 1, "tile_size": 256}
//
// The grid is either a preset name or a GridRecord object.
type Record struct {
	Grid       GridRecord `validate:"required" json:"-"`
	Metatiling int        `validate:"required,oneof=1 2 4 8 16 32 64 128 256 512" json:"metatiling" default:"1"`
	TileSize   int        `validate:"required,min=1" json:"tile_size" default:"256"`
}

// GridRecord is the persisted form of a GridDefinition. A record holding only a Type names a preset.
type GridRecord struct {
	Bounds   []float64 `validate:"omitempty,len=4" json:"bounds,omitempty"`
	IsGlobal bool      `json:"is_global"`
	Shape    []int     `validate:"omitempty,len=2,dive,min=1" json:"shape,omitempty"`
	SRS      crs.SRS   `json:"-"`
	Type     string    `json:"type,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record // drops the methods, avoiding recursion
	var grid interface{} = r.Grid
	if r.Grid.presetOnly() {
		grid = r.Grid.Type
	}
	return json.Marshal(struct {
		SpecialGrid interface{} `json:"grid"`
		plain
	}{
		SpecialGrid: grid,
		plain:       plain(r),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	err := defaults.Set(r)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, r, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	rawGrid, ok := specials["grid"]
	if !ok {
		// older configurations named the grid "type"
		rawGrid, ok = specials["type"]
		if !ok {
			return fmt.Errorf(`%w: missing key "grid"`, ErrConfiguration)
		}
		deprecated("'type' is deprecated and should be 'grid'")
	}
	if err = r.Grid.UnmarshalJSONFromMap(rawGrid); err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(r)
}

func (g GridRecord) MarshalJSON() ([]byte, error) {
	type plain GridRecord
	var srs *crs.SRS
	if !g.SRS.IsZero() {
		srs = &g.SRS
	}
	return json.Marshal(struct {
		plain
		SpecialSRS *crs.SRS `json:"srs,omitempty"`
	}{
		plain:      plain(g),
		SpecialSRS: srs,
	})
}

func (g *GridRecord) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return g.UnmarshalJSONFromMap(raw)
}

// UnmarshalJSONFromMap accepts a preset name or an object.
func (g *GridRecord) UnmarshalJSONFromMap(data interface{}) error {
	*g = GridRecord{}
	if name, ok := data.(string); ok {
		g.Type = name
		return nil
	}
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`%w: grid is neither a name nor an object but a %T`, ErrConfiguration, data)
	}

	specials, err := marshmallow.UnmarshalFromJSONMap(dataMap, g, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}
	if name, ok := specials["grid"].(string); ok && g.Type == "" {
		g.Type = name
	}
	if rawSRS, ok := specials["srs"]; ok {
		srsMap, ok := rawSRS.(map[string]interface{})
		if !ok {
			return fmt.Errorf(`%w: 'srs' must be an object`, ErrConfiguration)
		}
		if _, err = marshmallow.UnmarshalFromJSONMap(srsMap, &g.SRS); err != nil {
			return err
		}
	}
	for _, legacy := range []string{"epsg", "proj"} {
		value, ok := specials[legacy]
		if !ok {
			continue
		}
		deprecated(fmt.Sprintf("'%s' should be packed into an object and passed to 'srs'", legacy),
			zap.Any(legacy, value))
		if !g.SRS.IsZero() {
			continue
		}
		if _, err = marshmallow.UnmarshalFromJSONMap(map[string]interface{}{legacy: value}, &g.SRS); err != nil {
			return err
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(g)
}

func (g GridRecord) presetOnly() bool {
	return g.Type != "" && g.Bounds == nil && g.Shape == nil && g.SRS.IsZero() && !g.IsGlobal
}

// ToRecord returns the persisted form. The CRS is written as WKT when available.
func (tp *TilePyramid) ToRecord() Record {
	return Record{
		Grid:       tp.grid.ToRecord(),
		Metatiling: tp.metatiling,
		TileSize:   tp.tileSize,
	}
}

func (g GridDefinition) ToRecord() GridRecord {
	return GridRecord{
		Bounds:   g.bounds.Slice(),
		IsGlobal: g.isGlobal,
		Shape:    g.shape.Slice(),
		SRS:      g.crs.SRS(),
		Type:     g.typ,
	}
}

func TilePyramidFromRecord(r Record) (*TilePyramid, error) {
	grid, err := GridDefinitionFromRecord(r.Grid)
	if err != nil {
		return nil, err
	}
	tileSize := r.TileSize
	if tileSize == 0 {
		tileSize = DefaultTileSize
	}
	metatiling := r.Metatiling
	if metatiling == 0 {
		metatiling = DefaultMetatiling
	}
	return NewTilePyramid(grid, WithTileSize(tileSize), WithMetatiling(metatiling))
}

// GridDefinitionFromRecord builds a preset when the record only names one, else a custom grid.
func GridDefinitionFromRecord(r GridRecord) (GridDefinition, error) {
	if r.presetOnly() || (r.Type != "" && r.Type != CustomType && r.Bounds == nil && r.Shape == nil) {
		return NewGridDefinition(Preset(r.Type))
	}
	if r.Shape == nil || r.Bounds == nil {
		return GridDefinition{}, fmt.Errorf("%w: custom grid needs 'shape' and 'bounds'", ErrConfiguration)
	}
	shape, err := ShapeFromSlice(r.Shape)
	if err != nil {
		return GridDefinition{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	bounds, err := BoundsFromSlice(r.Bounds)
	if err != nil {
		return GridDefinition{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return NewGridDefinition(CustomGrid{
		Shape:    shape,
		Bounds:   bounds,
		SRS:      r.SRS,
		IsGlobal: r.IsGlobal,
	})
}
