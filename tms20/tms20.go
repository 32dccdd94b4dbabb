// Package tms20 implements the OGC Tile Matrix Set standard (v2.0) as an export format of a TilePyramid
// See https://www.ogc.org/standard/tms/
package tms20

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/tilematrix/crs"
	"github.com/pdok/tilematrix/mathhelp"
	"github.com/pdok/tilematrix/pyramid"
)

const (
	// StandardPixelSize is the 0.28mm rendering pixel the OGC scale denominators are based on.
	StandardPixelSize = 0.00028

	crs84URI   = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"
	epsgURIFmt = "http://www.opengis.net/def/crs/EPSG/0/%d"
)

// TileMatrixSet is a definition of a tile matrix set following the Tile Matrix Set standard.
type TileMatrixSet struct {
	// Tile matrix set identifier. Implementation of 'identifier'
	ID string `json:"id,omitempty"`
	// Title of this tile matrix set, normally used for display to a human
	Title string `json:"title,omitempty"`
	// Brief narrative description of this tile matrix set, normally available for display to a human
	Description string `json:"description,omitempty"`
	// Unordered list of one or more commonly used or formalized word(s) or phrase(s) used to describe this tile matrix set
	Keywords []string `json:"keywords,omitempty"`
	// Reference to an official source for this TileMatrixSet
	URI         string   `validate:"omitempty,uri" json:"uri,omitempty"`
	OrderedAxes []string `validate:"omitnil,min=1" json:"orderedAxes,omitempty"`
	// Coordinate Reference System (CRS)
	CRS CRS `validate:"required" json:"-"`
	// Reference to a well-known scale set
	WellKnownScaleSet string `validate:"omitempty,uri" json:"wellKnownScaleSet,omitempty"`
	// Minimum bounding rectangle surrounding the tile matrix set, in the supported CRS
	BoundingBox *TwoDBoundingBox `json:"boundingBox,omitempty"`
	// Describes scale levels and its tile matrices
	TileMatrices map[int]TileMatrix `validate:"required,min=1" json:"-"`
}

// FromPyramid describes the zoom levels minZoom up to and including maxZoom of the pyramid.
// Tiles are metatiles: a tile matrix cell spans metatiling tiles in both directions.
func FromPyramid(tp *pyramid.TilePyramid, minZoom, maxZoom int) (TileMatrixSet, error) {
	if err := tp.ValidateZoom(minZoom); err != nil {
		return TileMatrixSet{}, err
	}
	if err := tp.ValidateZoom(maxZoom); err != nil {
		return TileMatrixSet{}, err
	}
	if maxZoom < minZoom {
		return TileMatrixSet{}, fmt.Errorf("%w: max zoom (%d) is smaller than min zoom (%d)", pyramid.ErrOutOfRange, maxZoom, minZoom)
	}

	tmsCRS, orderedAxes, err := crsFromPyramid(tp.CRS())
	if err != nil {
		return TileMatrixSet{}, err
	}
	metersPerUnit := tp.CRS().MetersPerUnit()
	if metersPerUnit == 0 {
		metersPerUnit = 1
	}

	b := tp.Bounds()
	tms := TileMatrixSet{
		ID:          tp.Grid().Type(),
		Title:       tp.String(),
		OrderedAxes: orderedAxes,
		CRS:         tmsCRS,
		BoundingBox: &TwoDBoundingBox{
			LowerLeft:  TwoDPoint{b.Left, b.Bottom},
			UpperRight: TwoDPoint{b.Right, b.Top},
			CRS:        tmsCRS,
		},
		TileMatrices: make(map[int]TileMatrix, maxZoom-minZoom+1),
	}
	for zoom := minZoom; zoom <= maxZoom; zoom++ {
		cellSize, _ := tp.PixelXSize(zoom)
		matrixWidth, _ := tp.MatrixWidth(zoom)
		matrixHeight, _ := tp.MatrixHeight(zoom)
		tms.TileMatrices[zoom] = TileMatrix{
			ID:               strconv.Itoa(zoom),
			ScaleDenominator: mathhelp.Round(cellSize*metersPerUnit/StandardPixelSize, pyramid.Round),
			CellSize:         cellSize,
			CornerOfOrigin:   TopLeft,
			PointOfOrigin:    TwoDPoint{b.Left, b.Top},
			TileWidth:        uint(tp.MetatileSize()),
			TileHeight:       uint(tp.MetatileSize()),
			MatrixWidth:      uint(matrixWidth),
			MatrixHeight:     uint(matrixHeight),
		}
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(&tms); err != nil {
		return TileMatrixSet{}, fmt.Errorf("%w: %w", pyramid.ErrConfiguration, err)
	}
	return tms, nil
}

// crsFromPyramid prefers a URI. WGS 84 is written as CRS84, which has the x (lon) axis first
// just like the grid bounds.
func crsFromPyramid(c crs.CRS) (CRS, []string, error) {
	if code, ok := c.EPSG(); ok {
		if code == 4326 {
			return &URICRS{uri: crs84URI, authorityName: "OGC", authorityCode: "CRS84", asString: true}, []string{"Lon", "Lat"}, nil
		}
		return &URICRS{
			description:   c.Description(),
			uri:           fmt.Sprintf(epsgURIFmt, code),
			authorityName: c.AuthorityName(),
			authorityCode: c.AuthorityCode(),
			asString:      true,
		}, []string{"E", "N"}, nil
	}
	if wkt, ok := c.WKT(); ok {
		return &WKTCRS{description: c.Description(), wkt: c, originalWKT: wkt}, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: crs %v has neither an EPSG code nor a WKT definition", pyramid.ErrConfiguration, c)
}

func (tms *TileMatrixSet) MarshalJSON() ([]byte, error) {
	var tileMatrices []*TileMatrix
	for i := range tms.TileMatrices {
		tm := tms.TileMatrices[i]
		tileMatrices = append(tileMatrices, &(tm))
	}
	sort.Slice(tileMatrices, func(i, j int) bool {
		iID, _ := strconv.ParseInt(tileMatrices[i].ID, 10, 64)
		jID, _ := strconv.ParseInt(tileMatrices[j].ID, 10, 64)
		return iID < jID
	})
	return json.Marshal(struct {
		TileMatrixSet                     // not a pointer, because it would cause recursion to this function
		SpecialCRS          CRS           `json:"crs"`
		SpecialTileMatrices []*TileMatrix `json:"tileMatrices"`
	}{
		TileMatrixSet:       *tms,
		SpecialCRS:          tms.CRS,
		SpecialTileMatrices: tileMatrices,
	})
}

func (tms *TileMatrixSet) UnmarshalJSON(data []byte) error {
	err := defaults.Set(tms)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, tms, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	// CRS
	rawCrs, ok := specials["crs"]
	if !ok {
		return fmt.Errorf(`missing key "crs"`)
	}
	tms.CRS, err = unmarshalCRS(rawCrs)
	if err != nil {
		return err
	}

	// TileMatrices
	rawTileMatrices, ok := specials["tileMatrices"]
	if !ok {
		return fmt.Errorf(`missing key "tileMatrices"`)
	}
	tms.TileMatrices, err = unmarshalTileMatrices(rawTileMatrices)
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tms)
}

func unmarshalTileMatrices(rawTileMatrices interface{}) (map[int]TileMatrix, error) {
	rawTileMatricesList, ok := rawTileMatrices.([]interface{})
	if !ok {
		return nil, fmt.Errorf(`"tileMatrices" should be an array`)
	}
	tileMatrices := make(map[int]TileMatrix, len(rawTileMatricesList))
	for _, rawTileMatrix := range rawTileMatricesList {
		rawTileMatrixMap, ok := rawTileMatrix.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf(`"tileMatrices" should be objects`)
		}
		var tileMatrix TileMatrix
		err := tileMatrix.UnmarshalJSONFromMap(rawTileMatrixMap)
		if err != nil {
			return nil, err
		}
		tileMatrixID, err := strconv.ParseInt(tileMatrix.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("only integer-like ids are supported for tile matrices: %w", err)
		}
		tileMatrices[int(tileMatrixID)] = tileMatrix
	}
	return tileMatrices, nil
}

// unmarshalCRS tries the URI and the WKT variant (oneOf)
func unmarshalCRS(rawCrs interface{}) (CRS, error) {
	var rawCrsMap map[string]interface{}
	rawCrsString, asString := rawCrs.(string)
	if asString {
		rawCrsMap = map[string]interface{}{"uri": rawCrsString}
	} else {
		var ok bool
		rawCrsMap, ok = rawCrs.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf(`wrong type key "crs": %T`, rawCrs)
		}
	}
	var errors []error

	var uriCrs URICRS
	err := uriCrs.UnmarshalJSONFromMap(rawCrsMap)
	if err == nil {
		uriCrs.asString = asString
		return &uriCrs, nil
	}
	errors = append(errors, err)

	var wktCrs WKTCRS
	err = wktCrs.UnmarshalJSONFromMap(rawCrsMap)
	if err == nil {
		return &wktCrs, nil
	}
	errors = append(errors, err)

	return nil, fmt.Errorf(`could not unmarshal crs into any CRS type. errors: %v`, errors)
}

type CRS interface {
	Description() string
	AuthorityName() string
	AuthorityCode() string
}

var (
	crsURIRegexURL = regexp.MustCompile("https?://.+/def/crs/(?P<authority>[^/]+)/[^/]+/(?P<code>[^/]+)$")
	crsURIRegexURN = regexp.MustCompile("^urn:ogc:def:crs:(?P<authority>[^:]+)::(?P<code>[^:]+)$")
)

type URICRS struct {
	description string
	// Reference to one coordinate reference system (CRS)
	uri           string `validate:"required,uri"`
	authorityName string `validate:"required"`
	authorityCode string `validate:"required"`
	// Whether it should be marshalled as just a string
	asString bool
}

func (c *URICRS) MarshalJSON() ([]byte, error) {
	if c.asString {
		return json.Marshal(c.uri)
	}
	return json.Marshal(struct {
		Description string `json:"description,omitempty"`
		URI         string `json:"uri"`
	}{
		Description: c.description,
		URI:         c.uri,
	})
}

func (c *URICRS) UnmarshalJSON(data []byte) error {
	return UnmarshalJSONMapUsingUnmarshalJSONFromMap(c, data)
}

func (c *URICRS) UnmarshalJSONFromMap(data interface{}) error {
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`data is not a map but a %T`, data)
	}

	if c.description, ok = optionalString(dataMap, "description"); !ok {
		return fmt.Errorf(`description property is not a string but a %T`, dataMap["description"])
	}

	rawURI, ok := dataMap["uri"]
	if !ok {
		return fmt.Errorf(`uri property not found`)
	}
	c.uri, ok = rawURI.(string)
	if !ok {
		return fmt.Errorf(`uri property is not a string but a %T`, rawURI)
	}

	uriParts := crsURIRegexURL.FindStringSubmatch(c.uri)
	if uriParts == nil {
		uriParts = crsURIRegexURN.FindStringSubmatch(c.uri)
	}
	if uriParts == nil {
		return fmt.Errorf(`could not parse crs uri "%v"`, c.uri)
	}
	c.authorityName = uriParts[1]
	c.authorityCode = uriParts[2]

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}

func (c *URICRS) Description() string {
	return c.description
}

func (c *URICRS) AuthorityName() string {
	return c.authorityName
}

func (c *URICRS) AuthorityCode() string {
	return c.authorityCode
}

func (c *URICRS) URI() string {
	return c.uri
}

// WKTCRS defines the CRS by a well known text. The text is either a WKT string or
// an object in the JSON encoding of WKT 2 (PROJJSON).
type WKTCRS struct {
	description string
	wkt         wktIdentifier
	originalWKT interface{}
}

type wktIdentifier interface {
	AuthorityName() string
	AuthorityCode() string
}

type ProjJSON struct {
	ID ProjJSONID `validate:"required" json:"id"`
}

func (p ProjJSON) AuthorityName() string {
	return p.ID.AuthorityName
}

func (p ProjJSON) AuthorityCode() string {
	return fmt.Sprint(p.ID.AuthorityCode)
}

type ProjJSONID struct {
	AuthorityName string      `validate:"required" json:"authority"`
	AuthorityCode interface{} `validate:"required" json:"code"` // string or number
}

func (c *WKTCRS) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Description string      `json:"description,omitempty"`
		WKT         interface{} `json:"wkt"`
	}{
		Description: c.description,
		WKT:         c.originalWKT,
	})
}

func (c *WKTCRS) UnmarshalJSON(data []byte) error {
	return UnmarshalJSONMapUsingUnmarshalJSONFromMap(c, data)
}

func (c *WKTCRS) UnmarshalJSONFromMap(data interface{}) error {
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`data is not a map but a %T`, data)
	}

	if c.description, ok = optionalString(dataMap, "description"); !ok {
		return fmt.Errorf(`description property is not a string but a %T`, dataMap["description"])
	}

	rawWKT, ok := dataMap["wkt"]
	if !ok {
		return fmt.Errorf(`wkt property not found`)
	}
	c.originalWKT = rawWKT
	switch wkt := rawWKT.(type) {
	case string:
		resolved, err := crs.FromWKT(wkt)
		if err != nil {
			return fmt.Errorf(`could not parse wkt "%v": %w`, wkt, err)
		}
		c.wkt = resolved
		if c.description == "" {
			c.description = resolved.Description()
		}
	case map[string]interface{}:
		var projJSON ProjJSON
		if _, err := marshmallow.UnmarshalFromJSONMap(wkt, &projJSON); err != nil {
			return fmt.Errorf(`could not parse wkt as ProjJSON "%v"`, wkt)
		}
		validate := validator.New(validator.WithRequiredStructEnabled())
		if err := validate.Struct(projJSON); err != nil {
			return err
		}
		c.wkt = projJSON
	default:
		return fmt.Errorf(`wkt property is not a string or an object but a %T`, rawWKT)
	}
	return nil
}

func (c *WKTCRS) Description() string {
	return c.description
}

func (c *WKTCRS) AuthorityName() string {
	return c.wkt.AuthorityName()
}

func (c *WKTCRS) AuthorityCode() string {
	return c.wkt.AuthorityCode()
}

func optionalString(dataMap map[string]interface{}, key string) (string, bool) {
	raw, ok := dataMap[key]
	if !ok {
		return "", true
	}
	s, ok := raw.(string)
	return s, ok
}

// Minimum bounding rectangle surrounding a 2D resource in the CRS indicated elsewhere
type TwoDBoundingBox struct {
	LowerLeft   TwoDPoint `json:"lowerLeft"`
	UpperRight  TwoDPoint `json:"upperRight"`
	CRS         CRS       `json:"-"`
	OrderedAxes []string  `validate:"omitempty,len=2" json:"orderedAxes,omitempty"`
}

func (bb *TwoDBoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TwoDBoundingBox     // not a pointer, because it would cause recursion to this function
		SpecialCRS      CRS `json:"crs,omitempty"`
	}{
		TwoDBoundingBox: *bb,
		SpecialCRS:      bb.CRS,
	})
}

func (bb *TwoDBoundingBox) UnmarshalJSON(data []byte) error {
	err := defaults.Set(bb)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, bb, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	// CRS is optional, it defaults to the one of the tile matrix set
	if rawCrs, ok := specials["crs"]; ok {
		bb.CRS, err = unmarshalCRS(rawCrs)
		if err != nil {
			return err
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(bb)
}

// A 2D Point in the CRS indicated elsewhere
type TwoDPoint [2]float64

func (p TwoDPoint) XY() [2]float64 {
	return p
}

// A tile matrix, usually corresponding to a particular zoom level of a TileMatrixSet.
type TileMatrix struct {
	// Identifier selecting one of the scales defined in the TileMatrixSet and representing the scaleDenominator the tile.
	// Implementation of 'identifier'
	ID string `validate:"required" json:"id"`
	// Title of this tile matrix, normally used for display to a human
	Title string `json:"title,omitempty"`
	// Brief narrative description of this tile matrix set, normally available for display to a human
	Description string `json:"description,omitempty"`
	// Unordered list of one or more commonly used or formalized word(s) or phrase(s) used to describe this dataset
	Keywords []string `json:"keywords,omitempty"`
	// Scale denominator of this tile matrix
	ScaleDenominator float64 `validate:"required,gt=0" json:"scaleDenominator"`
	// Cell size of this tile matrix
	CellSize float64 `validate:"required,gt=0" json:"cellSize"`
	// The corner of the tile matrix (_topLeft_ or _bottomLeft_) used as the origin for numbering tile rows and columns.
	// This corner is also a corner of the (0, 0) tile.
	CornerOfOrigin CornerOfOrigin `default:"topLeft" validate:"omitempty,oneof=topLeft bottomLeft" json:"cornerOfOrigin,omitempty"`
	// Precise position in CRS coordinates of the corner of origin (e.g. the top-left corner) for this tile matrix.
	PointOfOrigin TwoDPoint `json:"pointOfOrigin"`
	// Width of each tile of this tile matrix in pixels
	TileWidth uint `validate:"required,min=1" json:"tileWidth"`
	// Height of each tile of this tile matrix in pixels
	TileHeight uint `validate:"required,min=1" json:"tileHeight"`
	// Width of the matrix (number of tiles in width)
	MatrixWidth uint `validate:"required,min=1" json:"matrixWidth"`
	// Height of the matrix (number of tiles in height)
	MatrixHeight uint `validate:"required,min=1" json:"matrixHeight"`
}

func (tm *TileMatrix) UnmarshalJSON(data []byte) error {
	return UnmarshalJSONMapUsingUnmarshalJSONFromMap(tm, data)
}

func (tm *TileMatrix) UnmarshalJSONFromMap(data interface{}) error {
	err := defaults.Set(tm)
	if err != nil {
		return err
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`data is not a map but a %T`, data)
	}

	_, err = marshmallow.UnmarshalFromJSONMap(dataMap, tm, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tm)
}

// tileSpan is the size of a tile in CRS units, rounded the way the pyramid rounds it.
func (tm TileMatrix) tileSpan() (float64, float64) {
	return mathhelp.Round(float64(tm.TileWidth)*tm.CellSize, pyramid.Round),
		mathhelp.Round(float64(tm.TileHeight)*tm.CellSize, pyramid.Round)
}

type CornerOfOrigin string

const (
	TopLeft    CornerOfOrigin = "topLeft"
	BottomLeft CornerOfOrigin = "bottomLeft"
)

// SRID returns the EPSG code of the CRS. CRS84 counts as EPSG:4326.
func (tms *TileMatrixSet) SRID() (int, bool) {
	if tms.CRS.AuthorityName() == "OGC" && tms.CRS.AuthorityCode() == "CRS84" {
		return 4326, true
	}
	if tms.CRS.AuthorityName() != "EPSG" {
		return 0, false
	}
	code, err := strconv.Atoi(tms.CRS.AuthorityCode())
	if err != nil {
		return 0, false
	}
	return code, true
}

// Size returns the matrix shape (height, width) in tiles of the given zoom level.
func (tms *TileMatrixSet) Size(zoom int) (pyramid.Shape, bool) {
	tm, ok := tms.TileMatrices[zoom]
	if !ok {
		return pyramid.Shape{}, false
	}
	return pyramid.Shape{Height: int(tm.MatrixHeight), Width: int(tm.MatrixWidth)}, true
}

// FromNative returns the tile containing the point. A point on a tile edge belongs to
// the tile right of and below it.
func (tms *TileMatrixSet) FromNative(zoom int, x, y float64) (pyramid.TileIndex, bool) {
	tm, ok := tms.TileMatrices[zoom]
	if !ok {
		return pyramid.TileIndex{}, false
	}

	tileSizeX, tileSizeY := tm.tileSpan()
	minX := tm.PointOfOrigin.XY()[0]
	if x < minX {
		return pyramid.TileIndex{}, false
	}
	col := int((x - minX) / tileSizeX)
	if uint(col) >= tm.MatrixWidth {
		return pyramid.TileIndex{}, false
	}

	var row int
	switch tm.CornerOfOrigin {
	default:
		fallthrough
	case TopLeft:
		maxY := tm.PointOfOrigin.XY()[1]
		if y > maxY {
			return pyramid.TileIndex{}, false
		}
		row = int((maxY - y) / tileSizeY)
	case BottomLeft:
		minY := tm.PointOfOrigin.XY()[1]
		if y < minY {
			return pyramid.TileIndex{}, false
		}
		row = int((y - minY) / tileSizeY)
	}
	if uint(row) >= tm.MatrixHeight {
		return pyramid.TileIndex{}, false
	}

	return pyramid.TileIndex{Zoom: zoom, Row: row, Col: col}, true
}

// ToNative returns the top left corner of the tile.
func (tms *TileMatrixSet) ToNative(tile pyramid.TileIndex) ([2]float64, bool) {
	var topLeftPt [2]float64
	tm, ok := tms.TileMatrices[tile.Zoom]
	if !ok {
		return topLeftPt, false
	}
	if tile.Row < 0 || tile.Col < 0 || uint(tile.Col) > tm.MatrixWidth || uint(tile.Row) > tm.MatrixHeight {
		// >, not >= because "should be able to take tiles with x and y values 1 higher than the max"
		return topLeftPt, false
	}

	tileSizeX, tileSizeY := tm.tileSpan()
	minX := tm.PointOfOrigin.XY()[0]
	topLeftPt[0] = mathhelp.Round(minX+float64(tile.Col)*tileSizeX, pyramid.Round)

	switch tm.CornerOfOrigin {
	default:
		fallthrough
	case TopLeft:
		maxY := tm.PointOfOrigin.XY()[1]
		topLeftPt[1] = mathhelp.Round(maxY-float64(tile.Row)*tileSizeY, pyramid.Round)
	case BottomLeft:
		minY := tm.PointOfOrigin.XY()[1]
		topLeftPt[1] = mathhelp.Round(minY+float64(tile.Row+1)*tileSizeY, pyramid.Round)
	}

	return topLeftPt, true
}

func UnmarshalJSONMapUsingUnmarshalJSONFromMap(target marshmallow.UnmarshalerFromJSONMap, data []byte) error {
	var dataMap map[string]interface{}
	err := json.Unmarshal(data, &dataMap)
	if err != nil {
		return err
	}
	return target.UnmarshalJSONFromMap(dataMap)
}
