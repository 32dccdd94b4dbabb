package crs

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

var (
	//go:embed definitions/*.json
	embeddedDefinitionsFS embed.FS
	embeddedDefinitions   map[int]Definition
	loadDefinitionsOnce   sync.Once
)

// Definition is one entry of the EPSG definition table.
type Definition struct {
	Name          string  `json:"name"`
	WKT           string  `json:"wkt"`
	MetersPerUnit float64 `json:"metersPerUnit"`
}

const (
	utmNorthBase = 32600
	utmSouthBase = 32700
	utmZones     = 60
)

const wgs84GeogCS = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

func loadDefinitions() map[int]Definition {
	loadDefinitionsOnce.Do(func() {
		raw, err := embeddedDefinitionsFS.ReadFile("definitions/epsg.json")
		if err != nil {
			panic(fmt.Errorf("could not read embedded crs definitions: %w", err))
		}
		var byCode map[string]Definition
		if err = json.Unmarshal(raw, &byCode); err != nil {
			panic(fmt.Errorf("could not parse embedded crs definitions: %w", err))
		}
		embeddedDefinitions = make(map[int]Definition, len(byCode))
		for k, def := range byCode {
			code, err := strconv.Atoi(k)
			if err != nil {
				panic(fmt.Errorf("embedded crs definition has a non numeric code %q: %w", k, err))
			}
			def.WKT = normalizeWKT(def.WKT)
			embeddedDefinitions[code] = def
		}
	})
	return embeddedDefinitions
}

func lookupEPSG(code int) (Definition, bool) {
	if def, ok := loadDefinitions()[code]; ok {
		return def, true
	}
	return utmDefinition(code)
}

// utmDefinition generates the WGS 84 / UTM zone definitions (EPSG 32601-32660 and 32701-32760).
func utmDefinition(code int) (Definition, bool) {
	var hemisphere string
	var falseNorthing int
	switch {
	case code > utmNorthBase && code <= utmNorthBase+utmZones:
		hemisphere = "N"
	case code > utmSouthBase && code <= utmSouthBase+utmZones:
		hemisphere = "S"
		falseNorthing = 10000000
	default:
		return Definition{}, false
	}
	zone := code % 100
	name := fmt.Sprintf("WGS 84 / UTM zone %d%s", zone, hemisphere)
	wkt := fmt.Sprintf(`PROJCS["%s",%s,PROJECTION["Transverse_Mercator"],`+
		`PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",%d],PARAMETER["scale_factor",0.9996],`+
		`PARAMETER["false_easting",500000],PARAMETER["false_northing",%d],UNIT["metre",1,AUTHORITY["EPSG","9001"]],`+
		`AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","%d"]]`,
		name, wgs84GeogCS, zone*6-183, falseNorthing, code)
	return Definition{Name: name, WKT: wkt, MetersPerUnit: 1}, true
}
