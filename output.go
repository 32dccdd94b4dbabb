package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pdok/tilematrix/geomhelp"
	"github.com/pdok/tilematrix/processing"
	"github.com/pdok/tilematrix/pyramid"
)

type outputFormat string

const (
	formatTile    outputFormat = "Tile"
	formatWKT     outputFormat = "WKT"
	formatGeoJSON outputFormat = "GeoJSON"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case formatTile, formatWKT, formatGeoJSON:
		return f, nil
	}
	return "", fmt.Errorf("invalid output format %q, must be one of %s, %s or %s", s, formatTile, formatWKT, formatGeoJSON)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatBounds prints left, bottom, right and top separated by spaces.
func formatBounds(b pyramid.Bounds) string {
	parts := make([]string, 0, 4)
	for _, v := range b.Slice() {
		parts = append(parts, formatFloat(v))
	}
	return strings.Join(parts, " ")
}

// formatPolygon prints a GeoJSON geometry for the GeoJSON format and WKT otherwise.
func formatPolygon(p orb.Polygon, format outputFormat) (string, error) {
	if format != formatGeoJSON {
		return geomhelp.WktMustEncode(p, 0), nil
	}
	data, err := geojson.NewGeometry(p).MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// tileWriter prints tiles one per line, or as features of a single FeatureCollection
// that is streamed as the tiles come in.
type tileWriter struct {
	w           io.Writer
	format      outputFormat
	pixelbuffer uint
	count       int
	err         error
}

func newTileWriter(w io.Writer, format outputFormat, pixelbuffer uint) *tileWriter {
	tw := &tileWriter{w: w, format: format, pixelbuffer: pixelbuffer}
	if format == formatGeoJSON {
		_, tw.err = io.WriteString(w, "{\n  \"type\": \"FeatureCollection\",\n  \"features\": [")
	}
	return tw
}

func (tw *tileWriter) write(t pyramid.Tile, properties map[string]interface{}) {
	if tw.err != nil {
		return
	}
	switch tw.format {
	case formatTile:
		_, tw.err = fmt.Fprintln(tw.w, t.Index())
	case formatWKT:
		_, tw.err = fmt.Fprintln(tw.w, geomhelp.WktMustEncode(t.BBox(tw.pixelbuffer), 0))
	case formatGeoJSON:
		f := geojson.NewFeature(t.BBox(tw.pixelbuffer))
		f.Properties["zoom"] = t.Zoom()
		f.Properties["row"] = t.Row()
		f.Properties["col"] = t.Col()
		for k, v := range properties {
			f.Properties[k] = v
		}
		var data []byte
		data, tw.err = f.MarshalJSON()
		if tw.err != nil {
			return
		}
		separator := ",\n"
		if tw.count == 0 {
			separator = "\n"
		}
		_, tw.err = fmt.Fprintf(tw.w, "%s    %s", separator, data)
	}
	tw.count++
}

// WriteFeatures makes the tileWriter a processing.Target.
func (tw *tileWriter) WriteFeatures(features <-chan processing.FeatureForTile) {
	for f := range features {
		tw.write(f.Tile(), map[string]interface{}{"feature": f.ID()})
	}
}

// close ends the FeatureCollection and returns the first write error.
func (tw *tileWriter) close() error {
	if tw.err == nil && tw.format == formatGeoJSON {
		_, tw.err = io.WriteString(tw.w, "\n  ]\n}\n")
	}
	return tw.err
}
