package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/paulmach/orb"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/pdok/tilematrix/processing"
	"github.com/pdok/tilematrix/pyramid"
	"github.com/pdok/tilematrix/tms20"
)

const PIXELBUFFER string = `pixelbuffer`
const TILESIZE string = `tile_size`
const METATILING string = `metatiling`
const GRID string = `grid`
const OUTPUTFORMAT string = `output_format`
const EXACT string = `exact`

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	zap.ReplaceGlobals(logger)

	err = newApp().Run(os.Args)
	_ = logger.Sync()
	if err != nil {
		log.Fatal(err)
	}
}

//nolint:funlen
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tmx"
	app.Usage = "Tile pyramid utilities: tile bounds, tiles from points, bounds and geometries"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.UintFlag{
			Name:    PIXELBUFFER,
			Aliases: []string{"p"},
			Usage:   "Tile bounding box buffer in pixels",
			Value:   0,
			EnvVars: []string{strcase.ToScreamingSnake(PIXELBUFFER)},
		},
		&cli.IntFlag{
			Name:    TILESIZE,
			Aliases: []string{"s"},
			Usage:   "Tile size in pixels",
			Value:   pyramid.DefaultTileSize,
			EnvVars: []string{strcase.ToScreamingSnake(TILESIZE)},
		},
		&cli.IntFlag{
			Name:    METATILING,
			Aliases: []string{"m"},
			Usage:   "Metatile size in tiles, a power of two up to 512",
			Value:   pyramid.DefaultMetatiling,
			EnvVars: []string{strcase.ToScreamingSnake(METATILING)},
		},
		&cli.StringFlag{
			Name:    GRID,
			Aliases: []string{"g"},
			Usage:   `Base grid: a preset (geodetic, mercator, utm-33N, ...) or the path of a JSON grid definition. E.g.: {"shape": [1, 1], "bounds": [0, 0, 100, 100], "srs": {"epsg": 28992}}`,
			Value:   pyramid.Geodetic,
			EnvVars: []string{strcase.ToScreamingSnake(GRID)},
		},
		&cli.StringFlag{
			Name:    OUTPUTFORMAT,
			Aliases: []string{"f"},
			Usage:   "Print the tile id (Tile) or the tile bounding box as WKT or GeoJSON",
			Value:   string(formatTile),
			EnvVars: []string{strcase.ToScreamingSnake(OUTPUTFORMAT)},
		},
	}

	app.Before = func(c *cli.Context) error {
		_, err := parseOutputFormat(c.String(OUTPUTFORMAT))
		return err
	}

	// coordinate arguments may be negative, so flag parsing is skipped for those commands
	app.Commands = []*cli.Command{
		{
			Name:            "bounds",
			Usage:           "Print the tile bounds as left bottom right top",
			ArgsUsage:       "ZOOM ROW COL",
			SkipFlagParsing: true,
			Action:          boundsAction,
		},
		{
			Name:            "bbox",
			Usage:           "Print the tile bounding box as geometry",
			ArgsUsage:       "ZOOM ROW COL",
			SkipFlagParsing: true,
			Action:          bboxAction,
		},
		{
			Name:            "tile",
			Usage:           "Print the tile containing the point",
			ArgsUsage:       "ZOOM X Y",
			SkipFlagParsing: true,
			Action:          tileAction,
		},
		{
			Name:            "tiles",
			Usage:           "Print the tiles intersecting the bounds",
			ArgsUsage:       "ZOOM LEFT BOTTOM RIGHT TOP",
			SkipFlagParsing: true,
			Action:          tilesAction,
		},
		{
			Name:            "snap-bounds",
			Usage:           "Snap the bounds to the tile grid",
			ArgsUsage:       "ZOOM LEFT BOTTOM RIGHT TOP",
			SkipFlagParsing: true,
			Action:          snapBoundsAction,
		},
		{
			Name:            "snap-bbox",
			Usage:           "Snap the bounds to the tile grid and print them as geometry",
			ArgsUsage:       "ZOOM LEFT BOTTOM RIGHT TOP",
			SkipFlagParsing: true,
			Action:          snapBBoxAction,
		},
		{
			Name:      "geom",
			Usage:     "Print the tiles intersecting a GeoJSON or WKT geometry read from FILE or stdin",
			ArgsUsage: "ZOOM [FILE]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    EXACT,
					Usage:   "Only tiles sharing an area with the geometry, instead of touching it",
					EnvVars: []string{strcase.ToScreamingSnake(EXACT)},
				},
			},
			Action: geomAction,
		},
		{
			Name:      "tms",
			Usage:     "Print the pyramid as OGC Two Dimensional Tile Matrix Set (2.0) JSON",
			ArgsUsage: "MINZOOM MAXZOOM",
			Action:    tmsAction,
		},
		{
			Name:            "tms-tile",
			Usage:           "Look up the tile containing a point in a Tile Matrix Set (2.0) document, such as the output of tms",
			ArgsUsage:       "FILE ZOOM X Y",
			SkipFlagParsing: true,
			Action:          tmsTileAction,
		},
	}
	return app
}

func boundsAction(c *cli.Context) error {
	tile, err := tileFromArgs(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, formatBounds(tile.Bounds(c.Uint(PIXELBUFFER))))
	return err
}

func bboxAction(c *cli.Context) error {
	tile, err := tileFromArgs(c)
	if err != nil {
		return err
	}
	return printPolygon(c, tile.BBox(c.Uint(PIXELBUFFER)))
}

func tileAction(c *cli.Context) error {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return err
	}
	zoom, values, err := zoomAndFloats(c, 2)
	if err != nil {
		return err
	}
	tile, err := tp.TileFromXY(values[0], values[1], zoom, pyramid.RightBottom)
	if err != nil {
		return err
	}
	tw := newTileWriter(c.App.Writer, outputFormat(c.String(OUTPUTFORMAT)), c.Uint(PIXELBUFFER))
	tw.write(tile, nil)
	return tw.close()
}

func tilesAction(c *cli.Context) error {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return err
	}
	zoom, bounds, err := zoomAndBounds(c)
	if err != nil {
		return err
	}
	it, err := tp.TilesFromBounds(bounds, zoom)
	if err != nil {
		return err
	}
	tw := newTileWriter(c.App.Writer, outputFormat(c.String(OUTPUTFORMAT)), c.Uint(PIXELBUFFER))
	for it.Next() {
		tw.write(it.Tile(), nil)
	}
	return tw.close()
}

func snapBoundsAction(c *cli.Context) error {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return err
	}
	zoom, bounds, err := zoomAndBounds(c)
	if err != nil {
		return err
	}
	snapped, err := pyramid.SnapBounds(bounds, tp, zoom, c.Uint(PIXELBUFFER))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, formatBounds(snapped))
	return err
}

func snapBBoxAction(c *cli.Context) error {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return err
	}
	zoom, bounds, err := zoomAndBounds(c)
	if err != nil {
		return err
	}
	snapped, err := pyramid.SnapBBox(bounds, tp, zoom, c.Uint(PIXELBUFFER))
	if err != nil {
		return err
	}
	return printPolygon(c, snapped)
}

func geomAction(c *cli.Context) error {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return err
	}
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("expected arguments ZOOM [FILE], got %d arguments", c.NArg())
	}
	zoom, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid zoom: %w", err)
	}

	var data []byte
	if c.NArg() == 2 {
		data, err = os.ReadFile(c.Args().Get(1))
	} else {
		data, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return err
	}
	source, err := processing.ParseGeometries(data)
	if err != nil {
		return err
	}

	tw := newTileWriter(c.App.Writer, outputFormat(c.String(OUTPUTFORMAT)), c.Uint(PIXELBUFFER))
	resolveErr := processing.ResolveTiles(source, tp, map[int]processing.Target{zoom: tw}, c.Bool(EXACT))
	return errors.Join(resolveErr, tw.close())
}

func tmsAction(c *cli.Context) error {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return err
	}
	zooms, err := intArgs(c, 2)
	if err != nil {
		return err
	}
	tms, err := tms20.FromPyramid(tp, zooms[0], zooms[1])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(&tms, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func tmsTileAction(c *cli.Context) error {
	if c.NArg() != 4 {
		return fmt.Errorf("expected 4 arguments (%s), got %d", c.Command.ArgsUsage, c.NArg())
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	var tms tms20.TileMatrixSet
	if err = json.Unmarshal(data, &tms); err != nil {
		return fmt.Errorf("invalid tile matrix set %s: %w", c.Args().First(), err)
	}
	zoom, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid zoom: %w", err)
	}
	x, err := strconv.ParseFloat(c.Args().Get(2), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	y, err := strconv.ParseFloat(c.Args().Get(3), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}

	if srid, ok := tms.SRID(); ok {
		zap.L().Debug("loaded tile matrix set", zap.String("id", tms.ID), zap.Int("srid", srid))
	}
	shape, ok := tms.Size(zoom)
	if !ok {
		return fmt.Errorf("%w: tile matrix set has no zoom level %d", pyramid.ErrOutOfRange, zoom)
	}
	index, ok := tms.FromNative(zoom, x, y)
	if !ok {
		return fmt.Errorf("%w: point (%v, %v) is outside the %dx%d tile matrix of zoom %d",
			pyramid.ErrOutOfRange, x, y, shape.Height, shape.Width, zoom)
	}

	format := outputFormat(c.String(OUTPUTFORMAT))
	if format == formatTile {
		_, err = fmt.Fprintln(c.App.Writer, index)
		return err
	}
	// the next row lies below a top-left origin and above a bottom-left one
	topLeft, _ := tms.ToNative(index)
	next, _ := tms.ToNative(pyramid.TileIndex{Zoom: zoom, Row: index.Row + 1, Col: index.Col + 1})
	height := math.Abs(next[1] - topLeft[1])
	bounds := pyramid.Bounds{Left: topLeft[0], Bottom: topLeft[1] - height, Right: next[0], Top: topLeft[1]}
	return printPolygon(c, bounds.Polygon())
}

func printPolygon(c *cli.Context, p orb.Polygon) error {
	s, err := formatPolygon(p, outputFormat(c.String(OUTPUTFORMAT)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, s)
	return err
}

// pyramidFromContext builds the pyramid from the global flags.
func pyramidFromContext(c *cli.Context) (*pyramid.TilePyramid, error) {
	grid, err := loadGrid(c.String(GRID))
	if err != nil {
		return nil, err
	}
	return pyramid.NewTilePyramid(grid, pyramid.WithTileSize(c.Int(TILESIZE)), pyramid.WithMetatiling(c.Int(METATILING)))
}

func loadGrid(grid string) (pyramid.GridSpec, error) {
	if _, ok := pyramid.Presets()[grid]; ok {
		return pyramid.Preset(grid), nil
	}
	data, err := os.ReadFile(grid)
	if err != nil {
		return nil, fmt.Errorf("grid %q is neither a preset nor a readable grid definition: %w", grid, err)
	}
	var record pyramid.GridRecord
	if err = json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("invalid grid definition %s: %w", grid, err)
	}
	return pyramid.GridDefinitionFromRecord(record)
}

func tileFromArgs(c *cli.Context) (pyramid.Tile, error) {
	tp, err := pyramidFromContext(c)
	if err != nil {
		return pyramid.Tile{}, err
	}
	index, err := intArgs(c, 3)
	if err != nil {
		return pyramid.Tile{}, err
	}
	return tp.Tile(index[0], index[1], index[2])
}

func intArgs(c *cli.Context, n int) ([]int, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("expected %d arguments (%s), got %d", n, c.Command.ArgsUsage, c.NArg())
	}
	result := make([]int, 0, n)
	for _, arg := range c.Args().Slice() {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid integer argument: %w", err)
		}
		result = append(result, v)
	}
	return result, nil
}

// zoomAndFloats parses a zoom level followed by n numbers.
func zoomAndFloats(c *cli.Context, n int) (int, []float64, error) {
	if c.NArg() != n+1 {
		return 0, nil, fmt.Errorf("expected %d arguments (%s), got %d", n+1, c.Command.ArgsUsage, c.NArg())
	}
	zoom, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return 0, nil, fmt.Errorf("invalid zoom: %w", err)
	}
	values := make([]float64, 0, n)
	for _, arg := range c.Args().Tail() {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid number: %w", err)
		}
		values = append(values, v)
	}
	return zoom, values, nil
}

func zoomAndBounds(c *cli.Context) (int, pyramid.Bounds, error) {
	zoom, values, err := zoomAndFloats(c, 4)
	if err != nil {
		return 0, pyramid.Bounds{}, err
	}
	bounds, err := pyramid.BoundsFromSlice(values)
	return zoom, bounds, err
}
