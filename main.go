package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"tzf/geometry"
	"tzf/importing"
	"tzf/index"
	"tzf/io"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const VERSION = "v0.1.0"

type CoordinateFlags struct {
	Lng float64 `help:"Longitude of the point in degrees. Use --lng=-3.7 for negative values." required:""`
	Lat float64 `help:"Latitude of the point in degrees. Use --lat=-29.3 for negative values." required:""`
}

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info" env:"TZF_LOGGING"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Index   string      `help:"The folder containing the index files." placeholder:"<index-folder>" default:"tzf-index" env:"TZF_INDEX"`
	Build   struct {
		Input        string `help:"The input file. Either .geojson, .json or .fgb." placeholder:"<input-file>" arg:"" type:"existingfile"`
		ZoneProperty string `help:"Feature property containing the timezone name." default:"tzid" env:"TZF_ZONE_PROPERTY"`
	} `cmd:"" help:"Builds the index from the given timezone polygons."`
	At struct {
		CoordinateFlags
		Certain bool `help:"Test every polygon of the cell instead of trusting cells with polygons of only one zone."`
	} `cmd:"" help:"Returns the timezone at the given coordinate."`
	Closest struct {
		CoordinateFlags
		Delta     int  `help:"Search radius in degrees." default:"1"`
		Exact     bool `help:"Use the distance to the polygon edges instead of its vertices."`
		Distances bool `help:"Print the distance to every polygon nearby."`
		Force     bool `help:"Compute the distance to every polygon nearby, even if it cannot change the result."`
	} `cmd:"" help:"Returns the timezone closest to the given coordinate."`
	Export struct {
		Output       string `help:"The output file. Either .geojson or .fgb." placeholder:"<output-file>" arg:""`
		Cells        bool   `help:"Export the shortcut cells instead of the polygons (GeoJSON only)."`
		ZoneProperty string `help:"Feature property for the timezone name." default:"tzid" env:"TZF_ZONE_PROPERTY"`
	} `cmd:"" help:"Exports the polygons or shortcut cells of the index."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		sigolo.Fatalf("Unable to load .env file: %+v", err)
	}

	ctx := kong.Parse(
		&cli,
		kong.Name("tzf"),
		kong.Description("Offline lookup of the timezone of a coordinate."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "build <input>":
		_, err = importing.Import(cli.Build.Input, cli.Build.ZoneProperty, cli.Index)
	case "at":
		err = index.WithIndex(cli.Index, timezoneAt)
	case "closest":
		err = index.WithIndex(cli.Index, closestTimezoneAt)
	case "export <output>":
		err = index.WithIndex(cli.Index, export)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
	sigolo.FatalCheck(err)
}

func timezoneAt(idx *index.Index) error {
	lookup := idx.TimezoneAt
	if cli.At.Certain {
		lookup = idx.CertainTimezoneAt
	}

	zoneName, found, err := lookup(cli.At.Lng, cli.At.Lat)
	if err != nil {
		return err
	}

	if !found {
		sigolo.Infof("No timezone found at (%f, %f)", cli.At.Lng, cli.At.Lat)
		return nil
	}
	fmt.Println(zoneName)
	return nil
}

func closestTimezoneAt(idx *index.Index) error {
	options := index.ClosestOptions{
		DeltaDegree:     cli.Closest.Delta,
		Metric:          geometry.DistanceVertices,
		ReturnDistances: cli.Closest.Distances,
		ForceEvaluation: cli.Closest.Force,
	}
	if cli.Closest.Exact {
		options.Metric = geometry.DistanceEdges
	}

	result, err := idx.ClosestTimezoneAt(cli.Closest.Lng, cli.Closest.Lat, options)
	if err != nil {
		return err
	}

	if options.ReturnDistances {
		for i, polygonID := range result.PolygonIDs {
			distance := "-"
			if !math.IsNaN(result.Distances[i]) {
				distance = fmt.Sprintf("%.3f km", result.Distances[i])
			}
			fmt.Printf("%6d  %-35s %s\n", polygonID, result.ZoneNames[i], distance)
		}
	}

	if !result.Found {
		sigolo.Infof("No timezone found within %d degrees around (%f, %f)", options.DeltaDegree, cli.Closest.Lng, cli.Closest.Lat)
		return nil
	}
	fmt.Println(result.ZoneName)
	return nil
}

func export(idx *index.Index) error {
	extension := strings.ToLower(filepath.Ext(cli.Export.Output))

	if cli.Export.Cells {
		if extension != ".geojson" && extension != ".json" {
			return errors.Errorf("Shortcut cells can only be exported as GeoJSON, not into %s", cli.Export.Output)
		}

		return io.WriteShortcutCellsAsGeoJsonFile(idx, cli.Export.Output)
	}

	switch extension {
	case ".geojson", ".json":
		return io.WriteIndexAsGeoJsonFile(idx, cli.Export.ZoneProperty, cli.Export.Output)
	case ".fgb":
		return io.WriteIndexAsFlatGeobufFile(idx, cli.Export.ZoneProperty, cli.Export.Output)
	}
	return errors.Errorf("Unsupported output file %s, expected a .geojson or .fgb file", cli.Export.Output)
}
