package main

import (
	"time"

	"github.com/Vizzuality/HLS-data-project/util"
	cli "gopkg.in/urfave/cli.v1"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

var regionFlags = []cli.Flag{
	cli.StringFlag{Name: "region, r", Usage: "bbox `minx,miny,maxx,maxy` or a GeoJSON polygon"},
	cli.StringFlag{Name: "start", Usage: "first date, YYYY-MM-DD"},
	cli.StringFlag{Name: "end", Usage: "last date, YYYY-MM-DD"},
}

var commands = cli.Commands{
	cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Launch the hls-broker webserver",
		Action:  serveAction,
	},
	cli.Command{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "Print the version number of the Broker CLI",
		Action:  versionAction,
	},
	cli.Command{
		Name:   "search",
		Usage:  "Search the catalog and print the scenes as GeoJSON",
		Flags:  append(regionFlags, cli.IntFlag{Name: "limit", Usage: "maximum number of scenes"}),
		Action: searchAction,
	},
	cli.Command{
		Name:  "extract",
		Usage: "Extract the six model bands of a scene over a region",
		Flags: append(regionFlags,
			cli.StringFlag{Name: "scene", Usage: "scene ID; the first search result when absent"},
			cli.BoolFlag{Name: "apply-scale", Usage: "multiply values by the band scale factor"},
		),
		Action: extractAction,
	},
	cli.Command{
		Name:  "composite",
		Usage: "Build the date/instrument composite index of a region",
		Flags: append(regionFlags,
			cli.StringFlag{Name: "frames", Usage: "render each composite as a labelled PNG under `DIR`"},
			cli.StringFlag{Name: "name", Value: "region", Usage: "frame name prefix"},
			cli.IntFlag{Name: "width", Value: 512, Usage: "frame width in pixels"},
		),
		Action: compositeAction,
	},
	cli.Command{
		Name:  "predict",
		Usage: "Run burn scar inference on a scene and save the frames",
		Flags: append(regionFlags,
			cli.StringFlag{Name: "scene", Usage: "scene ID; the first search result when absent"},
			cli.StringFlag{Name: "model-config", Usage: "model configuration YAML"},
			cli.StringFlag{Name: "checkpoint", Usage: "model checkpoint"},
			cli.StringFlag{Name: "bands", Usage: "custom band subset, e.g. [0,1,2]"},
			cli.StringFlag{Name: "out", Value: "frames", Usage: "frame output `DIR`"},
			cli.StringFlag{Name: "name", Value: "region", Usage: "frame name prefix"},
		),
		Action: predictAction,
	},
	cli.Command{
		Name:  "animate",
		Usage: "Encode a region's frames into an animation with ffmpeg",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "dir", Value: "frames", Usage: "frame `DIR`"},
			cli.StringFlag{Name: "name", Value: "region", Usage: "frame name prefix"},
			cli.StringFlag{Name: "format", Value: "mp4", Usage: "mp4, apng, gif or webm"},
		},
		Action: animateAction,
	},
	cli.Command{
		Name:  "sync",
		Usage: "Keep the local scene index up to date with the catalog",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "region, r", Usage: "bbox `minx,miny,maxx,maxy` or a GeoJSON polygon"},
			cli.DurationFlag{Name: "lookback", Value: 72 * time.Hour, Usage: "how far back each sync searches"},
			cli.BoolFlag{Name: "once", Usage: "sync a single time and exit"},
		},
		Action: syncAction,
	},
	cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Update database schema",
		Action:  migrateDatabaseAction,
	},
}

func createCliApp() (app *cli.App) {
	app = cli.NewApp()
	app.Name = util.AppName
	app.Usage = "Discover, extract, composite and classify HLS imagery"
	app.Version = Version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "YAML configuration `FILE`; environment variables override it"},
	}
	app.Commands = commands
	return
}

// loadConfig reads the global --config file
func loadConfig(c *cli.Context) (*util.Config, error) {
	path := ""
	if c != nil {
		path = c.GlobalString("config")
	}
	return util.LoadConfig(path)
}
