package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vizzuality/HLS-data-project/catalog"
	"github.com/Vizzuality/HLS-data-project/composite"
	"github.com/Vizzuality/HLS-data-project/extraction"
	"github.com/Vizzuality/HLS-data-project/inference"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/render"
	"github.com/Vizzuality/HLS-data-project/util"
	cli "gopkg.in/urfave/cli.v1"
)

var stdout io.Writer = os.Stdout

// newRasterSourceFunc opens the GDAL raster source; tests replace it
var newRasterSourceFunc = func(lc util.LogContext, cfg *util.Config) (extraction.RasterSource, error) {
	cookies := filepath.Join(os.TempDir(), util.AppName+"-cookies.txt")
	return extraction.NewGDALSource(lc, cfg.NetrcPath(), cookies)
}

// newModelFunc returns the model used by predict; tests replace it
var newModelFunc = func(cfg *util.Config) inference.Model {
	return &inference.RemoteModel{URL: cfg.ModelServerURL, Context: &inference.Context{}}
}

// newObjectStoreFunc opens the bucket animations are published to
var newObjectStoreFunc = func(ctx context.Context, cfg *util.Config, bucket string) (render.ObjectStore, error) {
	return render.NewGCSStore(ctx, cfg.EECredentials, bucket)
}

type frameRenderer interface {
	RenderPNG(ctx context.Context, img model.Image, roi model.RegionOfInterest, width int) ([]byte, error)
}

func versionAction(*cli.Context) {
	fmt.Fprintln(stdout, Version)
}

func searchOptions(c *cli.Context) (catalog.SearchOptions, error) {
	region, err := model.ParseRegion(c.String("region"))
	if err != nil {
		return catalog.SearchOptions{}, util.WrapError(util.Configuration, err)
	}
	return catalog.SearchOptions{
		Region:    region,
		StartDate: c.String("start"),
		EndDate:   c.String("end"),
		Limit:     c.Int("limit"),
	}, nil
}

func searchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	options, err := searchOptions(c)
	if err != nil {
		return err
	}
	fc, err := catalog.SearchFeatures(context.Background(), options, &catalog.Context{BaseURL: cfg.CMRSTACURL})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, fc.String())
	return nil
}

// findScene searches the catalog and returns the scene named by --scene, or
// the first result
func findScene(ctx context.Context, c *cli.Context, cfg *util.Config) (model.SceneRecord, model.RegionOfInterest, error) {
	options, err := searchOptions(c)
	if err != nil {
		return model.SceneRecord{}, options.Region, err
	}
	scenes, err := catalog.Search(ctx, options, &catalog.Context{BaseURL: cfg.CMRSTACURL})
	if err != nil {
		return model.SceneRecord{}, options.Region, err
	}
	wanted := c.String("scene")
	for _, scene := range scenes {
		if wanted == "" || scene.ID == wanted {
			return scene, options.Region, nil
		}
	}
	if wanted == "" {
		return model.SceneRecord{}, options.Region, util.NewError(util.DataAccess, "no scenes found for %s/%s", options.StartDate, options.EndDate)
	}
	return model.SceneRecord{}, options.Region, util.NewError(util.DataAccess, "scene %s not found for %s/%s", wanted, options.StartDate, options.EndDate)
}

func extractScene(ctx context.Context, c *cli.Context, cfg *util.Config, applyScale bool) (model.SceneRecord, model.BandArray, error) {
	scene, roi, err := findScene(ctx, c, cfg)
	if err != nil {
		return scene, nil, err
	}
	lc := &extraction.Context{}
	source, err := newRasterSourceFunc(lc, cfg)
	if err != nil {
		return scene, nil, err
	}
	extractor := extraction.Extractor{Source: source, ApplyScale: applyScale, Context: lc}
	bands, err := extractor.Extract(ctx, scene, roi)
	return scene, bands, err
}

func extractAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	scene, bands, err := extractScene(context.Background(), c, cfg, c.Bool("apply-scale"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%s, %s)\n", scene.ID, scene.Collection, scene.Date())
	for _, band := range model.AllBands {
		data := bands[band]
		fmt.Fprintf(stdout, "%-7s %dx%d valid=%.3f scale=%g\n", band, data.Width, data.Height, data.ValidFraction(), data.Scale)
	}
	return nil
}

func compositeAction(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	roi, err := model.ParseRegion(c.String("region"))
	if err != nil {
		return util.WrapError(util.Configuration, err)
	}
	archive, err := newArchiveFunc(ctx, cfg)
	if err != nil {
		return err
	}
	builder := composite.Builder{Archive: archive, Context: &composite.Context{}}
	index, err := builder.Build(ctx, roi, c.String("start"), c.String("end"))
	if err != nil {
		return err
	}

	frames := c.String("frames")
	renderer, canRender := archive.(frameRenderer)
	if frames != "" && !canRender {
		return util.NewError(util.Configuration, "the archive cannot render frames")
	}
	count := 0
	for _, date := range index.Dates() {
		var titles []string
		for _, img := range index.Images(date) {
			titles = append(titles, img.Instrument.Info().Title)
			if frames == "" {
				continue
			}
			data, err := renderer.RenderPNG(ctx, img, roi, c.Int("width"))
			if err != nil {
				return err
			}
			labelled, err := render.LabelPNG(data, fmt.Sprintf("%s %s", date, img.Instrument.Info().Title))
			if err != nil {
				return util.WrapError(util.DataAccess, err)
			}
			count++
			if _, err = render.WriteFrame(frames, c.String("name"), count, labelled); err != nil {
				return err
			}
		}
		fmt.Fprintf(stdout, "%s\t%s\n", date, strings.Join(titles, ", "))
	}
	return nil
}

func predictAction(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	lc := &inference.Context{}
	runner, err := inference.NewRunner(ctx, c.String("model-config"), c.String("checkpoint"), c.String("bands"), newModelFunc(cfg), lc)
	if err != nil {
		return err
	}
	scene, bands, err := extractScene(ctx, c, cfg, true)
	if err != nil {
		return err
	}
	stack, err := extraction.InputArray(bands)
	if err != nil {
		return err
	}
	mask, err := runner.Predict(ctx, stack)
	if err != nil {
		return err
	}
	paths, err := render.SaveFrames(c.String("out"), c.String("name"), stack, mask, &render.Context{})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s\n", scene.ID, strings.Join(paths, " "))
	return nil
}

func animateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	animator := render.Animator{FFmpegPath: cfg.FFmpegPath, Context: &render.Context{}}
	ctx := context.Background()
	output, err := animator.Animate(ctx, c.String("dir"), c.String("name"), c.String("format"))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, output)
	if cfg.OutputBucket == "" {
		return nil
	}

	loc, err := render.ParseLocation(cfg.OutputBucket)
	if err != nil {
		return err
	}
	store, err := newObjectStoreFunc(ctx, cfg, loc.Bucket)
	if err != nil {
		return err
	}
	defer store.Close()
	urls, err := render.Publish(ctx, store, loc, []string{output}, animator.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, strings.Join(urls, "\n"))
	return nil
}
