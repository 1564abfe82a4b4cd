package composite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
)

// Context is the context for a composite operation
type Context struct {
	sessionID string
}

// AppName returns the application name
func (c *Context) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *Context) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = util.PsuUUID()
	}
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *Context) LogRootDir() string {
	return ""
}

// Archive is an earth-observation image archive
type Archive interface {
	// Query lists the images of an instrument acquired in [start, end)
	// over the region
	Query(ctx context.Context, instrument model.Instrument, start, end time.Time, roi model.RegionOfInterest) ([]model.Image, error)
	// Mosaic merges same-day images into one
	Mosaic(ctx context.Context, images []model.Image) (model.Image, error)
}

// Builder assembles per-date composites across every instrument
type Builder struct {
	Archive Archive
	Context *Context
}

// Build returns the composite index of the region between the inclusive
// YYYY-MM-DD dates start and end
func (b *Builder) Build(ctx context.Context, roi model.RegionOfInterest, start, end string) (model.CompositeIndex, error) {
	lc := b.Context
	if lc == nil {
		lc = &Context{}
	}
	from, err := model.ParseDate(start)
	if err != nil {
		return nil, util.WrapError(util.Configuration, err)
	}
	to, err := model.ParseDate(end)
	if err != nil {
		return nil, util.WrapError(util.Configuration, err)
	}
	if from.After(to) {
		return nil, util.NewError(util.Configuration, "start date %s is after end date %s", start, end)
	}

	index := model.CompositeIndex{}
	for _, instrument := range model.Instruments {
		images, err := b.Archive.Query(ctx, instrument, from, to.AddDate(0, 0, 1), roi)
		if err != nil {
			return nil, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Failed to query %s images.", instrument.Info().Title), err))
		}
		if !sortByTime(images) {
			util.LogAlert(lc, fmt.Sprintf("%s archive returned images out of date order; sorted before grouping.", instrument))
		}

		composites, err := b.group(ctx, lc, images)
		if err != nil {
			return nil, err
		}
		for _, img := range composites {
			img.Instrument = instrument
			index.Put(img)
			kind := "single"
			if img.IsMosaic() {
				kind = "mosaic"
			}
			metrics.CompositeImages.WithLabelValues(instrument.String(), kind).Inc()
		}
		util.LogInfo(lc, fmt.Sprintf("%s: %d images grouped into %d dates.", instrument, len(images), len(composites)))
	}
	return index, nil
}

// group walks the date-sorted images and mosaics each run of same-date
// images. A run of one image is kept as is.
func (b *Builder) group(ctx context.Context, lc *Context, images []model.Image) ([]model.Image, error) {
	var (
		out []model.Image
		run []model.Image
	)
	flush := func() error {
		switch len(run) {
		case 0:
			return nil
		case 1:
			out = append(out, run[0])
		default:
			merged, err := b.Archive.Mosaic(ctx, run)
			if err != nil {
				return util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Failed to mosaic %d images of %s.", len(run), run[0].Date()), err))
			}
			merged.Time = run[0].Time
			out = append(out, merged)
		}
		run = nil
		return nil
	}

	for _, img := range images {
		if len(run) > 0 && run[len(run)-1].Date() != img.Date() {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		run = append(run, img)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// sortByTime stable-sorts images by acquisition time and reports whether
// they already were in order
func sortByTime(images []model.Image) bool {
	less := func(i, j int) bool { return images[i].Time.Before(images[j].Time) }
	if sort.SliceIsSorted(images, less) {
		return true
	}
	sort.SliceStable(images, less)
	return false
}
