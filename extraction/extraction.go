package extraction

import (
	"context"
	"fmt"
	"math"

	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Context is the context for an extraction operation
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

// Extractor clips the six HLS bands of a scene to a region
type Extractor struct {
	Source RasterSource
	// ApplyScale bakes the reflectance scale into the values and records a
	// scale of 1. Otherwise values stay in raw units and the source scale is
	// recorded for the caller to apply.
	ApplyScale bool
	Context    *Context
}

// Extract reads every band of the scene clipped to roi. Pixels outside the
// polygon or equal to the nodata sentinel are NaN.
func (e *Extractor) Extract(ctx context.Context, scene model.SceneRecord, roi model.RegionOfInterest) (model.BandArray, error) {
	lc := e.Context
	if lc == nil {
		lc = &Context{}
	}

	roles := scene.Collection.BandRoles()
	codes := scene.Collection.ProviderBands()
	hrefs := make(map[string]string, len(codes))
	for _, code := range codes {
		href, ok := scene.Asset(code)
		if !ok {
			err := util.Error{SimpleMsg: fmt.Sprintf("Scene %s has no %s asset.", scene.ID, code), Kind: util.DataAccess}
			return nil, err.Log(lc, "")
		}
		hrefs[code] = href
	}

	bands := make(model.BandArray, len(codes))
	for _, code := range codes {
		data, err := e.extractBand(ctx, lc, hrefs[code], roi)
		if err != nil {
			return nil, err
		}
		bands[roles[code]] = data
		metrics.BandsExtracted.WithLabelValues(string(scene.Collection)).Inc()
	}

	util.LogAudit(lc, util.LogAuditInput{Actor: "extraction/Extract", Action: "clip", Actee: scene.ID, Message: fmt.Sprintf("Extracted %d bands for %s", len(bands), roi.WKT()), Severity: util.INFO})
	return bands, nil
}

func (e *Extractor) extractBand(ctx context.Context, lc *Context, href string, roi model.RegionOfInterest) (model.BandData, error) {
	raster, err := e.Source.Open(ctx, href)
	if err != nil {
		return model.BandData{}, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Failed to open raster %s.", href), err))
	}
	defer raster.Close()

	polygon, err := raster.Reproject(roi)
	if err != nil {
		return model.BandData{}, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Failed to reproject region into the CRS of %s.", href), err))
	}

	width, height := raster.Size()
	gt, err := raster.GeoTransform()
	if err != nil {
		return model.BandData{}, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Raster %s has no geotransform.", href), err))
	}
	window := gt.Window(polygon.Bound(), width, height)
	if window.Empty() {
		err := util.Error{SimpleMsg: fmt.Sprintf("Raster %s has no matching geometry.", href), URL: href, Kind: util.DataAccess}
		return model.BandData{}, err.Log(lc, "")
	}

	values, err := raster.Read(window)
	if err != nil {
		return model.BandData{}, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, fmt.Sprintf("Failed to read raster %s.", href), err))
	}
	if len(values) != window.Width*window.Height {
		return model.BandData{}, util.NewError(util.DataAccess, "raster %s returned %d values for a %dx%d window", href, len(values), window.Width, window.Height)
	}

	nodata, hasNoData := raster.NoData()
	maskOutside(values, window, gt, polygon)
	if hasNoData {
		for i, v := range values {
			if v == nodata {
				values[i] = math.NaN()
			}
		}
	}

	scale, ok := raster.Scale()
	if !ok || scale == 0 {
		scale = 1
	}
	if e.ApplyScale {
		for i := range values {
			values[i] *= scale
		}
		scale = 1
	}

	return model.BandData{Values: values, Width: window.Width, Height: window.Height, Scale: scale}, nil
}

// maskOutside sets the pixels whose centre falls outside polygon to NaN
func maskOutside(values []float64, window Window, gt GeoTransform, polygon orb.Polygon) {
	for row := 0; row < window.Height; row++ {
		for col := 0; col < window.Width; col++ {
			center := gt.PixelCenter(window.X+col, window.Y+row)
			if !planar.PolygonContains(polygon, center) {
				values[row*window.Width+col] = math.NaN()
			}
		}
	}
}

// InputArray stacks the bands into the H x W x 6 model input
func InputArray(bands model.BandArray) (model.Stack, error) {
	stack, err := bands.Stack()
	if err != nil {
		return model.Stack{}, util.WrapError(util.Configuration, err)
	}
	return stack, nil
}
