package extraction

import (
	"context"
	"math"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/paulmach/orb"
)

// Window is a pixel rectangle of a raster
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the window covers no pixels
func (w Window) Empty() bool {
	return w.Width <= 0 || w.Height <= 0
}

// GeoTransform is the affine pixel-to-CRS transform in GDAL order
type GeoTransform [6]float64

// PixelCenter returns the CRS coordinates of the centre of pixel (col, row)
func (gt GeoTransform) PixelCenter(col, row int) orb.Point {
	x := float64(col) + 0.5
	y := float64(row) + 0.5
	return orb.Point{
		gt[0] + x*gt[1] + y*gt[2],
		gt[3] + x*gt[4] + y*gt[5],
	}
}

// Window returns the pixels covering bound, clamped to a raster of the given
// size. The transform must be north-up.
func (gt GeoTransform) Window(bound orb.Bound, width, height int) Window {
	colA := (bound.Min[0] - gt[0]) / gt[1]
	colB := (bound.Max[0] - gt[0]) / gt[1]
	rowA := (bound.Max[1] - gt[3]) / gt[5]
	rowB := (bound.Min[1] - gt[3]) / gt[5]

	x0 := clamp(int(math.Floor(math.Min(colA, colB))), 0, width)
	x1 := clamp(int(math.Ceil(math.Max(colA, colB))), 0, width)
	y0 := clamp(int(math.Floor(math.Min(rowA, rowB))), 0, height)
	y1 := clamp(int(math.Ceil(math.Max(rowA, rowB))), 0, height)
	return Window{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Raster is a single-band remote raster
type Raster interface {
	// Size returns the raster width and height in pixels
	Size() (int, int)
	GeoTransform() (GeoTransform, error)
	// NoData returns the nodata sentinel, if the raster declares one
	NoData() (float64, bool)
	// Scale returns the reflectance scale factor, if the raster declares one
	Scale() (float64, bool)
	// Reproject transforms a WGS84 region into the raster's CRS
	Reproject(roi model.RegionOfInterest) (orb.Polygon, error)
	// Read returns the window's values in row-major order
	Read(window Window) ([]float64, error)
	Close() error
}

// RasterSource opens rasters by asset href
type RasterSource interface {
	Open(ctx context.Context, href string) (Raster, error)
}
