package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

const wgs84Proj4 = "+proj=longlat +datum=WGS84 +no_defs"

var registerOnce sync.Once

// GDALSource opens cloud-optimized GeoTIFFs over /vsicurl/ with Earthdata
// login taken from a netrc file
type GDALSource struct {
	options []string
}

// NewGDALSource checks that the netrc file holds Earthdata credentials and
// prepares the GDAL HTTP configuration
func NewGDALSource(lc util.LogContext, netrcPath, cookieFile string) (*GDALSource, error) {
	if _, err := util.EarthdataCredentials(lc, netrcPath); err != nil {
		return nil, err
	}
	registerOnce.Do(godal.RegisterAll)
	util.LogInfo(lc, "GDAL configured for Earthdata access.")
	return &GDALSource{options: []string{
		"GDAL_HTTP_COOKIEFILE=" + cookieFile,
		"GDAL_HTTP_COOKIEJAR=" + cookieFile,
		"GDAL_DISABLE_READDIR_ON_OPEN=EMPTY_DIR",
		"CPL_VSIL_CURL_ALLOWED_EXTENSIONS=TIF",
		"GDAL_HTTP_NETRC=YES",
		"GDAL_HTTP_NETRC_FILE=" + netrcPath,
	}}, nil
}

// Open implements RasterSource
func (s *GDALSource) Open(ctx context.Context, href string) (Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := href
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		name = "/vsicurl/" + href
	}
	ds, err := godal.Open(name, godal.ConfigOption(s.options...))
	if err != nil {
		return nil, err
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		ds.Close()
		return nil, fmt.Errorf("%s has no bands", href)
	}
	return &gdalRaster{ds: ds, band: bands[0]}, nil
}

type gdalRaster struct {
	ds   *godal.Dataset
	band godal.Band
}

func (r *gdalRaster) Size() (int, int) {
	st := r.ds.Structure()
	return st.SizeX, st.SizeY
}

func (r *gdalRaster) GeoTransform() (GeoTransform, error) {
	gt, err := r.ds.GeoTransform()
	if err != nil {
		return GeoTransform{}, err
	}
	return GeoTransform(gt), nil
}

func (r *gdalRaster) NoData() (float64, bool) {
	return r.band.NoData()
}

func (r *gdalRaster) Scale() (float64, bool) {
	scale := r.band.Structure().Scale
	return scale, scale != 0
}

func (r *gdalRaster) Reproject(roi model.RegionOfInterest) (orb.Polygon, error) {
	src, err := godal.NewSpatialRefFromProj4(wgs84Proj4)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst, err := godal.NewSpatialRefFromWKT(r.ds.Projection())
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	geom, err := godal.NewGeometryFromWKT(roi.WKT(), src)
	if err != nil {
		return nil, err
	}
	defer geom.Close()
	if err = geom.Reproject(dst); err != nil {
		return nil, err
	}
	text, err := geom.WKT()
	if err != nil {
		return nil, err
	}
	return wkt.UnmarshalPolygon(text)
}

func (r *gdalRaster) Read(window Window) ([]float64, error) {
	buf := make([]float64, window.Width*window.Height)
	if err := r.band.Read(window.X, window.Y, buf, window.Width, window.Height); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *gdalRaster) Close() error {
	return r.ds.Close()
}
