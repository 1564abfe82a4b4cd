package extraction

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNoData = -9999.0

// fakeRaster is a 4x4 raster whose CRS is lon/lat, covering 0..4 in both axes
type fakeRaster struct {
	values []float64
	scale  float64
	closed *int
	gtErr  error
}

func (r *fakeRaster) Size() (int, int) { return 4, 4 }

func (r *fakeRaster) GeoTransform() (GeoTransform, error) {
	return GeoTransform{0, 1, 0, 4, 0, -1}, r.gtErr
}

func (r *fakeRaster) NoData() (float64, bool) { return testNoData, true }

func (r *fakeRaster) Scale() (float64, bool) { return r.scale, r.scale != 0 }

func (r *fakeRaster) Reproject(roi model.RegionOfInterest) (orb.Polygon, error) {
	return roi.Polygon(), nil
}

func (r *fakeRaster) Read(w Window) ([]float64, error) {
	out := make([]float64, 0, w.Width*w.Height)
	for row := w.Y; row < w.Y+w.Height; row++ {
		for col := w.X; col < w.X+w.Width; col++ {
			out = append(out, r.values[row*4+col])
		}
	}
	return out, nil
}

func (r *fakeRaster) Close() error {
	*r.closed++
	return nil
}

type fakeSource struct {
	opened []string
	closed int
	scale  float64
	fail   map[string]bool

	// ungeoreferenced rasters open but carry no geotransform
	ungeoreferenced map[string]bool
}

func (s *fakeSource) Open(ctx context.Context, href string) (Raster, error) {
	if s.fail[href] {
		return nil, errors.New("HTTP 403 from " + href)
	}
	s.opened = append(s.opened, href)
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(100 * (i + 1))
	}
	values[14] = testNoData
	raster := &fakeRaster{values: values, scale: s.scale, closed: &s.closed}
	if s.ungeoreferenced[href] {
		raster.gtErr = errors.New("failed to get geotransform")
	}
	return raster, nil
}

func testScene(collection model.Collection) model.SceneRecord {
	assets := map[string]string{"browse": "browse.jpg", "Fmask": "Fmask.tif"}
	for _, code := range collection.ProviderBands() {
		assets[code] = code + ".tif"
	}
	return model.NewSceneRecord("scene", collection, time.Unix(0, 0), nil, assets)
}

func testRegion(t *testing.T, bbox string) model.RegionOfInterest {
	region, err := model.RegionFromBbox(bbox)
	require.Nil(t, err)
	return region
}

func TestExtract_BandCodesPerCollection(t *testing.T) {
	expected := map[model.Collection][]string{
		model.HLSS30: {"B02.tif", "B03.tif", "B04.tif", "B11.tif", "B12.tif", "B8A.tif"},
		model.HLSL30: {"B02.tif", "B03.tif", "B04.tif", "B05.tif", "B06.tif", "B07.tif"},
	}
	for collection, hrefs := range expected {
		// Mock
		source := &fakeSource{scale: 0.0001}
		extractor := Extractor{Source: source}

		// Tested code
		bands, err := extractor.Extract(context.Background(), testScene(collection), testRegion(t, "0,0,2,2"))

		// Asserts
		require.Nil(t, err)
		sort.Strings(source.opened)
		assert.Equal(t, hrefs, source.opened)
		assert.Equal(t, 6, source.closed)
		assert.Len(t, bands, 6)
		for _, band := range model.AllBands {
			_, ok := bands[band]
			assert.True(t, ok, band.String())
		}
	}
}

func TestExtract_ApplyScale(t *testing.T) {
	// Mock
	source := &fakeSource{scale: 0.0001}
	extractor := Extractor{Source: source, ApplyScale: true}

	// Tested code
	bands, err := extractor.Extract(context.Background(), testScene(model.HLSS30), testRegion(t, "0,0,2,2"))

	// Asserts
	require.Nil(t, err)
	for _, band := range model.AllBands {
		data := bands[band]
		assert.Equal(t, 1.0, data.Scale)
		assert.Equal(t, 2, data.Width)
		assert.Equal(t, 2, data.Height)
		assert.InDelta(t, 0.09, data.At(0, 0), 1e-9)
		assert.InDelta(t, 0.14, data.At(1, 1), 1e-9)
	}
}

func TestExtract_DeferredScale(t *testing.T) {
	// Mock
	source := &fakeSource{scale: 0.0001}
	extractor := Extractor{Source: source}

	// Tested code
	bands, err := extractor.Extract(context.Background(), testScene(model.HLSL30), testRegion(t, "0,0,2,2"))

	// Asserts
	require.Nil(t, err)
	for band, scale := range bands.ScaleFactors() {
		assert.Equal(t, 0.0001, scale, band.String())
	}
	assert.Equal(t, []float64{900, 1000, 1300, 1400}, bands[model.Red].Values)
}

func TestExtract_NoSourceScale(t *testing.T) {
	source := &fakeSource{}
	extractor := Extractor{Source: source}

	bands, err := extractor.Extract(context.Background(), testScene(model.HLSL30), testRegion(t, "0,0,2,2"))

	require.Nil(t, err)
	assert.Equal(t, 1.0, bands[model.Blue].Scale)
}

func TestExtract_NoDataAndOutsideAreNaN(t *testing.T) {
	// Mock: a triangle over the bottom-right 2x2 block, excluding its top-left pixel
	source := &fakeSource{scale: 0.0001}
	extractor := Extractor{Source: source}
	triangle, err := model.NewRegionOfInterest(orb.Polygon{orb.Ring{{2.1, 0.1}, {3.9, 0.1}, {3.9, 2.0}}})
	require.Nil(t, err)

	// Tested code
	bands, err := extractor.Extract(context.Background(), testScene(model.HLSS30), triangle)

	// Asserts
	require.Nil(t, err)
	nir := bands[model.NIR]
	assert.Equal(t, 2, nir.Width)
	assert.Equal(t, 2, nir.Height)
	assert.True(t, math.IsNaN(nir.At(0, 0)), "outside the triangle")
	assert.Equal(t, 1200.0, nir.At(1, 0))
	assert.True(t, math.IsNaN(nir.At(0, 1)), "nodata")
	assert.Equal(t, 1600.0, nir.At(1, 1))
	assert.Equal(t, 0.5, nir.ValidFraction())
}

func TestExtract_Errors(t *testing.T) {
	region := testRegion(t, "0,0,2,2")

	// Missing asset
	partial := model.NewSceneRecord("partial", model.HLSS30, time.Unix(0, 0), nil, map[string]string{"B02": "B02.tif"})
	_, err := (&Extractor{Source: &fakeSource{}}).Extract(context.Background(), partial, region)
	assert.True(t, util.IsKind(err, util.DataAccess))

	// Unreadable raster
	failing := &fakeSource{fail: map[string]bool{"B11.tif": true}}
	_, err = (&Extractor{Source: failing}).Extract(context.Background(), testScene(model.HLSS30), region)
	assert.True(t, util.IsKind(err, util.DataAccess))
	assert.Contains(t, err.Error(), "403")

	// No overlap
	_, err = (&Extractor{Source: &fakeSource{}}).Extract(context.Background(), testScene(model.HLSS30), testRegion(t, "10,10,12,12"))
	assert.True(t, util.IsKind(err, util.DataAccess))
	assert.Contains(t, err.Error(), "no matching geometry")

	// No geotransform
	ungeoreferenced := &fakeSource{ungeoreferenced: map[string]bool{"B02.tif": true}}
	_, err = (&Extractor{Source: ungeoreferenced}).Extract(context.Background(), testScene(model.HLSS30), region)
	assert.True(t, util.IsKind(err, util.DataAccess))
	assert.Contains(t, err.Error(), "no geotransform")
}

func TestGeoTransform_Window(t *testing.T) {
	gt := GeoTransform{100, 30, 0, 1000, 0, -30}

	w := gt.Window(orb.Bound{Min: orb.Point{130, 880}, Max: orb.Point{205, 970}}, 100, 100)
	assert.Equal(t, Window{X: 1, Y: 1, Width: 3, Height: 3}, w)

	clamped := gt.Window(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10000, 10000}}, 10, 20)
	assert.Equal(t, Window{X: 0, Y: 0, Width: 10, Height: 20}, clamped)

	assert.True(t, gt.Window(orb.Bound{Min: orb.Point{-500, 880}, Max: orb.Point{-400, 970}}, 10, 10).Empty())
	assert.Equal(t, orb.Point{115, 985}, gt.PixelCenter(0, 0))
}

func TestInputArray(t *testing.T) {
	source := &fakeSource{scale: 0.5}
	bands, err := (&Extractor{Source: source}).Extract(context.Background(), testScene(model.HLSS30), testRegion(t, "0,0,2,2"))
	require.Nil(t, err)

	stack, err := InputArray(bands)

	require.Nil(t, err)
	assert.Equal(t, 6, stack.Channels)
	assert.Equal(t, 450.0, stack.At(0, 0, 0))

	delete(bands, model.SWIR1)
	_, err = InputArray(bands)
	assert.True(t, util.IsKind(err, util.Configuration))
}
