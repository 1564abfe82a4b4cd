package model

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/venicegeo/geojson-go/geojson"
)

// HLSBands is a mixin containing the URLs of the six extracted bands of a scene
type HLSBands struct {
	Blue  url.URL
	Green url.URL
	Red   url.URL
	NIR   url.URL
	SWIR1 url.URL
	SWIR2 url.URL
}

// NewHLSBands creates a new HLSBands from the asset hrefs of a scene
func NewHLSBands(scene SceneRecord) (*HLSBands, error) {
	hrefs, err := scene.BandURLs()
	if err != nil {
		return nil, err
	}

	bands := HLSBands{}
	destinations := map[Band]*url.URL{
		Blue:  &bands.Blue,
		Green: &bands.Green,
		Red:   &bands.Red,
		NIR:   &bands.NIR,
		SWIR1: &bands.SWIR1,
		SWIR2: &bands.SWIR2,
	}
	for band, dest := range destinations {
		parsed, err := url.Parse(hrefs[band])
		if parsed == nil || parsed.String() == "" {
			err = errors.New("No band URL could be parsed")
		}
		if err != nil {
			return nil, fmt.Errorf("%s band of scene %s: %v", band, scene.ID, err)
		}
		*dest = *parsed
	}
	return &bands, nil
}

// Apply implements the GeoJSONFeatureMixin interface
func (b HLSBands) Apply(feature *geojson.Feature) error {
	feature.Properties["bands"] = map[string]string{
		Blue.String():  b.Blue.String(),
		Green.String(): b.Green.String(),
		Red.String():   b.Red.String(),
		NIR.String():   b.NIR.String(),
		SWIR1.String(): b.SWIR1.String(),
		SWIR2.String(): b.SWIR2.String(),
	}
	return nil
}

// BrowseImage is a mixin containing the quicklook of a scene
type BrowseImage struct {
	URL string
}

// Apply implements the GeoJSONFeatureMixin interface
func (bi BrowseImage) Apply(feature *geojson.Feature) error {
	if bi.URL != "" {
		feature.Properties["browseUrl"] = bi.URL
	}
	return nil
}
