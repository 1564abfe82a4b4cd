package model

import (
	"github.com/venicegeo/geojson-go/geojson"
)

// GeoJSONFeatureCreator is implemented by results that render as a single GeoJSON feature
type GeoJSONFeatureCreator interface {
	GeoJSONFeature() (*geojson.Feature, error)
}

// GeoJSONFeatureCollectionCreator is implemented by results that render as a feature collection
type GeoJSONFeatureCollectionCreator interface {
	GeoJSONFeatureCollection() (*geojson.FeatureCollection, error)
}

// GeoJSONFeatureMixin adds properties to a feature built elsewhere
type GeoJSONFeatureMixin interface {
	Apply(*geojson.Feature) error
}

// SceneResult is the broker's view of a catalog scene
type SceneResult struct {
	Scene SceneRecord
	// Bands is optional; scenes missing a band asset are still listed
	*HLSBands
}

// NewSceneResult builds a result, attaching band URLs when all six are present
func NewSceneResult(scene SceneRecord) SceneResult {
	result := SceneResult{Scene: scene}
	if bands, err := NewHLSBands(scene); err == nil {
		result.HLSBands = bands
	}
	return result
}

// GeoJSONFeature implements the GeoJSONFeatureCreator interface
func (result SceneResult) GeoJSONFeature() (*geojson.Feature, error) {
	scene := result.Scene
	f := geojson.NewFeature(scene.Geometry, scene.ID, map[string]interface{}{
		"collection":   string(scene.Collection),
		"cloudCover":   scene.CloudCover,
		"acquiredDate": scene.AcquiredDate.Format(CatalogTimeFormat),
		"sensorName":   scene.Collection.SensorName(),
		"resolution":   Resolution,
	})
	if scene.Geometry != nil {
		f.Bbox = f.ForceBbox()
	}

	mixins := []GeoJSONFeatureMixin{BrowseImage{URL: scene.BrowseURL}}
	if result.HLSBands != nil {
		mixins = append(mixins, result.HLSBands)
	}
	for _, mixin := range mixins {
		if err := mixin.Apply(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// MultiSceneResult bundles results together, e.g. as the response of a search
type MultiSceneResult struct {
	FeatureCreators []GeoJSONFeatureCreator
}

// NewMultiSceneResult wraps every scene in a SceneResult
func NewMultiSceneResult(scenes []SceneRecord) MultiSceneResult {
	creators := make([]GeoJSONFeatureCreator, len(scenes))
	for i, scene := range scenes {
		creators[i] = NewSceneResult(scene)
	}
	return MultiSceneResult{FeatureCreators: creators}
}

// GeoJSONFeatureCollection implements the GeoJSONFeatureCollectionCreator interface
func (result MultiSceneResult) GeoJSONFeatureCollection() (*geojson.FeatureCollection, error) {
	var err error
	features := make([]*geojson.Feature, len(result.FeatureCreators))
	for i, creator := range result.FeatureCreators {
		features[i], err = creator.GeoJSONFeature()
		if err != nil {
			return nil, err
		}
	}

	return geojson.NewFeatureCollection(features), nil
}
