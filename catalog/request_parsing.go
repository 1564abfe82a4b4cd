package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/venicegeo/geojson-go/geojson"
)

func parseSearchResults(lc *Context, body []byte) ([]model.SceneRecord, error) {
	featureCollection, err := rawBytesToFeatureCollection(lc, body)
	if err != nil {
		return nil, err
	}

	var extras searchResults
	if err = json.Unmarshal(body, &extras); err != nil {
		return nil, util.WrapError(util.DataAccess, util.LogSimpleErr(lc, "Failed to read STAC fields of search results.", err))
	}
	if len(extras.Features) != len(featureCollection.Features) {
		stErr := util.Error{SimpleMsg: fmt.Sprintf("Expected %d STAC items and got %d", len(featureCollection.Features), len(extras.Features)), Response: string(body)}
		return nil, stErr.Log(lc, "")
	}

	results := make([]model.SceneRecord, 0, len(featureCollection.Features))
	for i, feature := range featureCollection.Features {
		result, err := sceneRecordFromFeature(feature, extras.Features[i])
		if err != nil {
			stErr := util.Error{LogMsg: err.Error(), SimpleMsg: fmt.Sprintf("Catalog returned an invalid item %s.", feature.IDStr()), Response: feature.String()}
			return nil, stErr.Log(lc, "")
		}
		results = append(results, result)
	}

	return results, nil
}

func rawBytesToFeatureCollection(lc *Context, body []byte) (*geojson.FeatureCollection, error) {
	var (
		featureCollection *geojson.FeatureCollection
		geoJSONParsedData interface{}
		ok                bool
		err               error
	)
	if geoJSONParsedData, err = geojson.Parse(body); err != nil {
		err = util.LogSimpleErr(lc, fmt.Sprintf("Failed to parse GeoJSON.\n%v", string(body)), err)
		return nil, util.WrapError(util.DataAccess, err)
	}

	if featureCollection, ok = geoJSONParsedData.(*geojson.FeatureCollection); !ok {
		stErr := util.Error{SimpleMsg: fmt.Sprintf("Expected a FeatureCollection and got %T", geoJSONParsedData), Response: string(body)}
		return nil, stErr.Log(lc, "")
	}

	return featureCollection, nil
}

func sceneRecordFromFeature(feature *geojson.Feature, extra stacItem) (model.SceneRecord, error) {
	id := feature.IDStr()
	if id == "" {
		id = extra.ID
	}
	if id != extra.ID {
		return model.SceneRecord{}, fmt.Errorf("item %s does not line up with %s", id, extra.ID)
	}
	acquiredDate, err := model.ParseCatalogTime(feature.PropertyString("datetime"))
	if err != nil {
		return model.SceneRecord{}, err
	}
	collection, err := model.ParseCollection(extra.Collection)
	if err != nil {
		return model.SceneRecord{}, err
	}

	hrefs := make(map[string]string, len(extra.Assets))
	for key, a := range extra.Assets {
		hrefs[key] = a.Href
	}

	scene := model.NewSceneRecord(id, collection, acquiredDate, feature.Geometry, hrefs)
	if cc, ok := feature.Properties["eo:cloud_cover"].(float64); ok {
		scene.CloudCover = cc
	}
	scene.BrowseURL = hrefs["browse"]
	return scene, nil
}
