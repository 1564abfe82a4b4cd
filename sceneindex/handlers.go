package sceneindex

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/sceneindex/db"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/gorilla/mux"
	"github.com/venicegeo/geojson-go/geojson"
)

// DiscoverHandler is a handler for /index/discover
// @Title indexDiscoverHandler
// @Description discovers HLS scenes held in the local index
// @Accept  plain
// @Param   bbox            query   string  true         "The bounding box, as a GeoJSON Bounding box (x1,y1,x2,y2)"
// @Param   collection      query   string  false        "HLSS30.v2.0 or HLSL30.v2.0; both when absent"
// @Param   acquiredDate    query   string  false        "The minimum (earliest) acquired date, as YYYY-MM-DD"
// @Param   maxAcquiredDate query   string  false        "The maximum acquired date, as YYYY-MM-DD"
// @Success 200 {object}  geojson.FeatureCollection
// @Failure 400 {object}  string
// @Router /index/discover [get]
type DiscoverHandler struct {
	Context Context
}

// NewDiscoverHandler creates a new handler using the given DB
func NewDiscoverHandler(connectionProvider db.ConnectionProvider) (*DiscoverHandler, error) {
	conn, err := connectionProvider(&util.BasicLogContext{})
	if err != nil {
		return nil, err
	}
	return &DiscoverHandler{Context: Context{DB: conn}}, nil
}

// ServeHTTP implements the http.Handler interface for the DiscoverHandler type
func (h DiscoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromRequest(r)
	if err != nil {
		util.LogSimpleErr(&h.Context, err.Error(), err)
		util.HTTPError(r, w, &h.Context, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.Context.DB.Begin()
	if err != nil {
		message := fmt.Sprintf("Could not begin DB transaction: %v", err)
		util.LogSimpleErr(&h.Context, message, err)
		util.HTTPError(r, w, &h.Context, message, http.StatusInternalServerError)
		return
	}
	defer tx.Commit()

	scenes, err := db.SearchScenes(tx, filter)
	if err != nil {
		message := fmt.Sprintf("Error searching for scenes: %v", err)
		util.LogSimpleErr(&h.Context, message, err)
		util.HTTPError(r, w, &h.Context, message, http.StatusInternalServerError)
		return
	}

	featureCollection, err := model.NewMultiSceneResult(scenes).GeoJSONFeatureCollection()
	if err != nil {
		message := fmt.Sprintf("Error converting to feature collection: %v", err)
		util.LogSimpleErr(&h.Context, message, err)
		util.HTTPError(r, w, &h.Context, message, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write([]byte(featureCollection.String()))
}

func filterFromRequest(r *http.Request) (db.SearchFilter, error) {
	var filter db.SearchFilter
	bbox, err := geojson.NewBoundingBox(r.FormValue("bbox"))
	if err != nil || len(bbox) != 4 {
		return filter, fmt.Errorf("The bbox value of %v is invalid", r.FormValue("bbox"))
	}
	copy(filter.Bbox[:], bbox)

	if collection := r.FormValue("collection"); collection != "" {
		if _, err = model.ParseCollection(collection); err != nil {
			return filter, fmt.Errorf("Collection value of %v is invalid.", collection)
		}
		filter.Collection = collection
	}

	filter.MinAcquiredDate = "1970-01-01"
	if value := r.FormValue("acquiredDate"); value != "" {
		if _, err = model.ParseDate(value); err != nil {
			return filter, fmt.Errorf("Acquired date value of %v is invalid.", value)
		}
		filter.MinAcquiredDate = value
	}
	filter.MaxAcquiredDate = model.FormatDate(time.Now())
	if value := r.FormValue("maxAcquiredDate"); value != "" {
		if _, err = model.ParseDate(value); err != nil {
			return filter, fmt.Errorf("Acquired date value of %v is invalid.", value)
		}
		filter.MaxAcquiredDate = value
	}
	return filter, nil
}

// MetadataHandler is a handler for /index/scenes/{id}
// @Title indexMetadataHandler
// @Description returns a single indexed scene with its band URLs
// @Accept  plain
// @Param   id            path   string  true        "The ID of the requested scene"
// @Success 200 {object}  geojson.Feature
// @Failure 404 {object}  string
// @Router /index/scenes/{id} [get]
type MetadataHandler struct {
	Context Context
}

// NewMetadataHandler creates a new handler using the given DB
func NewMetadataHandler(connectionProvider db.ConnectionProvider) (*MetadataHandler, error) {
	conn, err := connectionProvider(&util.BasicLogContext{})
	if err != nil {
		return nil, err
	}
	return &MetadataHandler{Context: Context{DB: conn}}, nil
}

func (h MetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scene, ok := lookupScene(&h.Context, w, r)
	if !ok {
		return
	}

	feature, err := model.NewSceneResult(*scene).GeoJSONFeature()
	if err != nil {
		message := fmt.Sprintf("Error converting scene to geojson: %v", err)
		util.LogSimpleErr(&h.Context, message, err)
		util.HTTPError(r, w, &h.Context, message, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write([]byte(feature.String()))
}

// PreviewImageHandler is a handler for /index/preview/{id}
// @Title indexPreviewImageHandler
// @Description performs a redirect to the scene's browse image
// @Accept  plain
// @Success 302 redirect to actual image
// @Failure 404 {object}  string
// @Router /index/preview/{id} [get]
type PreviewImageHandler struct {
	Context Context
}

// NewPreviewImageHandler creates a new handler using the given DB
func NewPreviewImageHandler(connectionProvider db.ConnectionProvider) (*PreviewImageHandler, error) {
	conn, err := connectionProvider(&util.BasicLogContext{})
	if err != nil {
		return nil, err
	}
	return &PreviewImageHandler{Context: Context{DB: conn}}, nil
}

func (h PreviewImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scene, ok := lookupScene(&h.Context, w, r)
	if !ok {
		return
	}
	if scene.BrowseURL == "" {
		message := fmt.Sprintf("Scene %s has no browse image", scene.ID)
		util.LogInfo(&h.Context, message)
		util.HTTPError(r, w, &h.Context, message, http.StatusNotFound)
		return
	}

	w.Header().Set("Location", scene.BrowseURL)
	w.WriteHeader(http.StatusFound)
}

// lookupScene resolves the {id} route variable, writing the error response
// itself when it cannot
func lookupScene(lc *Context, w http.ResponseWriter, r *http.Request) (*model.SceneRecord, bool) {
	sceneID, ok := mux.Vars(r)["id"]
	if !ok {
		message := "No scene ID found in URL"
		util.LogAlert(lc, message)
		util.HTTPError(r, w, lc, message, http.StatusNotFound)
		return nil, false
	}

	tx, err := lc.DB.Begin()
	if err != nil {
		message := fmt.Sprintf("Could not begin DB transaction: %v", err)
		util.LogSimpleErr(lc, message, err)
		util.HTTPError(r, w, lc, message, http.StatusInternalServerError)
		return nil, false
	}
	defer tx.Commit()

	scene, err := db.GetSceneByID(tx, sceneID)
	if err == sql.ErrNoRows {
		message := fmt.Sprintf("Scene not found: %s", sceneID)
		util.LogInfo(lc, message)
		util.HTTPError(r, w, lc, message, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		message := fmt.Sprintf("Server error searching for scene: %v", err)
		util.LogSimpleErr(lc, message, err)
		util.HTTPError(r, w, lc, message, http.StatusInternalServerError)
		return nil, false
	}
	return scene, true
}
