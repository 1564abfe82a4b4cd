package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
)

// DiscoverHandler is a handler for /catalog/search
// @Title catalogDiscoverHandler
// @Description discovers HLS scenes from the CMR-STAC catalog
// @Accept  plain
// @Param   bbox            query   string  false        "The bounding box, as a GeoJSON Bounding box (x1,y1,x2,y2)"
// @Param   region          query   string  false        "A GeoJSON polygon, feature or feature collection; used when bbox is absent"
// @Param   startDate       query   string  true         "The first acquisition date, as YYYY-MM-DD"
// @Param   endDate         query   string  true         "The last acquisition date, as YYYY-MM-DD"
// @Param   limit           query   int     false        "The maximum number of scenes"
// @Success 200 {object}  geojson.FeatureCollection
// @Failure 400 {object}  string
// @Router /catalog/search [get]
type DiscoverHandler struct {
	Context Context
}

// NewDiscoverHandler creates a new handler searching the catalog at baseURL
func NewDiscoverHandler(baseURL string) *DiscoverHandler {
	return &DiscoverHandler{Context: Context{BaseURL: baseURL}}
}

// ServeHTTP implements the http.Handler interface for the DiscoverHandler type
func (h DiscoverHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	options, err := searchOptionsFromRequest(request)
	if err != nil {
		util.HTTPError(request, writer, &h.Context, err.Error(), http.StatusBadRequest)
		return
	}

	fc, err := SearchFeatures(request.Context(), options, &h.Context)
	if err != nil {
		util.HTTPError(request, writer, &h.Context, err.Error(), util.StatusForError(err))
		return
	}
	writer.Header().Set("Content-Type", "application/geo+json")
	writer.Write([]byte(fc.String()))
}

func searchOptionsFromRequest(request *http.Request) (SearchOptions, error) {
	options := SearchOptions{
		StartDate: request.FormValue("startDate"),
		EndDate:   request.FormValue("endDate"),
	}
	region := request.FormValue("bbox")
	if region == "" {
		region = request.FormValue("region")
	}
	var err error
	if options.Region, err = model.ParseRegion(region); err != nil {
		return options, fmt.Errorf("The region value of %v is invalid: %v", region, err)
	}
	if limit := request.FormValue("limit"); limit != "" {
		if options.Limit, err = strconv.Atoi(limit); err != nil || options.Limit < 1 {
			return options, fmt.Errorf("The limit value of %v is invalid.", limit)
		}
	}
	return options, nil
}
