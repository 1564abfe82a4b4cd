package composite

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
)

// IndexHandler is a handler for /composites
// @Title compositeIndexHandler
// @Description builds the date/instrument composite index of a region
// @Accept  plain
// @Param   bbox            query   string  true         "The bounding box, as a GeoJSON Bounding box (x1,y1,x2,y2)"
// @Param   startDate       query   string  true         "The first date, as YYYY-MM-DD"
// @Param   endDate         query   string  true         "The last date, as YYYY-MM-DD"
// @Success 200 {object}  model.CompositeIndex
// @Failure 400 {object}  string
// @Router /composites [get]
type IndexHandler struct {
	Builder *Builder
}

func (h IndexHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	lc := h.Builder.Context
	if lc == nil {
		lc = &Context{}
	}
	roi, err := model.ParseRegion(request.FormValue("bbox"))
	if err != nil {
		message := fmt.Sprintf("The bbox value of %v is invalid", request.FormValue("bbox"))
		util.HTTPError(request, writer, lc, message, http.StatusBadRequest)
		return
	}

	index, err := h.Builder.Build(request.Context(), roi, request.FormValue("startDate"), request.FormValue("endDate"))
	if err != nil {
		util.HTTPError(request, writer, lc, err.Error(), util.StatusForError(err))
		return
	}

	response := indexResponse{Dates: index.Dates(), Images: map[string][]model.Image{}}
	for _, date := range response.Dates {
		response.Images[date] = index.Images(date)
	}
	writer.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(writer).Encode(response); err != nil {
		util.LogSimpleErr(lc, "Failed to write composite index.", err)
	}
}

type indexResponse struct {
	Dates  []string                 `json:"dates"`
	Images map[string][]model.Image `json:"images"`
}
