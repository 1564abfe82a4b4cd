package composite

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexHandler(t *testing.T) {
	// Mock
	archive := &fakeArchive{images: map[model.Instrument][]model.Image{
		model.Sentinel2: {image("s2-a", model.Sentinel2, at(2, 8))},
		model.Landsat9:  {image("l9-a", model.Landsat9, at(2, 9))},
	}}
	handler := IndexHandler{Builder: &Builder{Archive: archive}}
	recorder := httptest.NewRecorder()

	// Tested code
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/composites?bbox=28.1,-16.6,28.6,-16.2&startDate=2023-06-01&endDate=2023-06-05", nil))

	// Asserts
	require.Equal(t, http.StatusOK, recorder.Code)
	var response indexResponse
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, []string{"2023-06-02"}, response.Dates)
	images := response.Images["2023-06-02"]
	require.Len(t, images, 2)
	assert.Equal(t, model.Sentinel2, images[0].Instrument)
	assert.Equal(t, model.Landsat9, images[1].Instrument)
}

func TestIndexHandler_Errors(t *testing.T) {
	handler := IndexHandler{Builder: &Builder{Archive: &fakeArchive{queryErr: errors.New("quota exceeded")}}}

	badBbox := httptest.NewRecorder()
	handler.ServeHTTP(badBbox, httptest.NewRequest("GET", "/composites?bbox=1,2&startDate=2023-06-01&endDate=2023-06-05", nil))
	badDates := httptest.NewRecorder()
	handler.ServeHTTP(badDates, httptest.NewRequest("GET", "/composites?bbox=28.1,-16.6,28.6,-16.2&startDate=2023-06-09&endDate=2023-06-05", nil))
	archiveDown := httptest.NewRecorder()
	handler.ServeHTTP(archiveDown, httptest.NewRequest("GET", "/composites?bbox=28.1,-16.6,28.6,-16.2&startDate=2023-06-01&endDate=2023-06-05", nil))

	assert.Equal(t, http.StatusBadRequest, badBbox.Code)
	assert.Equal(t, http.StatusBadRequest, badDates.Code)
	assert.Equal(t, http.StatusBadGateway, archiveDown.Code)
}
