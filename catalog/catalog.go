package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/venicegeo/geojson-go/geojson"
)

// SearchURL returns the item search endpoint below the given STAC root
func SearchURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + Provider + "/search"
}

// Search returns the HLS scenes intersecting the region within the date range
func Search(ctx context.Context, options SearchOptions, lc *Context) ([]model.SceneRecord, error) {
	var (
		err          error
		response     *http.Response
		requestBody  []byte
		responseBody []byte
	)

	req, err := newRequest(options)
	if err != nil {
		util.LogAlert(lc, err.Error())
		return nil, err
	}
	if requestBody, err = json.Marshal(req); err != nil {
		err = util.LogSimpleErr(lc, fmt.Sprintf("Failed to marshal request object %#v.", req), err)
		return nil, util.WrapError(util.Configuration, err)
	}
	if response, err = catalogRequest(ctx, requestBody, lc); err != nil {
		err = util.LogSimpleErr(lc, fmt.Sprintf("Failed to complete catalog request %v.", string(requestBody)), err)
		metrics.CatalogRequests.WithLabelValues("error").Inc()
		return nil, util.WrapError(util.DataAccess, err)
	}
	defer response.Body.Close()
	metrics.CatalogRequests.WithLabelValues(fmt.Sprint(response.StatusCode)).Inc()

	if responseBody, err = io.ReadAll(response.Body); err != nil {
		err = util.LogSimpleErr(lc, "Failed to read the catalog response.", err)
		return nil, util.WrapError(util.DataAccess, err)
	}
	switch {
	case response.StatusCode == http.StatusOK:
		//no op
	case (response.StatusCode >= 400) && (response.StatusCode < 500):
		message := fmt.Sprintf("Failed to discover scenes from the catalog: %v. %s", response.Status, string(responseBody))
		util.LogAlert(lc, message)
		return nil, util.HTTPErr{Status: response.StatusCode, Message: message}
	case response.StatusCode >= 500:
		err = util.LogSimpleErr(lc, "Failed to discover scenes from the catalog.", errors.New(response.Status))
		return nil, util.HTTPErr{Status: response.StatusCode, Message: err.Error()}
	default:
		message := fmt.Sprintf("Unexpected catalog response: %v.", response.Status)
		util.LogAlert(lc, message)
		return nil, util.HTTPErr{Status: response.StatusCode, Message: message}
	}

	scenes, err := parseSearchResults(lc, responseBody)
	if err != nil {
		return nil, err
	}
	util.LogInfo(lc, fmt.Sprintf("Catalog returned %d scenes for %s/%s.", len(scenes), options.StartDate, options.EndDate))
	return scenes, nil
}

// SearchFeatures runs Search and renders the scenes as a FeatureCollection
func SearchFeatures(ctx context.Context, options SearchOptions, lc *Context) (*geojson.FeatureCollection, error) {
	scenes, err := Search(ctx, options, lc)
	if err != nil {
		return nil, err
	}
	return model.NewMultiSceneResult(scenes).GeoJSONFeatureCollection()
}

func newRequest(options SearchOptions) (request, error) {
	var req request
	if options.Region.IsEmpty() {
		return req, util.NewError(util.Configuration, "a search region is required")
	}
	start, err := model.ParseDate(options.StartDate)
	if err != nil {
		return req, util.WrapError(util.Configuration, err)
	}
	end, err := model.ParseDate(options.EndDate)
	if err != nil {
		return req, util.WrapError(util.Configuration, err)
	}
	if start.After(end) {
		return req, util.NewError(util.Configuration, "start date %s is after end date %s", options.StartDate, options.EndDate)
	}

	req.Bbox = options.Region.BBox()
	req.Datetime = fmt.Sprintf("%sT00:00:00Z/%sT23:59:59Z", options.StartDate, options.EndDate)
	req.Limit = options.Limit
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	for _, collection := range model.Collections {
		req.Collections = append(req.Collections, string(collection))
	}
	return req, nil
}

func catalogRequest(ctx context.Context, body []byte, lc *Context) (*http.Response, error) {
	var (
		request *http.Request
		err     error
	)
	inputURL := SearchURL(lc.BaseURL)
	if request, err = http.NewRequestWithContext(ctx, http.MethodPost, inputURL, bytes.NewBuffer(body)); err != nil {
		err = util.LogSimpleErr(lc, fmt.Sprintf("Failed to make a new HTTP request for %v.", inputURL), err)
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/geo+json")

	util.LogAudit(lc, util.LogAuditInput{Actor: "catalog/doRequest", Action: http.MethodPost, Actee: inputURL, Message: "Requesting scenes from the catalog: " + string(body), Severity: util.INFO})
	response, err := util.HTTPClient().Do(request)
	if err == nil {
		util.LogAudit(lc, util.LogAuditInput{Actor: inputURL, Action: http.MethodPost + " response", Actee: "catalog/doRequest", Message: "Receiving data from the catalog: " + response.Status, Severity: util.INFO})
	}
	return response, err
}
