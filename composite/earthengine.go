package composite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
)

const (
	earthEngineEndpoint = "https://earthengine.googleapis.com/v1"
	earthEngineScope    = "https://www.googleapis.com/auth/earthengine"
	listImagesPageSize  = 1000
)

// EarthEngineArchive lists images through the Earth Engine REST API. Mosaics
// stay server side: a mosaic is a handle listing its member assets, evaluated
// only when pixels are requested.
type EarthEngineArchive struct {
	client *http.Client
	// Endpoint is the REST API root, without a trailing slash
	Endpoint string
	// Project hosts the public catalog assets, e.g. earthengine-public
	Project string
	// ComputeProject is billed for pixel requests
	ComputeProject string
	Context        *Context
}

// NewEarthEngineArchive authenticates with a service account key file
func NewEarthEngineArchive(ctx context.Context, credentialsFile, project, computeProject string, lc *Context) (*EarthEngineArchive, error) {
	if credentialsFile == "" {
		return nil, util.NewError(util.Authentication, "no Earth Engine credentials configured")
	}
	client, _, err := htransport.NewClient(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(earthEngineScope))
	if err != nil {
		return nil, util.WrapError(util.Authentication, util.LogSimpleErr(lc, "Failed to authenticate with Earth Engine.", err))
	}
	return newEarthEngineArchive(client, earthEngineEndpoint, project, computeProject, lc), nil
}

func newEarthEngineArchive(client *http.Client, endpoint, project, computeProject string, lc *Context) *EarthEngineArchive {
	if computeProject == "" {
		computeProject = project
	}
	return &EarthEngineArchive{client: client, Endpoint: endpoint, Project: project, ComputeProject: computeProject, Context: lc}
}

func (a *EarthEngineArchive) parent(instrument model.Instrument) string {
	return fmt.Sprintf("projects/%s/assets/%s", a.Project, instrument.Info().CollectionID)
}

type eeImage struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
}

type listImagesResponse struct {
	Images        []eeImage `json:"images"`
	NextPageToken string    `json:"nextPageToken"`
}

// Query implements Archive
func (a *EarthEngineArchive) Query(ctx context.Context, instrument model.Instrument, start, end time.Time, roi model.RegionOfInterest) ([]model.Image, error) {
	region, err := json.Marshal(roi.GeoJSON())
	if err != nil {
		return nil, err
	}
	parent := a.parent(instrument)
	util.LogAudit(a.Context, util.LogAuditInput{Actor: "composite/Query", Action: "listImages", Actee: parent, Message: fmt.Sprintf("Listing images %s/%s", start.Format(time.RFC3339), end.Format(time.RFC3339)), Severity: util.INFO})

	params := url.Values{}
	params.Set("startTime", start.UTC().Format(time.RFC3339))
	params.Set("endTime", end.UTC().Format(time.RFC3339))
	params.Set("region", string(region))
	params.Set("pageSize", fmt.Sprint(listImagesPageSize))

	var images []model.Image
	for {
		var page listImagesResponse
		address := fmt.Sprintf("%s/%s:listImages?%s", a.Endpoint, parent, params.Encode())
		if _, err = util.ReqByObjJSONClient(ctx, a.client, http.MethodGet, address, "", nil, &page); err != nil {
			return nil, err
		}
		for _, asset := range page.Images {
			acquired, err := model.ParseCatalogTime(asset.StartTime)
			if err != nil {
				return nil, fmt.Errorf("image %s: %v", asset.Name, err)
			}
			images = append(images, model.Image{ID: asset.Name, Instrument: instrument, Time: acquired, Members: []string{asset.Name}})
		}
		if page.NextPageToken == "" {
			return images, nil
		}
		params.Set("pageToken", page.NextPageToken)
	}
}

// Mosaic implements Archive
func (a *EarthEngineArchive) Mosaic(ctx context.Context, images []model.Image) (model.Image, error) {
	if len(images) == 0 {
		return model.Image{}, fmt.Errorf("nothing to mosaic")
	}
	var members []string
	for _, img := range images {
		members = append(members, img.Members...)
	}
	return model.Image{
		ID:         "mosaic/" + images[0].Date() + "/" + strings.Join(members, ","),
		Instrument: images[0].Instrument,
		Time:       images[0].Time,
		Members:    members,
	}, nil
}

// ExpressionGraph is a serialized Earth Engine computation
type ExpressionGraph struct {
	Result string               `json:"result"`
	Values map[string]ValueNode `json:"values"`
}

// ValueNode is one node of an ExpressionGraph. Exactly one field is set.
type ValueNode struct {
	ConstantValue           interface{}         `json:"constantValue,omitempty"`
	ArrayValue              *ArrayValue         `json:"arrayValue,omitempty"`
	FunctionInvocationValue *FunctionInvocation `json:"functionInvocationValue,omitempty"`
}

type ArrayValue struct {
	Values []ValueNode `json:"values"`
}

type FunctionInvocation struct {
	FunctionName string               `json:"functionName"`
	Arguments    map[string]ValueNode `json:"arguments"`
}

// Expression returns the expression that evaluates an image handle: the
// asset itself, or the mosaic of its members
func Expression(img model.Image) *ExpressionGraph {
	if len(img.Members) <= 1 {
		name := img.ID
		if len(img.Members) == 1 {
			name = img.Members[0]
		}
		return &ExpressionGraph{Result: "0", Values: map[string]ValueNode{"0": loadImage(name)}}
	}

	loads := make([]ValueNode, len(img.Members))
	for i, name := range img.Members {
		loads[i] = loadImage(name)
	}
	collection := ValueNode{FunctionInvocationValue: &FunctionInvocation{
		FunctionName: "ImageCollection.fromImages",
		Arguments: map[string]ValueNode{
			"images": {ArrayValue: &ArrayValue{Values: loads}},
		},
	}}
	mosaic := ValueNode{FunctionInvocationValue: &FunctionInvocation{
		FunctionName: "ImageCollection.mosaic",
		Arguments:    map[string]ValueNode{"collection": collection},
	}}
	return &ExpressionGraph{Result: "0", Values: map[string]ValueNode{"0": mosaic}}
}

// assetID strips the projects/<project>/assets/ prefix Image.load does not take
func assetID(name string) string {
	if i := strings.Index(name, "/assets/"); i >= 0 {
		return name[i+len("/assets/"):]
	}
	return name
}

func loadImage(name string) ValueNode {
	return ValueNode{FunctionInvocationValue: &FunctionInvocation{
		FunctionName: "Image.load",
		Arguments: map[string]ValueNode{
			"id": {ConstantValue: assetID(name)},
		},
	}}
}

type gridDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type affineTransform struct {
	ScaleX     float64 `json:"scaleX"`
	ShearX     float64 `json:"shearX"`
	TranslateX float64 `json:"translateX"`
	ShearY     float64 `json:"shearY"`
	ScaleY     float64 `json:"scaleY"`
	TranslateY float64 `json:"translateY"`
}

type pixelGrid struct {
	CrsCode         string          `json:"crsCode"`
	Dimensions      gridDimensions  `json:"dimensions"`
	AffineTransform affineTransform `json:"affineTransform"`
}

type valueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type visualizationOptions struct {
	Ranges []valueRange `json:"ranges"`
}

type computePixelsRequest struct {
	Expression           *ExpressionGraph     `json:"expression"`
	FileFormat           string               `json:"fileFormat"`
	BandIds              []string             `json:"bandIds"`
	Grid                 pixelGrid            `json:"grid"`
	VisualizationOptions visualizationOptions `json:"visualizationOptions"`
}

// RenderPNG evaluates the image over the region as a SWIR false-colour PNG
// using the instrument's visualization parameters
func (a *EarthEngineArchive) RenderPNG(ctx context.Context, img model.Image, roi model.RegionOfInterest, width int) ([]byte, error) {
	info := img.Instrument.Info()
	bound := roi.Bound()
	height := int(float64(width) * (bound.Top() - bound.Bottom()) / (bound.Right() - bound.Left()))
	if height < 1 {
		height = 1
	}
	ranges := make([]valueRange, len(info.SWIRVis.Bands))
	for i := range ranges {
		ranges[i] = valueRange{Min: info.SWIRVis.Min, Max: info.SWIRVis.Max}
	}
	request := computePixelsRequest{
		Expression: Expression(img),
		FileFormat: "PNG",
		BandIds:    info.SWIRVis.Bands,
		Grid: pixelGrid{
			CrsCode:    "EPSG:4326",
			Dimensions: gridDimensions{Width: width, Height: height},
			AffineTransform: affineTransform{
				ScaleX:     (bound.Right() - bound.Left()) / float64(width),
				ScaleY:     -(bound.Top() - bound.Bottom()) / float64(height),
				TranslateX: bound.Left(),
				TranslateY: bound.Top(),
			},
		},
		VisualizationOptions: visualizationOptions{Ranges: ranges},
	}

	address := fmt.Sprintf("%s/projects/%s/image:computePixels", a.Endpoint, a.ComputeProject)
	data, _, err := util.ReqByObj(ctx, a.client, http.MethodPost, address, "", request)
	if err != nil {
		return nil, util.WrapError(util.DataAccess, util.LogSimpleErr(a.Context, fmt.Sprintf("Failed to compute pixels of %s.", img.ID), err))
	}
	return data, nil
}
