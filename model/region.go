package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/venicegeo/geojson-go/geojson"
)

// RegionOfInterest is a query polygon in WGS84 longitude/latitude
type RegionOfInterest struct {
	polygon orb.Polygon
}

// NewRegionOfInterest wraps a polygon, closing any open ring
func NewRegionOfInterest(polygon orb.Polygon) (RegionOfInterest, error) {
	if len(polygon) == 0 || len(polygon[0]) < 3 {
		return RegionOfInterest{}, fmt.Errorf("region polygon needs an exterior ring of at least three points")
	}
	out := make(orb.Polygon, len(polygon))
	for i, ring := range polygon {
		r := append(orb.Ring(nil), ring...)
		if !r.Closed() {
			r = append(r, r[0])
		}
		out[i] = r
	}
	return RegionOfInterest{polygon: out}, nil
}

// RegionFromBbox parses "minx,miny,maxx,maxy"
func RegionFromBbox(bbox string) (RegionOfInterest, error) {
	bb, err := geojson.NewBoundingBox(bbox)
	if err != nil {
		return RegionOfInterest{}, fmt.Errorf("invalid bbox %q: %v", bbox, err)
	}
	if len(bb) != 4 {
		return RegionOfInterest{}, fmt.Errorf("bbox %q must have four values", bbox)
	}
	if bb[0] > bb[2] || bb[1] > bb[3] {
		return RegionOfInterest{}, fmt.Errorf("bbox %q has min greater than max", bbox)
	}
	bound := orb.Bound{Min: orb.Point{bb[0], bb[1]}, Max: orb.Point{bb[2], bb[3]}}
	return NewRegionOfInterest(bound.ToPolygon())
}

// RegionFromGeoJSON accepts a Polygon geometry, a Feature or a
// FeatureCollection (whose first feature is used)
func RegionFromGeoJSON(data []byte) (RegionOfInterest, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return RegionOfInterest{}, fmt.Errorf("region is not valid GeoJSON: %v", err)
	}

	var geometry orb.Geometry
	switch probe.Type {
	case "FeatureCollection":
		fc, err := orbjson.UnmarshalFeatureCollection(data)
		if err != nil {
			return RegionOfInterest{}, fmt.Errorf("region is not valid GeoJSON: %v", err)
		}
		if len(fc.Features) == 0 {
			return RegionOfInterest{}, fmt.Errorf("region feature collection is empty")
		}
		geometry = fc.Features[0].Geometry
	case "Feature":
		f, err := orbjson.UnmarshalFeature(data)
		if err != nil {
			return RegionOfInterest{}, fmt.Errorf("region is not valid GeoJSON: %v", err)
		}
		geometry = f.Geometry
	default:
		g, err := orbjson.UnmarshalGeometry(data)
		if err != nil {
			return RegionOfInterest{}, fmt.Errorf("region is not valid GeoJSON: %v", err)
		}
		geometry = g.Geometry()
	}

	switch g := geometry.(type) {
	case orb.Polygon:
		return NewRegionOfInterest(g)
	case orb.MultiPolygon:
		if len(g) == 1 {
			return NewRegionOfInterest(g[0])
		}
	}
	return RegionOfInterest{}, fmt.Errorf("region must be a single polygon, got %T", geometry)
}

// ParseRegion reads a region from either a bbox string or a GeoJSON document
func ParseRegion(value string) (RegionOfInterest, error) {
	if strings.HasPrefix(strings.TrimSpace(value), "{") {
		return RegionFromGeoJSON([]byte(value))
	}
	return RegionFromBbox(value)
}

// Polygon returns a copy of the region's polygon
func (r RegionOfInterest) Polygon() orb.Polygon {
	return r.polygon.Clone()
}

// Bound returns the bounding box of the region
func (r RegionOfInterest) Bound() orb.Bound {
	return r.polygon.Bound()
}

// BBox returns minx, miny, maxx, maxy
func (r RegionOfInterest) BBox() [4]float64 {
	b := r.Bound()
	return [4]float64{b.Left(), b.Bottom(), b.Right(), b.Top()}
}

// WKT returns the region as well-known text
func (r RegionOfInterest) WKT() string {
	return wkt.MarshalString(r.polygon)
}

// Contains reports whether the lon/lat point lies inside the region
func (r RegionOfInterest) Contains(lon, lat float64) bool {
	return planar.PolygonContains(r.polygon, orb.Point{lon, lat})
}

// IsEmpty reports whether the region was never set
func (r RegionOfInterest) IsEmpty() bool {
	return len(r.polygon) == 0
}

// GeoJSON returns the region as a geojson-go polygon
func (r RegionOfInterest) GeoJSON() *geojson.Polygon {
	coords := make([][][]float64, len(r.polygon))
	for i, ring := range r.polygon {
		coords[i] = make([][]float64, len(ring))
		for j, p := range ring {
			coords[i][j] = []float64{p[0], p[1]}
		}
	}
	return geojson.NewPolygon(coords)
}
