package model

import (
	"fmt"
	"time"
)

// SceneRecord is a single HLS granule as returned by the catalog. It is not
// modified after construction; accessors return copies.
type SceneRecord struct {
	ID           string
	Collection   Collection
	AcquiredDate time.Time
	// Geometry is the footprint as decoded by geojson-go
	Geometry   interface{}
	CloudCover float64
	BrowseURL  string
	assets     map[string]string
}

// NewSceneRecord builds a record, copying the asset map
func NewSceneRecord(id string, collection Collection, acquired time.Time, geometry interface{}, assets map[string]string) SceneRecord {
	copied := make(map[string]string, len(assets))
	for k, v := range assets {
		copied[k] = v
	}
	return SceneRecord{
		ID:           id,
		Collection:   collection,
		AcquiredDate: acquired.UTC(),
		Geometry:     geometry,
		CloudCover:   -1,
		assets:       copied,
	}
}

// Asset returns the href of the named asset
func (s SceneRecord) Asset(key string) (string, bool) {
	href, ok := s.assets[key]
	return href, ok && href != ""
}

// Assets returns a copy of every asset href keyed by asset name
func (s SceneRecord) Assets() map[string]string {
	out := make(map[string]string, len(s.assets))
	for k, v := range s.assets {
		out[k] = v
	}
	return out
}

// BandURLs resolves the href of each of the six extracted bands, keyed by
// semantic band. A missing asset is an error.
func (s SceneRecord) BandURLs() (map[Band]string, error) {
	roles := s.Collection.BandRoles()
	urls := make(map[Band]string, len(roles))
	for _, code := range s.Collection.ProviderBands() {
		href, ok := s.Asset(code)
		if !ok {
			return nil, fmt.Errorf("scene %s has no %s asset", s.ID, code)
		}
		urls[roles[code]] = href
	}
	return urls, nil
}

// Date returns the acquisition date as YYYY-MM-DD
func (s SceneRecord) Date() string {
	return FormatDate(s.AcquiredDate)
}
