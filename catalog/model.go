package catalog

import (
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/util"
)

// Provider is the CMR-STAC provider hosting the HLS collections
const Provider = "LPCLOUD"

// DefaultLimit is the number of scenes requested when none is given
const DefaultLimit = 12

// Context is the context for a catalog operation
type Context struct {
	BaseURL   string
	sessionID string
}

// AppName returns the application name
func (c *Context) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *Context) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = util.PsuUUID()
	}
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *Context) LogRootDir() string {
	return ""
}

// SearchOptions are the options for a catalog search. Dates are YYYY-MM-DD
// and inclusive.
type SearchOptions struct {
	Region    model.RegionOfInterest
	StartDate string
	EndDate   string
	Limit     int
}

type request struct {
	Bbox        [4]float64 `json:"bbox"`
	Datetime    string     `json:"datetime"`
	Limit       int        `json:"limit"`
	Collections []string   `json:"collections"`
}

// searchResults holds the STAC fields geojson-go does not keep on a feature
type searchResults struct {
	Features []stacItem `json:"features"`
}

type stacItem struct {
	ID         string           `json:"id"`
	Collection string           `json:"collection"`
	Assets     map[string]asset `json:"assets"`
}

type asset struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}
