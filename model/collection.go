package model

import "fmt"

// Collection identifies an HLS product in the catalog
type Collection string

// HLS v2.0 collections known to the catalog
const (
	// HLSS30 is the Sentinel-2 MSI derived product
	HLSS30 Collection = "HLSS30.v2.0"
	// HLSL30 is the Landsat OLI derived product
	HLSL30 Collection = "HLSL30.v2.0"
)

// Collections is the allowlist sent with every catalog search
var Collections = []Collection{HLSS30, HLSL30}

// ParseCollection validates a collection name
func ParseCollection(name string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", name)
}

// providerBands lists the asset keys of each collection in the order
// SWIR 2, SWIR 1, NIR, red, green, blue.
var providerBands = map[Collection][]string{
	HLSS30: {"B12", "B11", "B8A", "B04", "B03", "B02"},
	HLSL30: {"B07", "B06", "B05", "B04", "B03", "B02"},
}

var providerRoles = []Band{SWIR2, SWIR1, NIR, Red, Green, Blue}

// ProviderBands returns the six asset keys extracted for a collection.
// Unknown collections are treated as HLSL30, as the catalog only ever returns
// the two allowlisted collections.
func (c Collection) ProviderBands() []string {
	codes, ok := providerBands[c]
	if !ok {
		codes = providerBands[HLSL30]
	}
	return append([]string(nil), codes...)
}

// BandRoles maps each provider asset key of the collection to its semantic band
func (c Collection) BandRoles() map[string]Band {
	codes := c.ProviderBands()
	roles := make(map[string]Band, len(codes))
	for i, code := range codes {
		roles[code] = providerRoles[i]
	}
	return roles
}

// SensorName returns the instrument family the collection is derived from
func (c Collection) SensorName() string {
	if c == HLSS30 {
		return "Sentinel-2 MSI"
	}
	return "Landsat OLI"
}

// Resolution is the ground sample distance of every HLS product, in metres
const Resolution = 30.0
