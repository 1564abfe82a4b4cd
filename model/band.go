package model

import "fmt"

// Band is the semantic role of a spectral band
type Band int

// Bands in model input order
const (
	Blue Band = iota
	Green
	Red
	NIR
	SWIR1
	SWIR2
)

// AllBands lists the bands in the order the model expects them
var AllBands = []Band{Blue, Green, Red, NIR, SWIR1, SWIR2}

func (b Band) String() string {
	switch b {
	case Blue:
		return "blue"
	case Green:
		return "green"
	case Red:
		return "red"
	case NIR:
		return "nir"
	case SWIR1:
		return "swir_1"
	case SWIR2:
		return "swir_2"
	default:
		return fmt.Sprintf("band(%d)", int(b))
	}
}

// ParseBand returns the band with the given name
func ParseBand(name string) (Band, error) {
	for _, b := range AllBands {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown band %q", name)
}
