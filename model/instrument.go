package model

import "fmt"

// Instrument is a sensor whose archive feeds the temporal composites
type Instrument int

// Supported instruments, in the order composites are built
const (
	Sentinel2 Instrument = iota
	Landsat8
	Landsat9
)

// Instruments lists every supported instrument
var Instruments = []Instrument{Sentinel2, Landsat8, Landsat9}

// VisParams are the display parameters of a false-colour rendering
type VisParams struct {
	Min   float64
	Max   float64
	Bands []string
}

// InstrumentInfo is the fixed archive metadata of an instrument
type InstrumentInfo struct {
	Name         string
	CollectionID string
	// Resolution is the native ground sample distance in metres
	Resolution int
	SWIRBands  []string
	SWIRVis    VisParams
	Title      string
}

// Info returns the archive metadata of the instrument
func (i Instrument) Info() InstrumentInfo {
	switch i {
	case Sentinel2:
		bands := []string{"B12", "B8", "B4"}
		return InstrumentInfo{
			Name:         "Sentinel_2",
			CollectionID: "COPERNICUS/S2_SR_HARMONIZED",
			Resolution:   10,
			SWIRBands:    bands,
			SWIRVis:      VisParams{Min: 0, Max: 6000, Bands: bands},
			Title:        "Sentinel-2 (ESA)",
		}
	case Landsat8:
		bands := []string{"SR_B7", "SR_B5", "SR_B4"}
		return InstrumentInfo{
			Name:         "Landsat_8",
			CollectionID: "LANDSAT/LC08/C02/T1_L2",
			Resolution:   30,
			SWIRBands:    bands,
			SWIRVis:      VisParams{Min: 7000, Max: 25000, Bands: bands},
			Title:        "Landsat-8 (NASA)",
		}
	case Landsat9:
		bands := []string{"SR_B7", "SR_B5", "SR_B4"}
		return InstrumentInfo{
			Name:         "Landsat_9",
			CollectionID: "LANDSAT/LC09/C02/T1_L2",
			Resolution:   30,
			SWIRBands:    bands,
			SWIRVis:      VisParams{Min: 7000, Max: 25000, Bands: bands},
			Title:        "Landsat-9 (NASA)",
		}
	}
	panic(fmt.Sprintf("unknown instrument %d", int(i)))
}

func (i Instrument) String() string {
	return i.Info().Name
}

// ParseInstrument returns the instrument with the given archive name
// (Sentinel_2, Landsat_8, Landsat_9)
func ParseInstrument(name string) (Instrument, error) {
	for _, i := range Instruments {
		if i.Info().Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown instrument %q", name)
}

// MarshalText implements encoding.TextMarshaler so instruments can key JSON maps
func (i Instrument) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (i *Instrument) UnmarshalText(text []byte) error {
	parsed, err := ParseInstrument(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
