package model

import (
	"fmt"
	"math"
)

// BandData is a single clipped band: row-major values with NaN marking nodata
type BandData struct {
	Values []float64
	Width  int
	Height int
	// Scale is the factor still to be applied to Values to get reflectance;
	// 1 once it has been applied.
	Scale float64
}

// At returns the value at column x, row y
func (d BandData) At(x, y int) float64 {
	return d.Values[y*d.Width+x]
}

// Reflectance returns the values with Scale applied
func (d BandData) Reflectance() []float64 {
	out := make([]float64, len(d.Values))
	for i, v := range d.Values {
		out[i] = v * d.Scale
	}
	return out
}

// BandArray maps each semantic band to its clipped data
type BandArray map[Band]BandData

// ScaleFactors returns the recorded scale of every band
func (a BandArray) ScaleFactors() map[Band]float64 {
	scales := make(map[Band]float64, len(a))
	for b, d := range a {
		scales[b] = d.Scale
	}
	return scales
}

// Stack is an H x W x C array in row-major, channel-last layout
type Stack struct {
	Values   []float64
	Height   int
	Width    int
	Channels int
}

// At returns the value at row y, column x, channel c
func (s Stack) At(y, x, c int) float64 {
	return s.Values[(y*s.Width+x)*s.Channels+c]
}

// Set stores v at row y, column x, channel c
func (s Stack) Set(y, x, c int, v float64) {
	s.Values[(y*s.Width+x)*s.Channels+c] = v
}

// NewStack allocates a zeroed stack
func NewStack(height, width, channels int) Stack {
	return Stack{Values: make([]float64, height*width*channels), Height: height, Width: width, Channels: channels}
}

// Stack assembles the bands into model input order (blue, green, red, nir,
// swir_1, swir_2). Reflectance is used, so deferred scale factors are applied
// here. Every band must be present and share the same shape.
func (a BandArray) Stack() (Stack, error) {
	first, ok := a[AllBands[0]]
	if !ok {
		return Stack{}, fmt.Errorf("band %s missing from band array", AllBands[0])
	}
	stack := NewStack(first.Height, first.Width, len(AllBands))
	for c, b := range AllBands {
		d, ok := a[b]
		if !ok {
			return Stack{}, fmt.Errorf("band %s missing from band array", b)
		}
		if d.Width != first.Width || d.Height != first.Height {
			return Stack{}, fmt.Errorf("band %s is %dx%d, expected %dx%d", b, d.Width, d.Height, first.Width, first.Height)
		}
		scale := d.Scale
		if scale == 0 {
			scale = 1
		}
		for i, v := range d.Values {
			stack.Values[i*stack.Channels+c] = v * scale
		}
	}
	return stack, nil
}

// ValidFraction returns the share of non-NaN values in the band
func (d BandData) ValidFraction() float64 {
	if len(d.Values) == 0 {
		return 0
	}
	valid := 0
	for _, v := range d.Values {
		if !math.IsNaN(v) {
			valid++
		}
	}
	return float64(valid) / float64(len(d.Values))
}
