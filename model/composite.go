package model

import (
	"sort"
	"time"
)

// Image is a handle to an archive image. A mosaic of several same-day
// acquisitions keeps the names of its members.
type Image struct {
	ID         string
	Instrument Instrument
	Time       time.Time
	Members    []string
}

// Date returns the acquisition date as YYYY-MM-DD
func (i Image) Date() string {
	return FormatDate(i.Time)
}

// IsMosaic reports whether the image merges more than one acquisition
func (i Image) IsMosaic() bool {
	return len(i.Members) > 1
}

// CompositeIndex maps a YYYY-MM-DD date to at most one image per instrument
type CompositeIndex map[string]map[Instrument]Image

// Put records img under its date, replacing any image of the same instrument
func (c CompositeIndex) Put(img Image) {
	date := img.Date()
	byInstrument, ok := c[date]
	if !ok {
		byInstrument = make(map[Instrument]Image)
		c[date] = byInstrument
	}
	byInstrument[img.Instrument] = img
}

// Dates returns the indexed dates in ascending order
func (c CompositeIndex) Dates() []string {
	dates := make([]string, 0, len(c))
	for d := range c {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Images returns the images of a date in instrument order
func (c CompositeIndex) Images(date string) []Image {
	var out []Image
	for _, inst := range Instruments {
		if img, ok := c[date][inst]; ok {
			out = append(out, img)
		}
	}
	return out
}
