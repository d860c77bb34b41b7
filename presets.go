package geoconv

import (
	"fmt"
)

// Preset categories.
const (
	CategoryGeographic = "Geographic"
	CategoryWeb        = "Web"
	CategoryNational   = "National"
	CategoryUTM        = "UTM"
)

// Preset is a commonly used coordinate reference system offered for quick
// selection.
type Preset struct {
	Code        int    `json:"code" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

func (p Preset) String() string {
	return fmt.Sprintf("EPSG:%d - %s", p.Code, p.Name)
}

const (
	defaultSourceCode = 4326
	defaultTargetCode = 3857
)

var presets = []Preset{
	{4326, "WGS 84", "World Geodetic System 1984 (GPS)", CategoryGeographic},
	{4269, "NAD83", "North American Datum 1983", CategoryGeographic},
	{4258, "ETRS89", "European Terrestrial Reference System 1989", CategoryGeographic},

	{3857, "Web Mercator", "WGS 84 / Pseudo-Mercator (Google Maps, OpenStreetMap)", CategoryWeb},

	{28992, "RD New", "Amersfoort / RD New (Netherlands)", CategoryNational},
	{2154, "Lambert 93", "RGF93 / Lambert-93 (France)", CategoryNational},
	{27700, "OSGB 1936", "British National Grid", CategoryNational},
	{2056, "CH1903+ / LV95", "Switzerland", CategoryNational},
	{31370, "Belgian Lambert 72", "Belgium", CategoryNational},
	{3035, "ETRS89-LAEA", "Europe Equal Area (INSPIRE)", CategoryNational},

	{25832, "ETRS89 / UTM 32N", "UTM Zone 32N (Central Europe)", CategoryUTM},
	{25833, "ETRS89 / UTM 33N", "UTM Zone 33N (Eastern Europe)", CategoryUTM},
	{32610, "WGS 84 / UTM 10N", "UTM Zone 10N (US West Coast)", CategoryUTM},
	{32611, "WGS 84 / UTM 11N", "UTM Zone 11N", CategoryUTM},
	{32617, "WGS 84 / UTM 17N", "UTM Zone 17N (US East Coast)", CategoryUTM},
	{32618, "WGS 84 / UTM 18N", "UTM Zone 18N", CategoryUTM},
	{32632, "WGS 84 / UTM 32N", "UTM Zone 32N", CategoryUTM},
	{32633, "WGS 84 / UTM 33N", "UTM Zone 33N", CategoryUTM},
}

// Presets returns a copy of the curated preset list in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// FindPreset returns the preset for code.
func FindPreset(code int) (Preset, bool) {
	for _, p := range presets {
		if p.Code == code {
			return p, true
		}
	}
	return Preset{}, false
}

// DefaultSourcePreset is WGS 84.
func DefaultSourcePreset() Preset {
	p, _ := FindPreset(defaultSourceCode)
	return p
}

// DefaultTargetPreset is Web Mercator.
func DefaultTargetPreset() Preset {
	p, _ := FindPreset(defaultTargetCode)
	return p
}
