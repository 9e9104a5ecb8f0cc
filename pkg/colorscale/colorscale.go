// Package colorscale assigns display colors to substation markers, either by
// license area from a fixed named palette or by feeder count along a
// green-yellow-red ramp, and fits a map zoom level to a search radius.
package colorscale

import (
	"sort"
)

// FallbackColor is used for areas missing from a categorical assignment.
const FallbackColor = "gray"

// DefaultColor is used when the feeder-count range is degenerate.
const DefaultColor = "#3388ff"

// Palette is the ordered set of marker colors cycled over license areas.
var Palette = []string{
	"blue",
	"red",
	"green",
	"purple",
	"orange",
	"darkred",
	"lightred",
	"beige",
	"darkblue",
	"darkgreen",
	"cadetblue",
	"darkpurple",
	"pink",
	"lightblue",
	"lightgreen",
	"gray",
	"black",
	"lightgray",
}

// Mode selects how markers are colored. It is either Categorical or Continuous.
type Mode interface {
	isMode()
}

// Categorical colors markers by license area.
type Categorical struct {
	Colors map[string]string
}

// Continuous colors markers by feeder count over [Min, Max].
type Continuous struct {
	Min int
	Max int
}

func (Categorical) isMode() {}
func (Continuous) isMode()  {}

// CategoricalColors assigns palette colors to the unique areas in sorted order,
// wrapping around when there are more areas than colors. The result depends
// only on the set of areas given.
func CategoricalColors(areas []string) map[string]string {
	unique := make([]string, 0, len(areas))
	seen := make(map[string]bool, len(areas))
	for _, a := range areas {
		if !seen[a] {
			seen[a] = true
			unique = append(unique, a)
		}
	}
	sort.Strings(unique)

	colors := make(map[string]string, len(unique))
	for i, a := range unique {
		colors[a] = Palette[i%len(Palette)]
	}
	return colors
}

// AreaColor looks up an area's color, falling back to gray.
func AreaColor(colors map[string]string, area string) string {
	if c, ok := colors[area]; ok {
		return c
	}
	return FallbackColor
}

// NewMode builds the coloring mode for a marker set: categorical over areas
// when byArea is set, otherwise continuous over the observed feeder range.
func NewMode(areas []string, minFeeders, maxFeeders int, byArea bool) Mode {
	if byArea {
		return Categorical{Colors: CategoricalColors(areas)}
	}
	return Continuous{Min: minFeeders, Max: maxFeeders}
}

// Color returns the marker color for a substation under the given mode.
func Color(mode Mode, area string, feeders int) string {
	switch m := mode.(type) {
	case Categorical:
		return AreaColor(m.Colors, area)
	case Continuous:
		return FeederColor(feeders, m.Min, m.Max)
	default:
		return DefaultColor
	}
}
