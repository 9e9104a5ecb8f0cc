package colorscale

import "sort"

// LegendEntry is one swatch of a categorical legend.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend describes how a renderer should explain the marker colors.
type Legend struct {
	Title   string        `json:"title"`
	Entries []LegendEntry `json:"entries,omitempty"`
	Stops   []string      `json:"stops,omitempty"`
	Min     *int          `json:"min,omitempty"`
	Max     *int          `json:"max,omitempty"`
}

// gradientStops are the CSS colors of the feeder colorbar, low to high.
var gradientStops = []string{
	"rgb(0,104,55)",
	"rgb(166,217,106)",
	"rgb(255,255,191)",
	"rgb(253,174,97)",
	"rgb(165,0,38)",
}

// LegendFor returns the legend for a coloring mode.
func LegendFor(mode Mode) Legend {
	switch m := mode.(type) {
	case Categorical:
		entries := make([]LegendEntry, 0, len(m.Colors))
		for area, color := range m.Colors {
			entries = append(entries, LegendEntry{Label: area, Color: color})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })
		return Legend{Title: "License Areas", Entries: entries}
	case Continuous:
		lo, hi := m.Min, m.Max
		stops := make([]string, len(gradientStops))
		copy(stops, gradientStops)
		return Legend{Title: "Number of Feeders", Stops: stops, Min: &lo, Max: &hi}
	default:
		return Legend{}
	}
}
