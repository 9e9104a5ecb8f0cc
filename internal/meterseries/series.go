// Package meterseries merges per-feeder smart-meter readings into one cleaned,
// time-ordered series with the labels and annotations a chart needs.
package meterseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PrimaryColumn is the consumption metric that gets a maximum reference line.
const PrimaryColumn = "active_total_consumption_import"

// DefaultCeiling is the reading above which a value is treated as a sensor or
// transmission error.
const DefaultCeiling = 1_000_000

// ErrMissingColumn is returned when a record lacks the requested column.
var ErrMissingColumn = errors.New("reading is missing the requested column")

// Point is one reading of the selected column.
type Point struct {
	Timestamp time.Time `json:"data_timestamp"`
	FeederID  string    `json:"lv_feeder_id"`
	Value     float64   `json:"value"`
}

// ReferenceLine is a horizontal annotation across the chart.
type ReferenceLine struct {
	Value      float64 `json:"value"`
	Dash       string  `json:"dash"`
	Color      string  `json:"color"`
	Annotation string  `json:"annotation"`
	Position   string  `json:"position"`
}

// Chart carries the axis titles and annotations for rendering a series.
type Chart struct {
	Title         string         `json:"title,omitempty"`
	Subtitle      string         `json:"subtitle,omitempty"`
	XAxisTitle    string         `json:"x_axis_title"`
	YAxisTitle    string         `json:"y_axis_title"`
	LegendTitle   string         `json:"legend_title"`
	ReferenceLine *ReferenceLine `json:"reference_line,omitempty"`
}

// Summary holds descriptive statistics of the plotted values.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Series is the merged, filtered and sorted readings of one column.
type Series struct {
	Column   string   `json:"column"`
	Label    string   `json:"label"`
	Points   []Point  `json:"points"`
	MaxValue *float64 `json:"max_value,omitempty"`
	Chart    Chart    `json:"chart"`
	Summary  Summary  `json:"summary"`
}

// Build extracts column from records, drops readings above ceiling, and sorts
// the remainder by timestamp. Feeders are told apart by FeederID.
func Build(records []RawRecord, column string, ceiling float64) (*Series, error) {
	points := make([]Point, 0, len(records))
	for i, r := range records {
		v, ok := r.Values[column]
		if !ok {
			return nil, fmt.Errorf("%w: record %d (esa %s) has no %q", ErrMissingColumn, i, r.ESAID, column)
		}
		points = append(points, Point{Timestamp: r.Timestamp, FeederID: r.LVFeederID, Value: v})
	}

	points = Filter(points, ceiling)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	label := Label(column)
	s := &Series{
		Column: column,
		Label:  label,
		Points: points,
		Chart: Chart{
			XAxisTitle:  "Timestamp",
			YAxisTitle:  label,
			LegendTitle: "LV Feeder ID",
		},
		Summary: summarize(points),
	}

	if column == PrimaryColumn && len(points) > 0 {
		max := s.Summary.Max
		s.MaxValue = &max
		s.Chart.Subtitle = fmt.Sprintf("Maximum Consumption: %.2f Wh", max)
		s.Chart.ReferenceLine = &ReferenceLine{
			Value:      max,
			Dash:       "dash",
			Color:      "red",
			Annotation: fmt.Sprintf("Max: %.2f Wh", max),
			Position:   "top",
		}
	}
	return s, nil
}

// Filter returns the points whose value does not exceed ceiling. NaN readings
// are dropped. The input is not modified.
func Filter(points []Point, ceiling float64) []Point {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Value <= ceiling {
			kept = append(kept, p)
		}
	}
	return kept
}

// Label turns a column identifier into an axis label, adding the Wh unit for
// imported energy columns.
func Label(column string) string {
	label := cases.Title(language.Und).String(strings.ReplaceAll(column, "_", " "))
	if strings.HasSuffix(column, "import") {
		label += " (Wh)"
	}
	return label
}

// Title is the chart title for a substation.
func Title(substationName string) string {
	return "Smart Meter Values for Substation: " + substationName
}

func summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 || math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Count:  len(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}
