package colorscale

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// lutSize matches the resolution of common plotting colormaps.
const lutSize = 256

// rampAnchors is the 11-class ColorBrewer RdYlGn scheme reversed, so that low
// values are green and high values are red.
var rampAnchors = []string{
	"#006837",
	"#1a9850",
	"#66bd63",
	"#a6d96a",
	"#d9ef8b",
	"#ffffbf",
	"#fee08b",
	"#fdae61",
	"#f46d43",
	"#d73027",
	"#a50026",
}

var rampLUT = buildLUT()

func buildLUT() [lutSize]string {
	anchors := make([]colorful.Color, len(rampAnchors))
	for i, h := range rampAnchors {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		anchors[i] = c
	}

	segments := float64(len(anchors) - 1)
	var lut [lutSize]string
	for i := 0; i < lutSize; i++ {
		pos := float64(i) / (lutSize - 1) * segments
		k := int(math.Floor(pos))
		if k >= len(anchors)-1 {
			k = len(anchors) - 2
		}
		c := anchors[k].BlendRgb(anchors[k+1], pos-float64(k)).Clamped()
		lut[i] = c.Hex()
	}
	return lut
}

// Ramp maps a normalized value in [0, 1] to a hex color. Values outside the
// range are clamped to the ends of the ramp.
func Ramp(v float64) string {
	if math.IsNaN(v) || v <= 0 {
		return rampLUT[0]
	}
	idx := int(v * lutSize)
	if idx >= lutSize {
		idx = lutSize - 1
	}
	return rampLUT[idx]
}

// FeederColor maps a feeder count onto the ramp relative to the observed range.
// A degenerate range yields DefaultColor.
func FeederColor(count, min, max int) string {
	if max == min {
		return DefaultColor
	}
	normalized := float64(count-min) / float64(max-min)
	return Ramp(normalized)
}
