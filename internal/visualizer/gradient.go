package visualizer

import "math"

// Color is a 256-colour palette index. NoColor leaves the terminal default.
type Color int

const NoColor Color = -1

// DefaultColor is the single colour used when the gradient is off.
const DefaultColor Color = 39

// DefaultStops runs cyan, green, yellow, orange, red.
var DefaultStops = []Color{39, 48, 190, 208, 196}

// Palette colours a cell from its column level.
type Palette struct {
	Gradient bool
	Single   Color
	Stops    []Color
}

// DefaultPalette returns the single-colour palette.
func DefaultPalette() Palette {
	return Palette{Single: DefaultColor, Stops: append([]Color(nil), DefaultStops...)}
}

// For returns the colour for level in [0, 1]. Gradient stops are keyed by
// level^0.6 so quiet passages still reach the second stop.
func (p Palette) For(level float64) Color {
	if !p.Gradient || len(p.Stops) == 0 {
		return p.Single
	}
	scaled := math.Pow(clamp01(level), 0.6)
	idx := min(int(scaled*float64(len(p.Stops))), len(p.Stops)-1)
	return p.Stops[idx]
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
