package visualizer

import (
	"fmt"
	"math"
	"strings"
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

const (
	fullBlock = '█'
	midline   = '─'
)

const (
	DefaultMinDB  = -80.0
	DefaultMaxDB  = -10.0
	DefaultDecay  = 0.35
	initialPeak   = 0.25
	peakDecay     = 0.92
	peakFloor     = 1e-3
	defaultSpring = 6.0
	defaultDamp   = 0.7
)

// Smoothing selects how column levels follow their targets between frames.
type Smoothing int

const (
	// SmoothDecay blends the previous level with the target.
	SmoothDecay Smoothing = iota
	// SmoothSpring moves levels along a damped spring.
	SmoothSpring
)

func (s Smoothing) String() string {
	if s == SmoothSpring {
		return "spring"
	}
	return "decay"
}

// ParseSmoothing accepts "decay" or "spring".
func ParseSmoothing(s string) (Smoothing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decay":
		return SmoothDecay, nil
	case "spring":
		return SmoothSpring, nil
	}
	return 0, fmt.Errorf("unknown smoothing %q (want decay or spring)", s)
}

// BuilderOptions configures a Builder. Zero values select defaults, except
// Decay where zero disables blending.
type BuilderOptions struct {
	MinDB float64
	MaxDB float64
	// Decay is the share of the previous level kept each frame. Values
	// outside [0, 1) select DefaultDecay.
	Decay     float64
	Smoothing Smoothing
	// FPS, SpringFrequency and SpringDamping tune SmoothSpring.
	FPS             int
	SpringFrequency float64
	SpringDamping   float64
	Palette         Palette
}

// Builder lays analyzer frames out as grids. It holds no per-frame state:
// everything carried between frames lives in the previous grid.
type Builder struct {
	minDB   float64
	maxDB   float64
	decay   float64
	smooth  Smoothing
	spring  springField
	palette Palette
}

// NewBuilder returns a builder for opts.
func NewBuilder(opts BuilderOptions) *Builder {
	b := &Builder{
		minDB:   opts.MinDB,
		maxDB:   opts.MaxDB,
		decay:   opts.Decay,
		smooth:  opts.Smoothing,
		palette: opts.Palette,
	}
	if b.minDB == 0 && b.maxDB == 0 {
		b.minDB, b.maxDB = DefaultMinDB, DefaultMaxDB
	}
	if b.maxDB <= b.minDB {
		b.maxDB = b.minDB + 1
	}
	if b.decay < 0 || b.decay >= 1 {
		b.decay = DefaultDecay
	}
	if b.palette.Single == 0 && len(b.palette.Stops) == 0 {
		b.palette = DefaultPalette()
	}
	freq, damp := opts.SpringFrequency, opts.SpringDamping
	if freq <= 0 {
		freq = defaultSpring
	}
	if damp <= 0 {
		damp = defaultDamp
	}
	b.spring = newSpringField(opts.FPS, freq, damp)
	return b
}

// Build returns a new rows × cols grid for frame. prev supplies the
// smoothing state and is never modified; a prev of another mode or nil
// starts from rest. Building the same inputs twice yields equal grids.
func (b *Builder) Build(frame Frame, prev *Grid, rows, cols int) *Grid {
	g := NewGrid(rows, cols)
	g.Mode = frame.Mode
	g.Peak = initialPeak
	if g.Rows == 0 || g.Cols == 0 {
		if prev != nil && prev.Mode == frame.Mode && prev.Peak > 0 {
			g.Peak = prev.Peak
		}
		return g
	}

	var carried *Grid
	if prev != nil && prev.Mode == frame.Mode {
		carried = prev
	}

	switch frame.Mode {
	case ModeWaveform:
		b.buildWaveform(g, frame.Waveform, carried)
	default:
		b.buildSpectrum(g, frame.Spectrum, carried)
	}
	return g
}

func (b *Builder) buildSpectrum(g *Grid, s SpectrumFrame, prev *Grid) {
	targets := make([]float64, g.Cols)
	spectrumColumns(targets, s.Magnitudes)
	for i, db := range targets {
		targets[i] = clamp01((db - b.minDB) / (b.maxDB - b.minDB))
	}
	if len(s.Magnitudes) < 2 {
		clear(targets)
	}
	if prev != nil {
		g.Peak = prev.Peak
	}

	b.follow(g.Levels, g.Velocity, prevState(prev, func(p *Grid) ([]float64, []float64) {
		return p.Levels, p.Velocity
	}, g.Cols), targets)

	for c := range g.Cols {
		level := clamp01(g.Levels[c])
		height := level * float64(g.Rows)
		color := b.palette.For(level)
		for r := range g.Rows {
			fromBottom := float64(g.Rows - 1 - r)
			var ch rune
			switch {
			case height >= fromBottom+1:
				ch = fullBlock
			case height > fromBottom:
				idx := int((height - fromBottom) * float64(len(barChars)-1))
				ch = barChars[min(idx, len(barChars)-1)]
			default:
				continue
			}
			if ch == ' ' {
				continue
			}
			g.set(r, c, Cell{Rune: ch, Color: color})
		}
	}
}

// spectrumColumns maps bins 1..len(mags)-1 onto len(dst) log-spaced columns.
// A column spanning several bins takes their maximum; a column narrower than
// one bin interpolates between its neighbours.
func spectrumColumns(dst, mags []float64) {
	bins := len(mags)
	if bins < 2 {
		return
	}
	cols := len(dst)
	top := float64(bins)
	for c := range cols {
		f0 := math.Pow(top, float64(c)/float64(cols))
		f1 := math.Pow(top, float64(c+1)/float64(cols))
		lo := max(int(f0), 1)
		hi := min(int(f1), bins)

		if hi > lo {
			best := mags[lo]
			for _, m := range mags[lo+1 : hi] {
				best = math.Max(best, m)
			}
			dst[c] = best
			continue
		}

		center := (f0 + f1) / 2
		i := min(max(int(center), 1), bins-1)
		frac := center - float64(i)
		if i+1 >= bins || frac <= 0 {
			dst[c] = mags[i]
			continue
		}
		dst[c] = mags[i]*(1-frac) + mags[i+1]*frac
	}
}

func (b *Builder) buildWaveform(g *Grid, w WaveformFrame, prev *Grid) {
	upper := make([]float64, g.Cols)
	lower := make([]float64, g.Cols)
	resample(upper, w.Upper)
	resample(lower, w.Lower)

	var framePeak float64
	for i := range upper {
		framePeak = math.Max(framePeak, math.Max(upper[i], lower[i]))
	}
	peak := initialPeak
	if prev != nil && prev.Peak > 0 {
		peak = prev.Peak
	}
	if framePeak > peak {
		peak = framePeak
	} else {
		peak = peak*peakDecay + framePeak*(1-peakDecay)
	}
	g.Peak = peak

	norm := math.Max(peak, peakFloor)
	for i := range upper {
		upper[i] = clamp01(upper[i] / norm)
		lower[i] = clamp01(lower[i] / norm)
	}

	b.follow(g.Levels, g.Velocity, prevState(prev, func(p *Grid) ([]float64, []float64) {
		return p.Levels, p.Velocity
	}, g.Cols), upper)
	b.follow(g.Lower, g.LowerVelocity, prevState(prev, func(p *Grid) ([]float64, []float64) {
		return p.Lower, p.LowerVelocity
	}, g.Cols), lower)

	mid := g.Rows / 2
	top := mid
	bottom := g.Rows - mid - 1
	for c := range g.Cols {
		pos := clamp01(g.Levels[c])
		neg := clamp01(g.Lower[c])
		posRows := int(math.Round(pos * float64(top)))
		negRows := int(math.Round(neg * float64(bottom)))

		for r := top - posRows; r < mid; r++ {
			g.set(r, c, Cell{Rune: fullBlock, Color: b.palette.For(pos)})
		}
		g.set(mid, c, Cell{Rune: midline, Color: NoColor})
		for off := range negRows {
			g.set(mid+1+off, c, Cell{Rune: fullBlock, Color: b.palette.For(neg)})
		}
	}
}

type columnState struct {
	levels   []float64
	velocity []float64
}

// prevState returns the previous levels and velocities resampled to cols.
func prevState(prev *Grid, pick func(*Grid) ([]float64, []float64), cols int) columnState {
	s := columnState{levels: make([]float64, cols), velocity: make([]float64, cols)}
	if prev == nil {
		return s
	}
	levels, velocity := pick(prev)
	resample(s.levels, levels)
	resample(s.velocity, velocity)
	return s
}

func (b *Builder) follow(levels, velocity []float64, prev columnState, targets []float64) {
	if b.smooth == SmoothSpring {
		b.spring.step(levels, velocity, prev.levels, prev.velocity, targets)
		return
	}
	for i, target := range targets {
		levels[i] = prev.levels[i]*b.decay + target*(1-b.decay)
	}
}
