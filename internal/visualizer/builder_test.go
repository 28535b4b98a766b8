package visualizer

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func flatSpectrum(db float64, bins int) Frame {
	mags := make([]float64, bins)
	for i := range mags {
		mags[i] = db
	}
	return Frame{Mode: ModeSpectrum, Spectrum: SpectrumFrame{SampleRate: 44100, FloorDB: DefaultFloorDB, Magnitudes: mags}}
}

func TestBuildIsIdempotentAndLeavesPrevAlone(t *testing.T) {
	for _, smoothing := range []Smoothing{SmoothDecay, SmoothSpring} {
		b := NewBuilder(BuilderOptions{Smoothing: smoothing, FPS: 30})
		prev := b.Build(flatSpectrum(-30, 512), nil, 12, 40)
		snapshot := b.Build(flatSpectrum(-30, 512), nil, 12, 40)

		frame := flatSpectrum(-50, 512)
		first := b.Build(frame, prev, 12, 40)
		second := b.Build(frame, prev, 12, 40)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%v: expected identical grids for identical inputs", smoothing)
		}
		if !reflect.DeepEqual(prev, snapshot) {
			t.Fatalf("%v: Build modified the previous grid", smoothing)
		}
	}
}

func TestBuildFollowsRequestedDimensions(t *testing.T) {
	b := NewBuilder(BuilderOptions{})
	prev := b.Build(flatSpectrum(-20, 512), nil, 10, 40)

	for _, dims := range [][2]int{{5, 20}, {30, 120}, {0, 10}, {10, 0}} {
		g := b.Build(flatSpectrum(-20, 512), prev, dims[0], dims[1])
		if g.Rows != dims[0] || g.Cols != dims[1] {
			t.Fatalf("expected %dx%d grid, got %dx%d", dims[0], dims[1], g.Rows, g.Cols)
		}
		if len(g.Cells) != dims[0]*dims[1] || len(g.Levels) != dims[1] {
			t.Fatalf("expected %d cells and %d levels, got %d and %d",
				dims[0]*dims[1], dims[1], len(g.Cells), len(g.Levels))
		}
	}
}

func TestDecayBlendsWithPreviousLevels(t *testing.T) {
	b := NewBuilder(BuilderOptions{MinDB: -80, MaxDB: -10, Decay: 0.35})
	frame := flatSpectrum(-10, 512)

	g := b.Build(frame, nil, 8, 16)
	for c, level := range g.Levels {
		if math.Abs(level-0.65) > 1e-9 {
			t.Fatalf("column %d: expected 0.65 after first frame, got %v", c, level)
		}
	}
	g = b.Build(frame, g, 8, 16)
	for c, level := range g.Levels {
		if math.Abs(level-0.8775) > 1e-9 {
			t.Fatalf("column %d: expected 0.8775 after second frame, got %v", c, level)
		}
	}
}

func TestSilentSpectrumIsBlank(t *testing.T) {
	b := NewBuilder(BuilderOptions{})
	g := b.Build(flatSpectrum(DefaultFloorDB, 512), nil, 6, 30)
	if strings.TrimSpace(strings.ReplaceAll(g.String(), "\n", "")) != "" {
		t.Fatalf("expected blank grid for silence, got\n%s", g.String())
	}
}

func TestSpectrumBarsGrowFromBottom(t *testing.T) {
	b := NewBuilder(BuilderOptions{MinDB: -80, MaxDB: -10, Decay: 0.35})
	g := b.Build(flatSpectrum(-10, 512), nil, 4, 3)
	// 0.65 of 4 rows: two full rows and a partial third.
	for c := range 3 {
		if g.At(3, c).Rune != fullBlock || g.At(2, c).Rune != fullBlock {
			t.Fatalf("column %d: expected full blocks in the bottom rows, got\n%s", c, g.String())
		}
		if r := g.At(1, c).Rune; r != '▄' {
			t.Fatalf("column %d: expected partial block ▄, got %q", c, r)
		}
		if r := g.At(0, c).Rune; r != ' ' {
			t.Fatalf("column %d: expected blank top row, got %q", c, r)
		}
		if g.At(3, c).Color != DefaultColor {
			t.Fatalf("column %d: expected colour %d, got %d", c, DefaultColor, g.At(3, c).Color)
		}
	}
}

func TestWaveformMirrorsAroundMidline(t *testing.T) {
	b := NewBuilder(BuilderOptions{Decay: 0.35})
	frame := Frame{Mode: ModeWaveform, Waveform: WaveformFrame{
		Upper: []float64{1, 1, 1, 1},
		Lower: []float64{0, 0, 0, 0},
	}}
	g := b.Build(frame, nil, 9, 4)

	if g.Peak != 1 {
		t.Fatalf("expected peak to rise to 1, got %v", g.Peak)
	}
	want := []string{"    ", "████", "████", "████", "────", "    ", "    ", "    ", "    "}
	if got := strings.Split(g.String(), "\n"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected waveform:\n%s", g.String())
	}
	if g.At(4, 0).Color != NoColor {
		t.Fatalf("expected uncoloured midline, got %d", g.At(4, 0).Color)
	}
}

func TestWaveformPeakDecays(t *testing.T) {
	b := NewBuilder(BuilderOptions{})
	prev := NewGrid(9, 4)
	prev.Mode = ModeWaveform
	prev.Peak = 1

	g := b.Build(Frame{Mode: ModeWaveform}, prev, 9, 4)
	if math.Abs(g.Peak-0.92) > 1e-9 {
		t.Fatalf("expected peak 0.92 after a silent frame, got %v", g.Peak)
	}

	fresh := b.Build(Frame{Mode: ModeWaveform}, nil, 9, 4)
	if math.Abs(fresh.Peak-0.23) > 1e-9 {
		t.Fatalf("expected initial peak to decay to 0.23, got %v", fresh.Peak)
	}
}

func TestModeSwitchStartsFromRest(t *testing.T) {
	b := NewBuilder(BuilderOptions{})
	prev := b.Build(Frame{Mode: ModeWaveform, Waveform: WaveformFrame{
		Upper: []float64{1, 1}, Lower: []float64{1, 1},
	}}, nil, 5, 2)

	g := b.Build(flatSpectrum(DefaultFloorDB, 64), prev, 5, 2)
	for c, level := range g.Levels {
		if level != 0 {
			t.Fatalf("column %d: expected rest level after a mode switch, got %v", c, level)
		}
	}
}

func TestSpringMovesTowardTarget(t *testing.T) {
	b := NewBuilder(BuilderOptions{Smoothing: SmoothSpring, FPS: 30})
	g := b.Build(flatSpectrum(-10, 512), nil, 8, 8)
	for c := range g.Cols {
		if g.Levels[c] <= 0 || g.Levels[c] >= 1 {
			t.Fatalf("column %d: expected level between rest and target, got %v", c, g.Levels[c])
		}
		if g.Velocity[c] <= 0 {
			t.Fatalf("column %d: expected positive velocity, got %v", c, g.Velocity[c])
		}
	}
}

func TestSpectrumColumnsMapping(t *testing.T) {
	mags := make([]float64, 512)
	for i := range mags {
		mags[i] = float64(i)
	}
	cols := make([]float64, 16)
	spectrumColumns(cols, mags)
	if cols[0] < 1 || cols[0] >= 2 {
		t.Fatalf("expected first column interpolated between bins 1 and 2, got %v", cols[0])
	}
	if cols[len(cols)-1] != 511 {
		t.Fatalf("expected last column to reach the top bin, got %v", cols[len(cols)-1])
	}
}

func TestPaletteColours(t *testing.T) {
	p := Palette{Gradient: true, Single: DefaultColor, Stops: DefaultStops}
	tests := []struct {
		level float64
		want  Color
	}{
		{0, 39},
		{0.1, 48},
		{0.5, 208},
		{1, 196},
		{2, 196},
	}
	for _, tt := range tests {
		if got := p.For(tt.level); got != tt.want {
			t.Fatalf("For(%v) = %d, want %d", tt.level, got, tt.want)
		}
	}
	p.Gradient = false
	if got := p.For(1); got != DefaultColor {
		t.Fatalf("expected single colour with gradient off, got %d", got)
	}
}

func TestResampleNearest(t *testing.T) {
	dst := make([]float64, 4)
	resample(dst, []float64{1, 2})
	if !reflect.DeepEqual(dst, []float64{1, 1, 2, 2}) {
		t.Fatalf("unexpected upsample %v", dst)
	}
	resample(dst, nil)
	if !reflect.DeepEqual(dst, []float64{0, 0, 0, 0}) {
		t.Fatalf("expected zeros for empty source, got %v", dst)
	}
}

func TestZeroDecayFollowsTargetImmediately(t *testing.T) {
	b := NewBuilder(BuilderOptions{MinDB: -80, MaxDB: -10, Decay: 0})
	frame := flatSpectrum(-10, 512)

	g := b.Build(frame, nil, 8, 16)
	for c, level := range g.Levels {
		if level != 1 {
			t.Fatalf("column %d: expected full level without blending, got %v", c, level)
		}
	}

	if d := NewBuilder(BuilderOptions{Decay: -1}).decay; d != DefaultDecay {
		t.Fatalf("expected negative decay to select the default, got %v", d)
	}
}
