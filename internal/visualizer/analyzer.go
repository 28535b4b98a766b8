// Package visualizer turns analysis windows into spectrum or waveform frames
// and lays those frames out as a grid of coloured terminal cells.
package visualizer

import (
	"fmt"
	"math"
	"strings"

	"github.com/argusdusty/gofft"
)

const (
	// DefaultWindowSize is the analysis window length in frames.
	DefaultWindowSize = 1024
	// MinWindowSize is the smallest accepted window.
	MinWindowSize = 64
	// DefaultFloorDB is the lowest magnitude reported, in dBFS.
	DefaultFloorDB = -100.0
)

// Mode selects what the analyzer computes.
type Mode int

const (
	ModeSpectrum Mode = iota
	ModeWaveform
)

func (m Mode) String() string {
	switch m {
	case ModeSpectrum:
		return "spectrum"
	case ModeWaveform:
		return "waveform"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts "spectrum" or "waveform".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spectrum":
		return ModeSpectrum, nil
	case "waveform":
		return ModeWaveform, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want spectrum or waveform)", s)
}

// SpectrumFrame holds N/2 bin magnitudes in dBFS for bins 0 to N/2-1.
type SpectrumFrame struct {
	SampleRate int
	FloorDB    float64
	Magnitudes []float64
}

// WaveformFrame holds the positive (Upper) and negative (Lower) envelope per
// display column as non-negative amplitudes.
type WaveformFrame struct {
	Upper []float64
	Lower []float64
}

// Frame is the analyzer output for one window.
type Frame struct {
	Mode     Mode
	Start    int64
	Spectrum SpectrumFrame
	Waveform WaveformFrame
}

// Analyzer computes frames for windows of a fixed size. It keeps scratch
// buffers and is not safe for concurrent use.
type Analyzer struct {
	size       int
	sampleRate int
	floorDB    float64
	floorAmp   float64

	window []float64
	gain   float64

	mono []float64
	bins []complex128
}

// NewAnalyzer returns an analyzer for windows of size frames. size must be a
// power of two no smaller than MinWindowSize. A floorDB of zero or above
// selects DefaultFloorDB.
func NewAnalyzer(size, sampleRate int, floorDB float64) (*Analyzer, error) {
	if size < MinWindowSize || !isPowerOfTwo(size) {
		return nil, fmt.Errorf("window size %d must be a power of two >= %d", size, MinWindowSize)
	}
	if floorDB >= 0 || math.IsNaN(floorDB) {
		floorDB = DefaultFloorDB
	}
	a := &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		floorDB:    floorDB,
		floorAmp:   math.Pow(10, floorDB/20),
		window:     hann(size),
		bins:       make([]complex128, size),
	}
	for _, w := range a.window {
		a.gain += w
	}
	return a, nil
}

// Size returns the window length in frames.
func (a *Analyzer) Size() int { return a.size }

// Analyze computes a frame of the given mode. points is the number of
// waveform columns and is ignored for spectrum frames. Windows shorter than
// the analyzer size are treated as zero padded.
func (a *Analyzer) Analyze(w Window, mode Mode, points int) Frame {
	a.mono = w.mono(a.mono)
	frame := Frame{Mode: mode, Start: w.Start}
	switch mode {
	case ModeWaveform:
		frame.Waveform = envelope(a.mono, points)
	default:
		frame.Spectrum = a.spectrum()
	}
	return frame
}

func (a *Analyzer) spectrum() SpectrumFrame {
	for i := range a.bins {
		var s float64
		if i < len(a.mono) {
			s = a.mono[i]
		}
		a.bins[i] = complex(s*a.window[i], 0)
	}
	// Length is a validated power of two.
	_ = gofft.FFT(a.bins)

	half := a.size / 2
	mags := make([]float64, half)
	for k := range half {
		scale := 2 / a.gain
		if k == 0 {
			scale = 1 / a.gain
		}
		mag := cmplxAbs(a.bins[k]) * scale
		if mag <= a.floorAmp || math.IsNaN(mag) {
			mags[k] = a.floorDB
			continue
		}
		mags[k] = 20 * math.Log10(mag)
	}
	return SpectrumFrame{SampleRate: a.sampleRate, FloorDB: a.floorDB, Magnitudes: mags}
}

// envelope splits mono into points columns and reports, per column, the
// positive and negative envelope as 0.75 of the peak plus 0.25 of the mean
// of samples with that sign.
func envelope(mono []float64, points int) WaveformFrame {
	if points <= 0 {
		return WaveformFrame{}
	}
	out := WaveformFrame{Upper: make([]float64, points), Lower: make([]float64, points)}
	if len(mono) == 0 {
		return out
	}
	// Column c covers [c·n/points, (c+1)·n/points), at least one sample, so
	// every column is filled even when points exceeds the sample count.
	n := len(mono)
	for c := range points {
		lo := min(c*n/points, n-1)
		hi := min(max((c+1)*n/points, lo+1), n)

		var posPeak, posSum, negPeak, negSum float64
		var posCount, negCount int
		for _, s := range mono[lo:hi] {
			switch {
			case s > 0:
				posPeak = math.Max(posPeak, s)
				posSum += s
				posCount++
			case s < 0:
				negPeak = math.Max(negPeak, -s)
				negSum -= s
				negCount++
			}
		}
		if posCount > 0 {
			out.Upper[c] = 0.75*posPeak + 0.25*posSum/float64(posCount)
		}
		if negCount > 0 {
			out.Lower[c] = 0.75*negPeak + 0.25*negSum/float64(negCount)
		}
	}
	return out
}

// Forward runs the FFT over x in place. len(x) must be a power of two.
func Forward(x []complex128) error {
	if !isPowerOfTwo(len(x)) {
		return fmt.Errorf("fft length %d is not a power of two", len(x))
	}
	return gofft.FFT(x)
}

// Inverse runs the inverse FFT over x in place by conjugating around the
// forward transform.
func Inverse(x []complex128) error {
	if !isPowerOfTwo(len(x)) {
		return fmt.Errorf("fft length %d is not a power of two", len(x))
	}
	for i, v := range x {
		x[i] = complex(real(v), -imag(v))
	}
	if err := gofft.FFT(x); err != nil {
		return err
	}
	n := float64(len(x))
	for i, v := range x {
		x[i] = complex(real(v)/n, -imag(v)/n)
	}
	return nil
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range n {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
