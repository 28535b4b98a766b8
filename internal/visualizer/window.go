package visualizer

// Window is a run of N interleaved frames starting at frame Start. Frames
// past the end of the stream are zero.
type Window struct {
	Start    int64
	Channels int
	Samples  []float32
}

// NewWindow allocates a zeroed window of size frames.
func NewWindow(size, channels int) Window {
	if channels <= 0 {
		channels = 1
	}
	return Window{Channels: channels, Samples: make([]float32, size*channels)}
}

// Frames returns the window length in frames.
func (w Window) Frames() int {
	if w.Channels <= 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

// Clear zeroes samples from frame onwards.
func (w Window) Clear(frame int) {
	if frame < 0 {
		frame = 0
	}
	start := frame * w.Channels
	if start >= len(w.Samples) {
		return
	}
	clear(w.Samples[start:])
}

// mono mixes the window down to one channel into dst, growing it as needed.
func (w Window) mono(dst []float64) []float64 {
	n := w.Frames()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	ch := w.Channels
	for i := range n {
		var sum float64
		for c := range ch {
			sum += float64(w.Samples[i*ch+c])
		}
		dst[i] = sum / float64(ch)
	}
	return dst
}
