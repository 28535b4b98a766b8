package clock

import (
	"sync"
	"time"
)

// FrameSource reports how many frames an output device has actually played.
// ok is false when the device cannot say, in which case the clock falls back
// to elapsed wall time.
type FrameSource interface {
	PlayedFrames() (frames int64, ok bool)
}

// Playback is the position clock used by the frame loop.
type Playback struct {
	rate   int64
	wall   Wall
	source FrameSource

	mu      sync.Mutex
	started bool
	stopped bool
	start   time.Time
	last    int64
}

// NewPlayback creates a clock for a stream at rate frames per second. source
// may be nil when there is no audio output.
func NewPlayback(rate int, wall Wall, source FrameSource) *Playback {
	if wall == nil {
		wall = System{}
	}
	return &Playback{rate: int64(rate), wall: wall, source: source}
}

// Start marks frame zero. Calling it again has no effect.
func (p *Playback) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.start = p.wall.Now()
}

// StartedAt returns the wall time Start was called.
func (p *Playback) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start
}

// Position returns the current playback frame. It never decreases and is
// frozen once Stop is called.
func (p *Playback) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.stopped {
		return p.last
	}
	if pos := p.compute(); pos > p.last {
		p.last = pos
	}
	return p.last
}

// Stop freezes the position.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && !p.stopped {
		if pos := p.compute(); pos > p.last {
			p.last = pos
		}
	}
	p.stopped = true
}

func (p *Playback) compute() int64 {
	if p.source != nil {
		if frames, ok := p.source.PlayedFrames(); ok {
			return frames
		}
	}
	elapsed := p.wall.Now().Sub(p.start)
	if elapsed <= 0 || p.rate <= 0 {
		return 0
	}
	// Split to avoid overflowing int64 nanoseconds × rate on long sessions.
	secs := int64(elapsed / time.Second)
	rem := int64(elapsed % time.Second)
	return secs*p.rate + rem*p.rate/int64(time.Second)
}
