// Package ringbuf is the bounded sample store shared between the decoder and
// its consumers. One producer publishes frames; each consumer owns a cursor
// that only moves forward and never passes the published frame count.
package ringbuf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olivier-w/termscope/internal/audio"
)

var (
	// ErrNotReady means fewer frames are published than requested. It is
	// transient; callers retry later.
	ErrNotReady = errors.New("ringbuf: not enough frames published")
	// ErrAborted is returned to every waiter once Abort is called.
	ErrAborted = errors.New("ringbuf: aborted")
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("ringbuf: closed for writing")

	errExpired = errors.New("ringbuf: wait expired")
)

// Cursor identifies a consumer.
type Cursor int

const (
	// Playback tracks what has been handed to the audio output.
	Playback Cursor = iota
	// Analysis tracks the start of the next analysis window.
	Analysis

	numCursors
)

func (c Cursor) String() string {
	switch c {
	case Playback:
		return "playback"
	case Analysis:
		return "analysis"
	}
	return fmt.Sprintf("cursor(%d)", int(c))
}

// Ring is a fixed-capacity circular store of interleaved float32 frames.
// The producer blocks when writing would overwrite frames the slowest cursor
// has not released.
type Ring struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf      []float32
	channels int
	capacity int64

	written int64
	cursors [numCursors]int64
	closed  bool
	aborted bool
}

// New creates a ring holding capacity frames of the given channel count.
func New(capacity, channels int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	if channels <= 0 {
		channels = 1
	}
	r := &Ring{
		buf:      make([]float32, capacity*channels),
		channels: channels,
		capacity: int64(capacity),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Capacity returns the ring size in frames.
func (r *Ring) Capacity() int { return int(r.capacity) }

// Channels returns the number of interleaved samples per frame.
func (r *Ring) Channels() int { return r.channels }

// Write copies the block into the ring, blocking while it is full. The block
// must start at the current published frame. Write returns ctx.Err() when
// ctx is done and ErrAborted after Abort; frames copied before that remain
// published.
func (r *Ring) Write(ctx context.Context, block audio.SampleBlock) error {
	if block.Channels != r.channels {
		return fmt.Errorf("ringbuf: block has %d channels, ring has %d", block.Channels, r.channels)
	}

	stop := context.AfterFunc(ctx, r.wake)
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	if block.Start != r.written {
		return fmt.Errorf("ringbuf: block starts at frame %d, expected %d", block.Start, r.written)
	}

	samples := block.Samples
	for len(samples) > 0 {
		if r.aborted {
			return ErrAborted
		}
		if r.closed {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		free := r.capacity - (r.written - r.slowest())
		if free <= 0 {
			r.cond.Wait()
			continue
		}

		n := int64(len(samples) / r.channels)
		if n > free {
			n = free
		}
		r.copyIn(r.written, samples[:n*int64(r.channels)])
		samples = samples[n*int64(r.channels):]
		r.written += n
		r.cond.Broadcast()
	}
	return nil
}

// Read copies frames starting at the cursor into dst without advancing it.
// dst must hold a whole number of frames. When fewer frames are published it
// returns ErrNotReady, or, after Close, the frames that remain and io.EOF.
func (r *Ring) Read(id Cursor, dst []float32) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aborted {
		return 0, ErrAborted
	}
	want := int64(len(dst) / r.channels)
	start := r.cursors[id]
	avail := r.written - start
	if avail >= want {
		r.copyOut(start, dst[:want*int64(r.channels)])
		return int(want), nil
	}
	if !r.closed {
		return 0, ErrNotReady
	}
	r.copyOut(start, dst[:avail*int64(r.channels)])
	return int(avail), io.EOF
}

// ReadBlocking waits until at least one frame is available at the cursor,
// copies up to len(dst) samples and advances the cursor past them. It returns
// io.EOF once the stream is closed and drained.
func (r *Ring) ReadBlocking(ctx context.Context, id Cursor, dst []float32) (int, error) {
	stop := context.AfterFunc(ctx, r.wake)
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.aborted {
			return 0, ErrAborted
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		avail := r.written - r.cursors[id]
		if avail > 0 {
			n := int64(len(dst) / r.channels)
			if n > avail {
				n = avail
			}
			r.copyOut(r.cursors[id], dst[:n*int64(r.channels)])
			r.cursors[id] += n
			r.cond.Broadcast()
			return int(n), nil
		}
		if r.closed {
			return 0, io.EOF
		}
		r.cond.Wait()
	}
}

// Advance moves the cursor forward by n frames, clamped to the published
// frame count. It returns the new cursor position.
func (r *Ring) Advance(id Cursor, n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 0 {
		n = 0
	}
	return r.moveTo(id, r.cursors[id]+n)
}

// AdvanceTo moves the cursor to pos. Cursors never move backwards or past the
// published frame count; the resulting position is returned.
func (r *Ring) AdvanceTo(id Cursor, pos int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moveTo(id, pos)
}

func (r *Ring) moveTo(id Cursor, pos int64) int64 {
	if pos > r.written {
		pos = r.written
	}
	if pos > r.cursors[id] {
		r.cursors[id] = pos
		r.cond.Broadcast()
	}
	return r.cursors[id]
}

// WaitPublished blocks until frame is published, the stream is closed,
// expire fires, or ctx is done. It reports whether frame is published. A nil
// expire waits without bound.
func (r *Ring) WaitPublished(ctx context.Context, frame int64, expire <-chan time.Time) (bool, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if expire != nil {
		go func() {
			select {
			case <-expire:
				cancel(errExpired)
			case <-ctx.Done():
			}
		}()
	}
	stop := context.AfterFunc(ctx, r.wake)
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		switch {
		case r.written >= frame:
			return true, nil
		case r.aborted:
			return false, ErrAborted
		case r.closed:
			return false, nil
		case ctx.Err() != nil:
			if errors.Is(context.Cause(ctx), errExpired) {
				return false, nil
			}
			return false, ctx.Err()
		}
		r.cond.Wait()
	}
}

// Published returns the number of frames the producer has published. It is
// distinct from any cursor position.
func (r *Ring) Published() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Position returns the cursor position.
func (r *Ring) Position(id Cursor) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursors[id]
}

// Buffered returns how many frames are held for the slowest cursor.
func (r *Ring) Buffered() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written - r.slowest()
}

// Close marks the end of the stream. Readers drain what remains.
func (r *Ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}

// Closed reports whether the producer has reached the end of the stream.
func (r *Ring) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Abort wakes every waiter with ErrAborted. It is used on shutdown.
func (r *Ring) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = true
	r.cond.Broadcast()
}

func (r *Ring) wake() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

func (r *Ring) slowest() int64 {
	low := r.cursors[0]
	for _, c := range r.cursors[1:] {
		if c < low {
			low = c
		}
	}
	return low
}

// copyIn writes samples for frames starting at frame, wrapping as needed.
func (r *Ring) copyIn(frame int64, samples []float32) {
	off := int((frame % r.capacity) * int64(r.channels))
	n := copy(r.buf[off:], samples)
	copy(r.buf, samples[n:])
}

// copyOut reads samples for frames starting at frame, wrapping as needed.
func (r *Ring) copyOut(frame int64, dst []float32) {
	off := int((frame % r.capacity) * int64(r.channels))
	n := copy(dst, r.buf[off:])
	copy(dst[n:], r.buf)
}
