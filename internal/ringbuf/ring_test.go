package ringbuf

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/olivier-w/termscope/internal/audio"
	"github.com/olivier-w/termscope/internal/clock"
)

func monoBlock(start int64, n int) audio.SampleBlock {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(start + int64(i))
	}
	return audio.SampleBlock{Start: start, Channels: 1, Samples: s}
}

func TestReadDoesNotAdvanceAndReportsNotReady(t *testing.T) {
	r := New(16, 1)
	ctx := context.Background()
	if err := r.Write(ctx, monoBlock(0, 10)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	dst := make([]float32, 4)
	for range 2 {
		n, err := r.Read(Analysis, dst)
		if err != nil || n != 4 {
			t.Fatalf("expected 4 frames, got %d (%v)", n, err)
		}
		if dst[0] != 0 || dst[3] != 3 {
			t.Fatalf("unexpected window %v", dst)
		}
	}

	r.Advance(Analysis, 8)
	if _, err := r.Read(Analysis, dst); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	r.Close()
	n, err := r.Read(Analysis, dst)
	if !errors.Is(err, io.EOF) || n != 2 {
		t.Fatalf("expected 2 trailing frames and io.EOF, got %d (%v)", n, err)
	}
	if dst[0] != 8 || dst[1] != 9 {
		t.Fatalf("unexpected trailing frames %v", dst[:2])
	}
}

func TestCursorsNeverPassPublished(t *testing.T) {
	r := New(8, 1)
	if err := r.Write(context.Background(), monoBlock(0, 5)); err != nil {
		t.Fatal(err)
	}
	if got := r.AdvanceTo(Playback, 100); got != 5 {
		t.Fatalf("expected playback cursor clamped to 5, got %d", got)
	}
	if got := r.Advance(Analysis, 50); got != 5 {
		t.Fatalf("expected analysis cursor clamped to 5, got %d", got)
	}
	if got := r.AdvanceTo(Analysis, 2); got != 5 {
		t.Fatalf("expected cursor to stay at 5 when moved backwards, got %d", got)
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := New(32, 2)
	ctx := context.Background()

	for step := range 5000 {
		switch rng.Intn(3) {
		case 0:
			free := int64(r.Capacity()) - r.Buffered()
			n := rng.Intn(12) + 1
			if int64(n) > free {
				continue
			}
			b := audio.SampleBlock{Start: r.Published(), Channels: 2, Samples: make([]float32, n*2)}
			if err := r.Write(ctx, b); err != nil {
				t.Fatalf("step %d: Write returned error: %v", step, err)
			}
		case 1:
			r.Advance(Playback, int64(rng.Intn(10)))
		default:
			r.AdvanceTo(Analysis, r.Position(Analysis)+int64(rng.Intn(10)))
		}

		pub := r.Published()
		for _, c := range []Cursor{Playback, Analysis} {
			if pos := r.Position(c); pos > pub {
				t.Fatalf("step %d: %s cursor %d passed published %d", step, c, pos, pub)
			}
		}
		if buffered := r.Buffered(); buffered > int64(r.Capacity()) {
			t.Fatalf("step %d: %d frames buffered in a ring of %d", step, buffered, r.Capacity())
		}
	}
}

func TestWriteBlocksUntilSlowestCursorReleases(t *testing.T) {
	r := New(8, 1)
	ctx := context.Background()
	if err := r.Write(ctx, monoBlock(0, 8)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Write(ctx, monoBlock(8, 4)) }()

	select {
	case err := <-done:
		t.Fatalf("expected Write to block on a full ring, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Releasing only one cursor is not enough.
	r.Advance(Playback, 4)
	select {
	case err := <-done:
		t.Fatalf("expected Write to keep blocking for the analysis cursor, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	r.Advance(Analysis, 4)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Write did not resume after both cursors released space")
	}

	dst := make([]float32, 8)
	if n, err := r.Read(Analysis, dst); err != nil || n != 8 {
		t.Fatalf("expected 8 frames, got %d (%v)", n, err)
	}
	for i, v := range dst {
		if v != float32(4+i) {
			t.Fatalf("expected frame %d at index %d, got %v", 4+i, i, v)
		}
	}
}

func TestFastProducerLosesNothing(t *testing.T) {
	const (
		blocks    = 200
		blockSize = 37
		total     = blocks * blockSize
	)
	r := New(64, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range blocks {
			if err := r.Write(ctx, monoBlock(int64(i*blockSize), blockSize)); err != nil {
				t.Errorf("Write returned error: %v", err)
				return
			}
		}
		r.Close()
	}()

	var playback, analysis []float32
	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([]float32, 16)
		for {
			n, err := r.ReadBlocking(ctx, Playback, buf)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				t.Errorf("ReadBlocking returned error: %v", err)
				return
			}
			playback = append(playback, buf[:n]...)
			time.Sleep(time.Microsecond * 50)
		}
	}()
	go func() {
		defer wg.Done()
		buf := make([]float32, 25)
		for {
			n, err := r.Read(Analysis, buf)
			if errors.Is(err, ErrNotReady) {
				r.WaitPublished(ctx, r.Position(Analysis)+int64(len(buf)), time.After(5*time.Millisecond))
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				t.Errorf("Read returned error: %v", err)
				return
			}
			analysis = append(analysis, buf[:n]...)
			r.Advance(Analysis, int64(n))
			if errors.Is(err, io.EOF) {
				return
			}
		}
	}()
	wg.Wait()

	for name, got := range map[string][]float32{"playback": playback, "analysis": analysis} {
		if len(got) != total {
			t.Fatalf("%s consumer saw %d frames, expected %d", name, len(got), total)
		}
		for i, v := range got {
			if v != float32(i) {
				t.Fatalf("%s consumer frame %d out of order: got %v", name, i, v)
			}
		}
	}
}

func TestWriteHonoursCancellation(t *testing.T) {
	r := New(4, 1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Write(ctx, monoBlock(0, 4)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Write(ctx, monoBlock(4, 4)) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Write did not observe cancellation")
	}
}

func TestAbortWakesBlockedReader(t *testing.T) {
	r := New(4, 1)
	done := make(chan error, 1)
	go func() {
		_, err := r.ReadBlocking(context.Background(), Playback, make([]float32, 4))
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	r.Abort()

	select {
	case err := <-done:
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("expected ErrAborted, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadBlocking did not wake on Abort")
	}
}

func TestWaitPublished(t *testing.T) {
	r := New(16, 1)
	ctx := context.Background()

	expired := make(chan time.Time, 1)
	expired <- time.Time{}
	ok, err := r.WaitPublished(ctx, 4, expired)
	if ok || err != nil {
		t.Fatalf("expected expiry without error, got %v (%v)", ok, err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Write(ctx, monoBlock(0, 6))
	}()
	ok, err = r.WaitPublished(ctx, 4, nil)
	if !ok || err != nil {
		t.Fatalf("expected frame 4 to be published, got %v (%v)", ok, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := r.WaitPublished(cctx, 100, make(chan time.Time)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	r.Close()
	ok, err = r.WaitPublished(ctx, 100, nil)
	if ok || err != nil {
		t.Fatalf("expected closed ring to stop waiting, got %v (%v)", ok, err)
	}
}

func TestWaitPublishedExpiresOnFakeClock(t *testing.T) {
	r := New(16, 1)
	wall := clock.NewFake(time.Unix(0, 0))
	start := wall.Now()

	ok, err := r.WaitPublished(context.Background(), 4, wall.After(time.Hour))
	if ok || err != nil {
		t.Fatalf("expected expiry without error, got %v (%v)", ok, err)
	}
	if got := wall.Now().Sub(start); got != time.Hour {
		t.Fatalf("expected the wait to run on the fake clock, advanced %v", got)
	}
}

func TestWriteRejectsGapsAndChannelMismatch(t *testing.T) {
	r := New(16, 2)
	ctx := context.Background()
	if err := r.Write(ctx, audio.SampleBlock{Start: 0, Channels: 1, Samples: make([]float32, 2)}); err == nil {
		t.Fatal("expected channel mismatch error")
	}
	if err := r.Write(ctx, audio.SampleBlock{Start: 3, Channels: 2, Samples: make([]float32, 2)}); err == nil {
		t.Fatal("expected gap error")
	}
}
