// Package scheduler runs a visualization session: it decodes into the ring,
// paces frames against the playback clock and draws them on a canvas.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olivier-w/termscope/internal/audio"
	"github.com/olivier-w/termscope/internal/clock"
	"github.com/olivier-w/termscope/internal/ringbuf"
	"github.com/olivier-w/termscope/internal/visualizer"
)

// Canvas is a grid of terminal cells. Dimensions may change between calls;
// writes outside the current dimensions must be ignored.
type Canvas interface {
	Dimensions() (rows, cols int)
	SetCell(row, col int, r rune, c visualizer.Color)
	Present() error
}

// StatusSetter is implemented by canvases that show a status line.
type StatusSetter interface {
	SetStatus(Status)
}

// Status describes the session for the status line.
type Status struct {
	Title    string
	State    State
	Mode     visualizer.Mode
	Position time.Duration
	Duration time.Duration
	Frames   int
	Dropped  int
	Silent   bool
}

// Output is an audio device playing from the ring's playback cursor.
type Output interface {
	clock.FrameSource
	Close() error
}

// errorReporter is implemented by outputs that can say why they stopped.
type errorReporter interface {
	Err() error
}

// OutputFactory opens the audio output for a stream.
type OutputFactory func(ctx context.Context, ring *ringbuf.Ring, stream audio.Stream) (Output, error)

// Options configures a session. Zero values select defaults.
type Options struct {
	Path       string
	Title      string
	Mode       visualizer.Mode
	FPS        int
	WindowSize int
	FloorDB    float64
	Builder    visualizer.BuilderOptions
	Pacing     Pacing

	BufferSeconds float64
	PrimeSeconds  float64
	// WaitTimeout bounds the wait for an unpublished window, measured on
	// Deps.Wall; zero means half a frame interval.
	WaitTimeout time.Duration
}

// Deps are the collaborators of a session.
type Deps struct {
	Open   func(path string) (audio.Decoder, error)
	Canvas Canvas
	Wall   clock.Wall
	// Output is optional; without it the session is silent and paced by
	// the wall clock.
	Output   OutputFactory
	Logger   *slog.Logger
	Observer func(frame visualizer.Frame, grid *visualizer.Grid)
}

// Scheduler runs one session.
type Scheduler struct {
	opts Options
	deps Deps
	log  *slog.Logger
}

// New returns a scheduler. Run may be called once.
func New(opts Options, deps Deps) *Scheduler {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.WindowSize == 0 {
		opts.WindowSize = visualizer.DefaultWindowSize
	}
	if opts.FloorDB == 0 {
		opts.FloorDB = visualizer.DefaultFloorDB
	}
	if opts.BufferSeconds <= 0 {
		opts.BufferSeconds = 4
	}
	if opts.PrimeSeconds < 0 {
		opts.PrimeSeconds = 0
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = time.Second / time.Duration(opts.FPS) / 2
	}
	if opts.Builder.FPS == 0 {
		opts.Builder.FPS = opts.FPS
	}
	if deps.Open == nil {
		deps.Open = audio.Open
	}
	if deps.Wall == nil {
		deps.Wall = clock.System{}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{opts: opts, deps: deps, log: log}
}

// session is the state of a running session.
type session struct {
	stream   audio.Stream
	ring     *ringbuf.Ring
	clock    *clock.Playback
	analyzer *visualizer.Analyzer
	builder  *visualizer.Builder
	window   visualizer.Window
	out      Output
	// silent is set when nothing pulls from the playback cursor, either
	// because no output opened or because it stopped.
	silent bool

	last     *visualizer.Frame
	grid     *visualizer.Grid
	draining bool
}

// Run plays the session to the end of the stream or until ctx is done.
// Cancelling ctx yields OutcomeInterrupted.
func (s *Scheduler) Run(ctx context.Context) Result {
	var res Result
	s.enter(&res, StateStarting)

	if s.deps.Canvas == nil {
		return s.fail(&res, OutcomeInvalid, errors.New("scheduler: no canvas"))
	}
	if _, err := visualizer.NewAnalyzer(s.opts.WindowSize, 0, s.opts.FloorDB); err != nil {
		return s.fail(&res, OutcomeInvalid, err)
	}

	dec, err := s.deps.Open(s.opts.Path)
	if err != nil {
		return s.fail(&res, OutcomeOpenFailed, err)
	}
	defer dec.Close()

	stream := dec.Stream()
	analyzer, err := visualizer.NewAnalyzer(s.opts.WindowSize, stream.SampleRate, s.opts.FloorDB)
	if err != nil {
		return s.fail(&res, OutcomeInvalid, err)
	}

	capacity := max(int(s.opts.BufferSeconds*float64(stream.SampleRate)), 2*s.opts.WindowSize)
	ring := ringbuf.New(capacity, stream.Channels)
	sess := &session{
		stream:   stream,
		ring:     ring,
		analyzer: analyzer,
		builder:  visualizer.NewBuilder(s.opts.Builder),
		window:   visualizer.NewWindow(s.opts.WindowSize, stream.Channels),
	}
	s.log.Info("session starting",
		"path", s.opts.Path,
		"format", stream.Format,
		"rate", stream.SampleRate,
		"channels", stream.Channels,
		"duration", stream.Duration,
		"mode", s.opts.Mode,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return produce(gctx, dec, ring) })

	prime := min(int64(s.opts.PrimeSeconds*float64(stream.SampleRate)), int64(capacity))
	if _, err := ring.WaitPublished(gctx, prime, nil); err != nil {
		ring.Abort()
		if werr := g.Wait(); werr != nil {
			err = werr
		}
		return s.finish(ctx, &res, nil, sess, err)
	}

	var out Output
	if s.deps.Output != nil {
		out, err = s.deps.Output(gctx, ring, stream)
		if err != nil {
			s.log.Warn("audio output unavailable, continuing silently", "err", err)
			out = nil
		}
	}
	var source clock.FrameSource
	if out != nil {
		source = out
		sess.out = out
	} else {
		sess.silent = true
	}
	sess.clock = clock.NewPlayback(stream.SampleRate, s.deps.Wall, source)
	sess.clock.Start()
	s.enter(&res, StateRunning)

	g.Go(func() error {
		defer ring.Abort()
		return s.loop(gctx, sess, &res)
	})
	return s.finish(ctx, &res, out, sess, g.Wait())
}

// produce decodes blocks into the ring until EOF, error or abort.
func produce(ctx context.Context, dec audio.Decoder, ring *ringbuf.Ring) error {
	for {
		block, err := dec.Next()
		if errors.Is(err, io.EOF) {
			ring.Close()
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := ring.Write(ctx, block); err != nil {
			if errors.Is(err, ringbuf.ErrAborted) {
				return nil
			}
			return err
		}
	}
}

func (s *Scheduler) finish(ctx context.Context, res *Result, out Output, sess *session, err error) Result {
	if sess.clock != nil {
		sess.clock.Stop()
	}
	sess.ring.Abort()
	if out != nil {
		if cerr := out.Close(); cerr != nil {
			s.log.Warn("close audio output", "err", cerr)
		}
	}

	switch {
	case ctx.Err() != nil:
		res.Outcome = OutcomeInterrupted
	case err == nil:
		res.Outcome = OutcomeOK
	default:
		res.Outcome = OutcomeDecodeFailed
		res.Err = err
	}
	s.enter(res, StateStopped)
	s.log.Info("session stopped",
		"outcome", res.Outcome,
		"frames", res.Frames,
		"dropped", res.Dropped,
		"repeated", res.Repeated,
		"err", res.Err,
	)
	return *res
}

func (s *Scheduler) fail(res *Result, outcome Outcome, err error) Result {
	res.Outcome = outcome
	res.Err = err
	s.enter(res, StateStopped)
	s.log.Error("session failed", "outcome", outcome, "err", err)
	return *res
}

func (s *Scheduler) enter(res *Result, st State) {
	for _, seen := range res.States {
		if seen == st {
			return
		}
	}
	res.States = append(res.States, st)
	s.log.Debug("state", "state", st)
}

// loop ticks at start + k/fps until the stream has played out or ctx is
// done.
func (s *Scheduler) loop(ctx context.Context, sess *session, res *Result) error {
	wall := s.deps.Wall
	fps := int64(s.opts.FPS)
	start := sess.clock.StartedAt()
	due := func(k int64) time.Time {
		return start.Add(time.Duration(k * int64(time.Second) / fps))
	}

	for k := int64(0); ; k++ {
		if wait := due(k).Sub(wall.Now()); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wall.After(wait):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := s.tick(ctx, sess, res)
		if err != nil || done {
			return err
		}

		if s.opts.Pacing == PacingDrop {
			now := wall.Now()
			for due(k + 1).Before(now) {
				k++
				res.Dropped++
			}
		}
	}
}

// tick draws one frame. It reports done once the stream is closed and the
// clock has reached the last published frame.
func (s *Scheduler) tick(ctx context.Context, sess *session, res *Result) (bool, error) {
	ring := sess.ring
	pos := sess.clock.Position()

	if s.finished(sess, res, pos) {
		return true, nil
	}

	s.checkOutput(sess)
	if sess.silent {
		ring.AdvanceTo(ringbuf.Playback, pos)
	}
	at := ring.AdvanceTo(ringbuf.Analysis, pos)

	rows, cols := s.deps.Canvas.Dimensions()
	if rows <= 0 || cols <= 0 {
		return false, nil
	}

	sess.window.Start = at
	ready, err := s.readWindow(sess)
	if err != nil {
		return false, err
	}
	if !ready {
		expire := s.deps.Wall.After(s.opts.WaitTimeout)
		if _, err := ring.WaitPublished(ctx, at+int64(sess.analyzer.Size()), expire); err != nil {
			return false, err
		}
		if s.finished(sess, res, pos) {
			return true, nil
		}
		if ready, err = s.readWindow(sess); err != nil {
			return false, err
		}
	}

	var frame visualizer.Frame
	switch {
	case ready:
		frame = sess.analyzer.Analyze(sess.window, s.opts.Mode, cols)
		sess.last = &frame
	case sess.last != nil:
		frame = *sess.last
		res.Repeated++
		s.log.Debug("window not ready, repeating frame", "frame", at)
	default:
		sess.window.Clear(0)
		frame = sess.analyzer.Analyze(sess.window, s.opts.Mode, cols)
	}

	grid := sess.builder.Build(frame, sess.grid, rows, cols)
	sess.grid = grid
	s.draw(grid)
	if err := s.deps.Canvas.Present(); err != nil {
		s.log.Warn("present frame", "err", err)
	}
	res.Frames++

	if st, ok := s.deps.Canvas.(StatusSetter); ok {
		st.SetStatus(s.status(sess, res, pos))
	}
	if s.deps.Observer != nil {
		s.deps.Observer(frame, grid)
	}
	return false, nil
}

// checkOutput switches the session to silent once the output stops
// reporting played frames. The clock then runs on the wall timer and the
// playback cursor follows it, so the producer is never left blocked.
func (s *Scheduler) checkOutput(sess *session) {
	if sess.silent || sess.out == nil {
		return
	}
	if _, ok := sess.out.PlayedFrames(); ok {
		return
	}
	sess.silent = true
	var cause error
	if r, ok := sess.out.(errorReporter); ok {
		cause = r.Err()
	}
	s.log.Warn("audio output stopped, continuing silently", "err", cause)
}

func (s *Scheduler) finished(sess *session, res *Result, pos int64) bool {
	ring := sess.ring
	if !ring.Closed() {
		return false
	}
	if !sess.draining {
		sess.draining = true
		s.enter(res, StateDraining)
		s.log.Debug("end of stream", "published", ring.Published())
	}
	return pos >= ring.Published()
}

// readWindow fills the window from the analysis cursor. It reports false
// when the window is not yet published.
func (s *Scheduler) readWindow(sess *session) (bool, error) {
	n, err := sess.ring.Read(ringbuf.Analysis, sess.window.Samples)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, io.EOF):
		sess.window.Clear(n)
		return true, nil
	case errors.Is(err, ringbuf.ErrNotReady):
		return false, nil
	}
	return false, err
}

func (s *Scheduler) draw(g *visualizer.Grid) {
	c := s.deps.Canvas
	for r := range g.Rows {
		for col := range g.Cols {
			cell := g.At(r, col)
			c.SetCell(r, col, cell.Rune, cell.Color)
		}
	}
}

func (s *Scheduler) status(sess *session, res *Result, pos int64) Status {
	st := StateRunning
	if sess.draining {
		st = StateDraining
	}
	return Status{
		Title:    s.opts.Title,
		State:    st,
		Mode:     s.opts.Mode,
		Position: framesToDuration(pos, sess.stream.SampleRate),
		Duration: sess.stream.Duration,
		Frames:   res.Frames,
		Dropped:  res.Dropped,
		Silent:   sess.silent,
	}
}

func framesToDuration(frames int64, rate int) time.Duration {
	if rate <= 0 || frames <= 0 {
		return 0
	}
	r := int64(rate)
	return time.Duration(frames/r)*time.Second + time.Duration(frames%r*int64(time.Second)/r)
}
