// Package ui draws frames in the terminal with Bubbletea.
package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/olivier-w/termscope/internal/scheduler"
	"github.com/olivier-w/termscope/internal/visualizer"
)

// ErrTerminalUnavailable is returned when stdout is not an interactive
// terminal or the terminal cannot be initialised.
var ErrTerminalUnavailable = errors.New("terminal unavailable")

// ErrClosed is returned by Present after the program has exited.
var ErrClosed = errors.New("canvas closed")

const (
	defaultRows        = 24
	defaultCols        = 80
	defaultSizeTimeout = 500 * time.Millisecond
)

// Options configures Open.
type Options struct {
	Title string
	// OnQuit is called when the user presses a quit key.
	OnQuit func()
	// SizeTimeout bounds the wait for the first window size report.
	SizeTimeout time.Duration
}

// Canvas is a cell grid shown by a Bubbletea program. SetCell and Present
// are called from the frame loop; the program runs on its own goroutine and
// only ever sees the latest composed frame.
type Canvas struct {
	styles *cellStyles

	mu        sync.Mutex
	rows      int
	cols      int
	cells     []visualizer.Cell
	status    scheduler.Status
	hasStatus bool

	sized     chan struct{}
	sizedOnce sync.Once

	mailbox chan frameMsg
	program *tea.Program
	done    chan struct{}
	runErr  error

	closeOnce sync.Once
}

func newCanvas(r *lipgloss.Renderer) *Canvas {
	return &Canvas{
		styles:  newCellStyles(r),
		sized:   make(chan struct{}),
		mailbox: make(chan frameMsg, 1),
		done:    make(chan struct{}),
	}
}

// Open takes over the terminal in the alternate screen and returns once the
// initial size is known.
func Open(opts Options) (*Canvas, error) {
	if !isTerminal(os.Stdout) {
		return nil, ErrTerminalUnavailable
	}

	c := newCanvas(lipgloss.NewRenderer(os.Stdout))
	c.program = tea.NewProgram(newModel(c, opts.Title, opts.OnQuit), tea.WithAltScreen())
	go func() {
		_, err := c.program.Run()
		c.runErr = err
		close(c.done)
	}()
	go c.forward()

	timeout := opts.SizeTimeout
	if timeout <= 0 {
		timeout = defaultSizeTimeout
	}
	select {
	case <-c.sized:
	case <-time.After(timeout):
		c.resize(defaultRows-statusLines, defaultCols)
	case <-c.done:
		return nil, fmt.Errorf("%w: %v", ErrTerminalUnavailable, c.runErr)
	}
	return c, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Dimensions returns the grid size available to the visualization.
func (c *Canvas) Dimensions() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows, c.cols
}

// SetCell sets one cell. Writes outside the current size are dropped; they
// happen when the terminal shrinks between Dimensions and SetCell.
func (c *Canvas) SetCell(row, col int, r rune, color visualizer.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if row < 0 || col < 0 || row >= c.rows || col >= c.cols {
		return
	}
	c.cells[row*c.cols+col] = visualizer.Cell{Rune: r, Color: color}
}

// SetStatus updates the status line shown with the next frame.
func (c *Canvas) SetStatus(st scheduler.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = st
	c.hasStatus = true
}

// Present composes the grid and hands it to the program, replacing any
// frame the program has not picked up yet. It never waits on the terminal.
func (c *Canvas) Present() error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	msg := frameMsg{
		body:      compose(c.cells, c.rows, c.cols, c.styles),
		status:    c.status,
		hasStatus: c.hasStatus,
	}
	c.mu.Unlock()

	for {
		select {
		case c.mailbox <- msg:
			return nil
		default:
		}
		select {
		case <-c.mailbox:
		default:
		}
	}
}

// Done is closed when the program exits.
func (c *Canvas) Done() <-chan struct{} {
	return c.done
}

// Close stops the program and restores the terminal.
func (c *Canvas) Close() error {
	c.closeOnce.Do(func() {
		if c.program != nil {
			c.program.Quit()
			<-c.done
		}
	})
	if c.runErr != nil && !errors.Is(c.runErr, tea.ErrProgramKilled) {
		return c.runErr
	}
	return nil
}

func (c *Canvas) forward() {
	for {
		select {
		case msg := <-c.mailbox:
			c.program.Send(msg)
		case <-c.done:
			return
		}
	}
}

func (c *Canvas) resize(rows, cols int) {
	c.mu.Lock()
	if rows != c.rows || cols != c.cols {
		c.rows, c.cols = rows, cols
		c.cells = make([]visualizer.Cell, rows*cols)
		for i := range c.cells {
			c.cells[i] = visualizer.Cell{Rune: ' ', Color: visualizer.NoColor}
		}
	}
	c.mu.Unlock()
	c.sizedOnce.Do(func() { close(c.sized) })
}

// compose renders cells row by row, styling each run of equal colour once.
func compose(cells []visualizer.Cell, rows, cols int, styles *cellStyles) string {
	var b strings.Builder
	b.Grow(rows * (cols + 1))
	var run strings.Builder
	for r := range rows {
		if r > 0 {
			b.WriteByte('\n')
		}
		line := cells[r*cols : (r+1)*cols]
		for i := 0; i < len(line); {
			color := line[i].Color
			run.Reset()
			j := i
			for ; j < len(line) && line[j].Color == color; j++ {
				ch := line[j].Rune
				if ch == 0 {
					ch = ' '
				}
				run.WriteRune(ch)
			}
			if color == visualizer.NoColor {
				b.WriteString(run.String())
			} else {
				b.WriteString(styles.get(color).Render(run.String()))
			}
			i = j
		}
	}
	return b.String()
}
