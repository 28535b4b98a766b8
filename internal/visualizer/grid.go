package visualizer

import "strings"

// Cell is one terminal character.
type Cell struct {
	Rune  rune
	Color Color
}

var blankCell = Cell{Rune: ' ', Color: NoColor}

// Grid is a rendered frame plus the per-column smoothing state the next
// Build call starts from.
type Grid struct {
	Rows  int
	Cols  int
	Mode  Mode
	Cells []Cell

	// Levels holds the displayed bar level per column; for waveforms it is
	// the upper envelope and Lower the lower one.
	Levels        []float64
	Lower         []float64
	Velocity      []float64
	LowerVelocity []float64

	// Peak is the adaptive waveform normalisation level.
	Peak float64
}

// NewGrid returns a blank grid. Negative dimensions are treated as zero.
func NewGrid(rows, cols int) *Grid {
	rows, cols = max(rows, 0), max(cols, 0)
	g := &Grid{
		Rows:          rows,
		Cols:          cols,
		Cells:         make([]Cell, rows*cols),
		Levels:        make([]float64, cols),
		Lower:         make([]float64, cols),
		Velocity:      make([]float64, cols),
		LowerVelocity: make([]float64, cols),
	}
	for i := range g.Cells {
		g.Cells[i] = blankCell
	}
	return g
}

// At returns the cell at row, col, or a blank cell when out of range.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return blankCell
	}
	return g.Cells[row*g.Cols+col]
}

func (g *Grid) set(row, col int, c Cell) {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return
	}
	g.Cells[row*g.Cols+col] = c
}

// String renders the runes, one line per row, without colour.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(g.Rows * (g.Cols + 1))
	for r := range g.Rows {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := range g.Cols {
			sb.WriteRune(g.Cells[r*g.Cols+c].Rune)
		}
	}
	return sb.String()
}

// resample copies src into dst by nearest column. A nil or empty src leaves
// dst zeroed.
func resample(dst, src []float64) {
	if len(src) == 0 {
		clear(dst)
		return
	}
	if len(src) == len(dst) {
		copy(dst, src)
		return
	}
	for i := range dst {
		dst[i] = src[i*len(src)/len(dst)]
	}
}
