package ui

import (
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/termscope/internal/visualizer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#888888"})

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

// cellStyles caches one foreground style per palette index.
type cellStyles struct {
	renderer *lipgloss.Renderer

	mu     sync.Mutex
	styles map[visualizer.Color]lipgloss.Style
}

func newCellStyles(r *lipgloss.Renderer) *cellStyles {
	return &cellStyles{renderer: r, styles: make(map[visualizer.Color]lipgloss.Style)}
}

func (s *cellStyles) get(c visualizer.Color) lipgloss.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.styles[c]
	if !ok {
		st = s.renderer.NewStyle().Foreground(lipgloss.Color(strconv.Itoa(int(c))))
		s.styles[c] = st
	}
	return st
}
