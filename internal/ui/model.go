package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/termscope/internal/scheduler"
	"github.com/olivier-w/termscope/internal/util"
)

// statusLines is the number of rows below the visualization.
const statusLines = 2

// resizer receives the grid size left for the visualization.
type resizer interface {
	resize(rows, cols int)
}

// Model is the Bubbletea model that displays frames composed by the canvas.
type Model struct {
	canvas   resizer
	title    string
	onQuit   func()
	progress progress.Model

	body      string
	status    scheduler.Status
	hasStatus bool
	width     int
	height    int
	quitting  bool
}

func newModel(canvas resizer, title string, onQuit func()) Model {
	p := progress.New(
		progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
		progress.WithoutPercentage(),
	)
	return Model{canvas: canvas, title: title, onQuit: onQuit, progress: p}
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("termscope: " + m.title)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width/3, 10), 40)
		if m.canvas != nil {
			m.canvas.resize(max(msg.Height-statusLines, 0), max(msg.Width, 0))
		}
		return m, nil

	case frameMsg:
		m.body = msg.body
		if msg.hasStatus {
			m.status = msg.status
			m.hasStatus = true
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.body)
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpText()))
	return b.String()
}

func (m Model) statusLine() string {
	title := titleStyle.Render(m.title)
	if !m.hasStatus {
		return title
	}
	st := m.status

	parts := []string{title}
	if st.Duration > 0 {
		parts = append(parts, m.progress.ViewAs(util.Ratio(st.Position, st.Duration)))
	}
	parts = append(parts, timeStyle.Render(util.FormatPosition(st.Position, st.Duration)))

	info := fmt.Sprintf("%s  %s", st.Mode, st.State)
	if st.Silent {
		info += "  silent"
	}
	if st.Dropped > 0 {
		info += fmt.Sprintf("  dropped %d", st.Dropped)
	}
	parts = append(parts, statusStyle.Render(info))
	return strings.Join(parts, "  ")
}
