package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forana/blocklayout/layout"
	"github.com/forana/blocklayout/renderer/term"
)

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#1f1f9f"))

// model 在每次窗口尺寸变化时按新的列数重新排版。
type model struct {
	comp   *layout.Composition
	title  string
	width  int
	height int
	offset int // 首个可见行
	grid   *term.Grid
	result *layout.Result
}

func newModel(comp *layout.Composition, title string) *model {
	return &model{comp: comp, title: title}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		cmd := tea.Cmd(nil)
		if m.width > msg.Width {
			cmd = tea.ClearScreen
		}
		m.width, m.height = msg.Width, msg.Height
		m.relayout()
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "down", "j":
			m.scroll(1)
		case "up", "k":
			m.scroll(-1)
		}
	}
	return m, nil
}

func (m *model) relayout() {
	if m.width <= 0 {
		return
	}
	m.result = m.comp.Layout(term.WidthForColumns(m.width))
	m.grid = term.Rasterize(m.result)
	m.scroll(0)
}

func (m *model) viewport() int { return max(m.height-1, 1) }

func (m *model) scroll(delta int) {
	if m.grid == nil {
		return
	}
	m.offset = clampOffset(m.offset+delta, m.grid.Height, m.viewport())
}

func (m *model) View() string {
	if m.grid == nil {
		return ""
	}
	rows := strings.Split(term.Styled(m.grid), "\n")
	end := min(m.offset+m.viewport(), len(rows))
	var b strings.Builder
	for _, row := range rows[m.offset:end] {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	b.WriteString(statusStyle.Render(m.status()))
	return b.String()
}

func (m *model) status() string {
	f := m.result.Frame
	return fmt.Sprintf(" %s  %.0fmm  %d lines  %.0fmm tall  q quit ", m.title, f.ContainerWidth, f.Lines, f.PreferredHeight)
}
