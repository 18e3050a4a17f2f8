package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/forana/blocklayout/dsl"
	"github.com/forana/blocklayout/layout"
	"github.com/forana/blocklayout/renderer/term"
)

const viewDoc = `doc View v1 {
  container width 20mm {
    text inline { "aaaa" }
    text inline { "bbbb" }
    text inline { "cccc" }
  }
}`

func newTestModel(t *testing.T) *model {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	doc, err := dsl.ParseString(viewDoc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	comp, err := layout.Compose(doc, nil, layout.BuildOptions{Typesetter: term.Typesetter{}})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	return newModel(comp, doc.Name)
}

func TestResizeRelayouts(t *testing.T) {
	m := newTestModel(t)
	if m.View() != "" {
		t.Fatalf("view before the first resize should be empty")
	}

	m.Update(tea.WindowSizeMsg{Width: 12, Height: 10})
	rows := strings.Split(m.View(), "\n")
	if rows[0] != "aaaabbbbcccc" {
		t.Fatalf("wide window should fit one line, got %q", rows[0])
	}

	_, cmd := m.Update(tea.WindowSizeMsg{Width: 8, Height: 10})
	if cmd == nil {
		t.Fatalf("shrinking should clear the screen")
	}
	rows = strings.Split(m.View(), "\n")
	if rows[0] != "aaaabbbb" || rows[1] != "cccc    " {
		t.Fatalf("narrow window should wrap, got %q", rows[:2])
	}
	if !strings.Contains(rows[len(rows)-1], "2 lines") {
		t.Fatalf("status line missing line count: %q", rows[len(rows)-1])
	}
}

func TestScrollAndQuit(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 4, Height: 2})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.offset != 1 {
		t.Fatalf("expected offset 1, got %d", m.offset)
	}
	for i := 0; i < 5; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.offset != 2 {
		t.Fatalf("offset should stop at the last row, got %d", m.offset)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("q should quit")
	}
}
