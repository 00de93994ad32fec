package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seqview/midifile"
)

const (
	focusTracks = iota
	focusEvents
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	selectedStyle  = lipgloss.NewStyle().Reverse(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	trackPaneStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Model browses one parsed file: a track list on the left, the selected
// track's events on the right.
type Model struct {
	file     *midifile.File
	name     string
	metrical bool

	focus  int
	track  int
	cursor int
	offset int

	width    int
	height   int
	quitting bool
}

func newModel(name string, f *midifile.File) Model {
	metrical := !f.SMPTETiming()
	if metrical {
		f.UpdateSeconds()
	}
	return Model{file: f, name: name, metrical: metrical}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) events() []midifile.Event {
	if m.track >= len(m.file.Tracks) {
		return nil
	}
	return m.file.Tracks[m.track].Events
}

// visibleRows is the height of the event pane.
func (m Model) visibleRows() int {
	rows := m.height - 5
	if rows < 3 {
		return 3
	}
	return rows
}

func (m Model) move(delta int) Model {
	if m.focus == focusTracks {
		m.track = clamp(m.track+delta, len(m.file.Tracks))
		m.cursor = 0
		m.offset = 0
		return m
	}
	m.cursor = clamp(m.cursor+delta, len(m.events()))
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if rows := m.visibleRows(); m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	return m
}

func clamp(v, n int) int {
	if n == 0 {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "tab":
			if m.focus == focusTracks {
				m.focus = focusEvents
			} else {
				m.focus = focusTracks
			}

		case "up", "k":
			return m.move(-1), nil

		case "down", "j":
			return m.move(1), nil

		case "pgup":
			return m.move(-m.visibleRows()), nil

		case "pgdown":
			return m.move(m.visibleRows()), nil

		case "home", "g":
			return m.move(-1 << 30), nil

		case "end", "G":
			return m.move(1 << 30), nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := headerStyle.Render(m.headerLine())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.trackList(), m.eventList())
	help := dimStyle.Render("tab:pane  j/k:move  g/G:jump  q:quit")

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(body)
	out.WriteString("\n")
	out.WriteString(m.readout())
	out.WriteString("\n")
	out.WriteString(help)
	return out.String()
}

func (m Model) headerLine() string {
	f := m.file
	if !m.metrical {
		return fmt.Sprintf("%s  %v  %d tracks  SMPTE 0x%04X",
			m.name, f.Format, len(f.Tracks), f.TicksPerQuarter)
	}
	return fmt.Sprintf("%s  %v  %d tracks  %d tpq  %.3fs",
		m.name, f.Format, len(f.Tracks), f.TicksPerQuarter, f.Duration())
}

func (m Model) trackList() string {
	var out strings.Builder
	for n, t := range m.file.Tracks {
		name := t.Name
		if name == "" {
			name = "(unnamed)"
		}
		line := fmt.Sprintf("%2d %-16s %5d", n, clip(name, 16), len(t.Events))
		if n == m.track {
			line = selectedStyle.Render(line)
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	if len(m.file.Tracks) == 0 {
		out.WriteString(dimStyle.Render("no tracks"))
	}
	return trackPaneStyle.Render(out.String())
}

func (m Model) eventList() string {
	events := m.events()
	rows := m.visibleRows()
	var out strings.Builder
	for n := m.offset; n < len(events) && n < m.offset+rows; n++ {
		e := &events[n]
		var line string
		if sec, ok := e.Seconds(); ok {
			line = fmt.Sprintf("%8d %9.3fs  %v", e.Tick, sec, e.Message)
		} else {
			line = fmt.Sprintf("%8d            %v", e.Tick, e.Message)
		}
		line = clip(line, m.eventWidth())
		if n == m.cursor && m.focus == focusEvents {
			line = selectedStyle.Render(line)
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	if len(events) == 0 {
		out.WriteString(dimStyle.Render("no events"))
	}
	return out.String()
}

// eventWidth leaves room for the track pane on the left.
func (m Model) eventWidth() int {
	w := m.width - 28
	if w < 20 {
		return 20
	}
	return w
}

func (m Model) readout() string {
	events := m.events()
	if len(events) == 0 {
		return ""
	}
	e := &events[clamp(m.cursor, len(events))]
	if sec, ok := e.Seconds(); ok {
		return dimStyle.Render(fmt.Sprintf("tick %d  %.3fs  %v", e.Tick, sec, e.Message))
	}
	return dimStyle.Render(fmt.Sprintf("tick %d  %v", e.Tick, e.Message))
}

func clip(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
