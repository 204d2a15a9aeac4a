package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/dataset"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Strikethrough(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectStep modelState = iota
	stateInputStep
)

type interactiveModel struct {
	err      error
	ds       *dataset.DataSet
	sc       *scenario
	st       vbuf.BackingStore
	filename string
	result   string
	rebinds  *rebindLog
	done     []bool
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(filename string, sc *scenario, st vbuf.BackingStore) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "{op: append, layout: [{startRepeat: [x]}], data: [1, 2]}"
	ti.Prompt = "step: "
	ti.Width = 60
	return &interactiveModel{
		filename: filename,
		sc:       sc,
		st:       st,
		input:    ti,
		done:     make([]bool, len(sc.Steps)),
		state:    stateSelectStep,
	}
}

// rebindLog collects rebind notices. The open command fills it before
// handing it over in openedMsg; afterwards only the update loop touches it.
type rebindLog struct {
	lines []string
}

func (l *rebindLog) record(buf int, old, new vbuf.Handle, size int) {
	l.lines = append(l.lines, fmt.Sprintf("buffer %d: %d -> %d (%d bytes)", buf, old, new, size))
}

func (l *rebindLog) last() (string, bool) {
	if l == nil || len(l.lines) == 0 {
		return "", false
	}
	return l.lines[len(l.lines)-1], true
}

type openedMsg struct {
	err     error
	ds      *dataset.DataSet
	rebinds *rebindLog
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.openDataSet
}

func (m *interactiveModel) openDataSet() tea.Msg {
	log := &rebindLog{}
	ds, err := m.sc.open(m.st, log.record)
	return openedMsg{err: err, ds: ds, rebinds: log}
}

// runStep applies s to the data set and records the outcome.
func (m *interactiveModel) runStep(index int, s step) {
	counts, err := s.apply(m.ds)
	m.err, m.result = err, ""
	if err != nil {
		return
	}
	m.result = fmt.Sprintf("points: %v", counts)
	if index >= 0 {
		m.done[index] = true
		if m.selected < len(m.sc.Steps)-1 {
			m.selected++
		}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.state == stateSelectStep {
				return m, m.quit()
			}

		case "up", "k":
			if m.state == stateSelectStep && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectStep && m.selected < len(m.sc.Steps)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectStep:
				if m.ds != nil && len(m.sc.Steps) > 0 {
					m.runStep(m.selected, m.sc.Steps[m.selected])
				}
			case stateInputStep:
				s, err := parseStep(m.input.Value())
				if err != nil {
					m.err, m.result = err, ""
					return m, nil
				}
				m.input.Reset()
				m.input.Blur()
				m.state = stateSelectStep
				m.runStep(-1, s)
				return m, nil
			}

		case "a":
			if m.state == stateSelectStep {
				m.state = stateInputStep
				m.input.Focus()
				return m, textinput.Blink
			}

		case "esc":
			if m.state == stateInputStep {
				m.input.Blur()
				m.state = stateSelectStep
			}
		}

	case openedMsg:
		m.err = msg.err
		m.ds = msg.ds
		m.rebinds = msg.rebinds
	}

	if m.state == stateInputStep {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) quit() tea.Cmd {
	if m.ds != nil {
		m.ds.Close()
	}
	return tea.Quit
}

func (m *interactiveModel) View() string {
	if m.ds == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
		}
		return "Opening data set..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Vertex Buffer Inspector"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	for i, s := range m.sc.Steps {
		line := fmt.Sprintf("%2d. %s", i+1, s)
		switch {
		case i == m.selected && m.state == stateSelectStep:
			b.WriteString(selectedStyle.Render("> " + line))
		case m.done[i]:
			b.WriteString("  " + doneStyle.Render(line))
		default:
			b.WriteString("  " + stepStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateInputStep {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	b.WriteString(stateStyle.Render(strings.TrimRight(describe(m.ds), "\n")))
	b.WriteString("\n")

	if line, ok := m.rebinds.last(); ok {
		b.WriteString(helpStyle.Render("last rebind " + line))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.state == stateInputStep {
		b.WriteString(helpStyle.Render("enter run • esc back"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • enter run step • a type a step • q quit"))
	}
	return b.String()
}

func runInteractive(filename string, sc *scenario, st vbuf.BackingStore) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal on stdout")
	}
	p := tea.NewProgram(newInteractiveModel(filename, sc, st), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
