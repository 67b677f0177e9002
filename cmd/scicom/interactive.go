package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mimimalizam/scicom/bridge"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	headerHeight = 2
	footerHeight = 3
)

type interactiveModel struct {
	b        *bridge.Bridge
	source   string
	history  []string
	input    textinput.Model
	viewport viewport.Model
	ready    bool
	busy     bool
}

type evalResultMsg struct {
	err    error
	input  string
	output string
}

func newInteractiveModel(b *bridge.Bridge, source string) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = `mean(c(1, 2, 3))  or  :call mean 1,2,3 trim=0.1`
	ti.Focus()
	return &interactiveModel{b: b, source: source, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - headerHeight - footerHeight
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 4
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			if line == ":q" || line == ":quit" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.busy = true
			return m, m.evaluate(line)
		}

	case evalResultMsg:
		m.busy = false
		m.history = append(m.history, promptStyle.Render("> "+msg.input))
		switch {
		case msg.err != nil:
			m.history = append(m.history, errorStyle.Render("Error: "+msg.err.Error()))
		case msg.output != "":
			m.history = append(m.history, resultStyle.Render(msg.output))
		}
		m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *interactiveModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

// evaluate runs one line off the UI goroutine. Lines starting with ":call"
// go through the call translator; ":pending" lists live temporaries.
func (m *interactiveModel) evaluate(line string) tea.Cmd {
	b := m.b
	return func() tea.Msg {
		ctx := context.Background()
		res := evalResultMsg{input: line}
		switch {
		case line == ":pending":
			res.output = strings.Join(b.Pending(), " ")
		case strings.HasPrefix(line, ":call "):
			tokens, err := splitLine(strings.TrimPrefix(line, ":call "))
			if err != nil {
				res.err = err
				break
			}
			if len(tokens) == 0 {
				break
			}
			var out strings.Builder
			res.err = callAndPrint(ctx, &out, b, tokens[0], tokens[1:])
			res.output = strings.TrimRight(out.String(), "\n")
		default:
			v, err := b.Eval(ctx, line)
			res.err = err
			if err == nil {
				res.output = render(v)
			}
		}
		return res
	}
}

func (m *interactiveModel) View() string {
	if !m.ready {
		return "Starting..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("scicom"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(":call name args... • :pending • :q quit • ↑/↓ scroll"))
	return b.String()
}

func runInteractive(b *bridge.Bridge, source string) error {
	p := tea.NewProgram(newInteractiveModel(b, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
