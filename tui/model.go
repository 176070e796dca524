package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rp8000/midi"
	"rp8000/theme"
	"rp8000/turntable"
)

// Display is the part of turntable.Session the UI drives.
type Display interface {
	Model() turntable.Model
	Tempo() (bpm float64, channel int)
	PortName() (string, error)
	SetTempo(bpm float64, channel int) error
	EnableChannel(channel int) error
	Startup() error
	TempoMode() error
	TimeMode() error
	Shutdown() error
}

// Tempo steps in hundredths of a BPM.
const (
	fineStep   = 10
	coarseStep = 100
	maxCenti   = 0xFFFF
)

type Model struct {
	Display Display
	Theme   *theme.Theme
	// PortEvents, when set, replaces one-shot port lookups with a watcher.
	PortEvents <-chan midi.PortEvent

	centi    int // tempo x100, kept integral so repeated steps do not drift
	channel  int
	port     string
	portErr  error
	status   string
	err      error
	quitting bool

	// Actions run one at a time in key order; busy is set while one is in flight.
	queue []action
	busy  bool
}

type action struct {
	name  string
	tempo bool
	run   func() error
}

// PortMsg reports the resolved output port.
type PortMsg struct {
	Name string
	Err  error
}

// SentMsg reports the outcome of one action.
type SentMsg struct {
	Action string
	Err    error
}

func NewModel(display Display, th *theme.Theme) Model {
	bpm, channel := display.Tempo()
	return Model{
		Display: display,
		Theme:   th,
		centi:   int(bpm*100 + 0.5),
		channel: channel,
	}
}

func resolvePort(d Display) tea.Cmd {
	return func() tea.Msg {
		name, err := d.PortName()
		return PortMsg{Name: name, Err: err}
	}
}

func (a action) cmd() tea.Cmd {
	return func() tea.Msg {
		return SentMsg{Action: a.name, Err: a.run()}
	}
}

// enqueue appends a. A tempo change replaces a tempo change still waiting
// at the tail, so only the latest value is sent.
func (m Model) enqueue(a action) (Model, tea.Cmd) {
	queue := append([]action(nil), m.queue...)
	if n := len(queue); a.tempo && n > 0 && queue[n-1].tempo {
		queue[n-1] = a
	} else {
		queue = append(queue, a)
	}
	m.queue = queue
	return m.next()
}

func (m Model) next() (Model, tea.Cmd) {
	if m.busy || len(m.queue) == 0 {
		return m, nil
	}
	a := m.queue[0]
	m.queue = m.queue[1:]
	m.busy = true
	return m, a.cmd()
}

// ListenForPorts waits for the next watcher event.
func ListenForPorts(events <-chan midi.PortEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return PortEventMsg(ev)
	}
}

// PortEventMsg wraps a watcher event.
type PortEventMsg midi.PortEvent

func (m Model) Init() tea.Cmd {
	if m.PortEvents != nil {
		return ListenForPorts(m.PortEvents)
	}
	return resolvePort(m.Display)
}

func (m Model) bpm() float64 {
	return float64(m.centi) / 100
}

func (m Model) nudge(delta int) (Model, tea.Cmd) {
	m.centi += delta
	if m.centi < 0 {
		m.centi = 0
	}
	if m.centi > maxCenti {
		m.centi = maxCenti
	}
	bpm, channel, d := m.bpm(), m.channel, m.Display
	return m.enqueue(action{
		name:  fmt.Sprintf("tempo %.2f", bpm),
		tempo: true,
		run:   func() error { return d.SetTempo(bpm, channel) },
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m.enqueue(action{name: "shutdown", run: m.Display.Shutdown})

		case "up", "+", "=":
			return m.nudge(fineStep)

		case "down", "-", "_":
			return m.nudge(-fineStep)

		case "right", "]":
			return m.nudge(coarseStep)

		case "left", "[":
			return m.nudge(-coarseStep)

		case "1", "2", "3", "4":
			ch := int(msg.String()[0] - '0')
			m.channel = ch
			d := m.Display
			return m.enqueue(action{
				name: fmt.Sprintf("channel %d", ch),
				run:  func() error { return d.EnableChannel(ch) },
			})

		case "t":
			return m.enqueue(action{name: "tempo mode", run: m.Display.TempoMode})

		case "m":
			return m.enqueue(action{name: "time mode", run: m.Display.TimeMode})

		case "s":
			return m.enqueue(action{name: "startup", run: m.Display.Startup})

		case "r":
			return m, resolvePort(m.Display)
		}

	case PortMsg:
		m.port, m.portErr = msg.Name, msg.Err

	case PortEventMsg:
		if msg.Type == midi.PortConnected {
			m.port, m.portErr = msg.Name, nil
		} else {
			m.port, m.portErr = "", msg.Err
		}
		return m, ListenForPorts(m.PortEvents)

	case SentMsg:
		m.status, m.err = msg.Action, msg.Err
		m.busy = false
		if m.quitting && msg.Action == "shutdown" {
			return m, tea.Quit
		}
		return m.next()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting && m.status == "shutdown" {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	okStyle := lipgloss.NewStyle().Foreground(m.Theme.Success())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	sym := m.Theme.Symbols

	port := fmt.Sprintf("%c %s", sym.PortFound, m.port)
	if m.portErr != nil {
		port = errStyle.Render(fmt.Sprintf("%c %v", sym.PortMissing, m.portErr))
	}

	header := headerStyle.Render(fmt.Sprintf("rp8000  %s  ", m.Display.Model())) + port

	readout := m.Theme.Readout().Render(fmt.Sprintf("%7.2f BPM", m.bpm()))

	var channels strings.Builder
	for ch := 1; ch <= turntable.DisplayChannels; ch++ {
		if ch == m.channel {
			channels.WriteString(okStyle.Render(fmt.Sprintf("%c%d ", sym.Channel, ch)))
		} else {
			channels.WriteString(dimStyle.Render(fmt.Sprintf(" %d ", ch)))
		}
	}

	status := ""
	switch {
	case m.err != nil:
		status = errStyle.Render(fmt.Sprintf("%c %s: %v", sym.Failed, m.status, m.err))
	case m.status != "":
		status = okStyle.Render(fmt.Sprintf("%c %s", sym.OK, m.status))
	}

	help := dimStyle.Render("up/down:±0.1  left/right:±1  1-4:channel  t:tempo mode  m:time mode  s:startup  r:rescan  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(readout)
	out.WriteString("\n")
	out.WriteString(channels.String())
	out.WriteString("\n\n")
	out.WriteString(status)
	out.WriteString("\n")
	out.WriteString(help)

	return out.String()
}
