package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	gomidi "gitlab.com/gomidi/midi/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rp8000/midi"
	"rp8000/midi/fake"
	"rp8000/theme"
	"rp8000/turntable"
)

func newTestModel(t *testing.T, names ...string) (Model, *fake.Ports) {
	t.Helper()
	ports := fake.NewPorts(names...)
	session, err := turntable.New("RP8000mk2", ports, turntable.WithoutInit())
	require.NoError(t, err)
	p, err := theme.Load("")
	require.NoError(t, err)
	return NewModel(session, theme.New(p)), ports
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and then every resulting message until the model is idle.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = next.(Model)
		m = drain(t, m, cmd)
	}
	return m
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return m
		}
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m
}

func TestInitResolvesPort(t *testing.T) {
	m, _ := newTestModel(t, "Foo", "RP8000mk2 Port A")

	m = drain(t, m, m.Init())
	assert.Equal(t, "RP8000mk2 Port A", m.port)
	assert.NoError(t, m.portErr)
	assert.Contains(t, m.View(), "RP8000mk2 Port A")
}

func TestInitPortMissing(t *testing.T) {
	m, _ := newTestModel(t, "Foo")

	m = drain(t, m, m.Init())
	assert.ErrorIs(t, m.portErr, midi.ErrPortNotFound)
	assert.Contains(t, m.View(), "no MIDI output port found")
}

func TestTempoKeys(t *testing.T) {
	m, ports := newTestModel(t, "RP8000mk2 Port A")
	port := ports.List[0]

	m = press(t, m, "right", "right", "up", "up", "up")
	assert.Equal(t, 2.3, m.bpm())
	assert.Len(t, port.Sent(), 5)
	assert.Equal(t, "tempo 2.30", m.status)

	m = press(t, m, "down", "left", "left", "left")
	assert.Equal(t, 0.0, m.bpm())

	sent := port.Sent()
	assert.Equal(t, "F0 00 20 7F 11 00 00 00 00 00 00 F7", midi.Hex(sent[len(sent)-1]))

	bpm, _ := m.Display.Tempo()
	assert.Equal(t, 0.0, bpm)
	assert.Contains(t, m.View(), "0.00 BPM")
}

func TestTempoCoalescesWhileBusy(t *testing.T) {
	m, ports := newTestModel(t, "RP8000mk2 Port A")

	// first key starts a send; the next three queue and collapse into one
	next, first := m.Update(key("up"))
	m = next.(Model)
	for _, k := range []string{"up", "up", "up"} {
		next, cmd := m.Update(key(k))
		m = next.(Model)
		assert.Nil(t, cmd)
	}
	require.Len(t, m.queue, 1)

	m = drain(t, m, first)
	assert.False(t, m.busy)
	assert.Empty(t, m.queue)

	sent := ports.List[0].Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "F0 00 20 7F 11 00 00 00 00 00 0A F7", midi.Hex(sent[0]))
	assert.Equal(t, "F0 00 20 7F 11 00 00 00 00 02 08 F7", midi.Hex(sent[1])) // 40 = 0x28
}

func TestChannelKeySelectsChannel(t *testing.T) {
	m, ports := newTestModel(t, "RP8000mk2 Port A")
	port := ports.List[0]

	m = press(t, m, "3")
	assert.Equal(t, 3, m.channel)
	require.Len(t, port.Sent(), 2)
	assert.Equal(t, "F0 00 20 7F 03 03 08 00 00 00 00 00 00 00 F7", midi.Hex(port.Sent()[1]))

	port.Reset()
	m = press(t, m, "right")
	assert.Equal(t, "F0 00 20 7F 13 00 00 00 00 06 04 F7", midi.Hex(port.Sent()[0])) // 100 = 0x64
}

func TestModeKeys(t *testing.T) {
	tests := map[string][]string{
		"t": midiHex(turntable.TempoModeMessages(turntable.RP8000mk2)),
		"m": midiHex(turntable.TimeModeMessages(turntable.RP8000mk2)),
	}
	for k, want := range tests {
		m, ports := newTestModel(t, "RP8000mk2 Port A")
		press(t, m, k)
		assert.Equal(t, want, midiHex(ports.List[0].Sent()), k)
	}

	m, ports := newTestModel(t, "RP8000mk2 Port A")
	press(t, m, "s")
	assert.Len(t, ports.List[0].Sent(), 4)
}

func TestQuitSendsShutdown(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m, ports := newTestModel(t, "RP8000mk2 Port A")

		next, cmd := m.Update(key(k))
		m = next.(Model)
		require.NotNil(t, cmd)
		next, cmd = m.Update(cmd())
		m = next.(Model)

		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Equal(t, []string{"F0 00 20 7F 02 F7"}, midiHex(ports.List[0].Sent()))
		assert.Empty(t, m.View())

		// keys after quit are ignored
		_, cmd = m.Update(key("up"))
		assert.Nil(t, cmd)
	}
}

func TestSendErrorShown(t *testing.T) {
	m, ports := newTestModel(t, "RP8000mk2 Port A")
	ports.List[0].FailAt, ports.List[0].FailErr = 1, errors.New("cable pulled")

	m = press(t, m, "t")
	assert.Contains(t, m.View(), "tempo mode")
	assert.Contains(t, m.View(), "cable pulled")
	assert.False(t, m.busy)
}

func midiHex(msgs []gomidi.Message) []string {
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = midi.Hex(msg)
	}
	return out
}

func TestPortEvents(t *testing.T) {
	m, _ := newTestModel(t, "RP8000mk2 Port A")
	events := make(chan midi.PortEvent, 2)
	m.PortEvents = events

	events <- midi.PortEvent{Type: midi.PortConnected, Name: "RP8000mk2 Port A"}
	msg := m.Init()()
	next, cmd := m.Update(msg)
	m = next.(Model)
	assert.Equal(t, "RP8000mk2 Port A", m.port)
	require.NotNil(t, cmd)

	events <- midi.PortEvent{Type: midi.PortDisconnected, Err: midi.ErrPortNotFound}
	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Empty(t, m.port)
	assert.ErrorIs(t, m.portErr, midi.ErrPortNotFound)

	close(events)
	assert.Nil(t, ListenForPorts(events)())
}
