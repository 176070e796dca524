package turntable

import (
	"errors"
	"fmt"
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	ErrTempoOutOfRange = errors.New("tempo out of range")
	ErrInvalidChannel  = errors.New("invalid channel")
)

// Serato manufacturer ID.
var seratoID = []byte{0x00, 0x20, 0x7F}

const (
	// MaxTempo is the largest BPM whose x100 value fits the four nibbles.
	MaxTempo = float64(0xFFFF) / 100

	// MaxDisplayTempo is where the RP8000 (mk1) display saturates. Not enforced.
	MaxDisplayTempo = 199.9

	MinChannel = 1
	MaxChannel = 16

	// DisplayChannels are the deck channels the mk2 display can enable.
	DisplayChannels = 4
)

func serato(payload ...byte) gomidi.Message {
	return gomidi.SysEx(append(append([]byte(nil), seratoID...), payload...))
}

// legacy builds the 0x08-prefixed display commands of the mk1.
func legacy(payload ...byte) gomidi.Message {
	return gomidi.SysEx(append([]byte{0x08}, payload...))
}

// TempoNibbles splits round(bpm*100) into four nibbles, most significant first.
func TempoNibbles(bpm float64) ([4]byte, error) {
	if math.IsNaN(bpm) || bpm < 0 || bpm > MaxTempo {
		return [4]byte{}, fmt.Errorf("%w: %v (want 0 to %.2f)", ErrTempoOutOfRange, bpm, MaxTempo)
	}
	v := int(math.Round(bpm * 100))
	return [4]byte{
		byte((v >> 12) & 15),
		byte((v >> 8) & 15),
		byte((v >> 4) & 15),
		byte(v & 15),
	}, nil
}

// TempoMessage builds the 12 byte BPM readout message:
//
//	F0 00 20 7F <16+channel> 00 00 b1 b2 b3 b4 F7
func TempoMessage(bpm float64, channel int) (gomidi.Message, error) {
	if channel < MinChannel || channel > MaxChannel {
		return nil, fmt.Errorf("%w: %d (want %d to %d)", ErrInvalidChannel, channel, MinChannel, MaxChannel)
	}
	n, err := TempoNibbles(bpm)
	if err != nil {
		return nil, err
	}
	return serato(byte(16+channel), 0x00, 0x00, n[0], n[1], n[2], n[3]), nil
}

// displayOn prompts for a MIDI channel if none is set and enables the display.
func displayOn() gomidi.Message {
	return serato(0x01)
}

func channelOn(channel int) gomidi.Message {
	return serato(byte(channel), 0x03, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
}

// ChannelMessages enables deck channel 1..DisplayChannels on the display.
func ChannelMessages(channel int) ([]gomidi.Message, error) {
	if channel < 1 || channel > DisplayChannels {
		return nil, fmt.Errorf("%w: %d (want 1 to %d)", ErrInvalidChannel, channel, DisplayChannels)
	}
	return []gomidi.Message{displayOn(), channelOn(channel)}, nil
}

func shutdownMessages() []gomidi.Message {
	return []gomidi.Message{serato(0x02)}
}

// Sent by Serato on startup; switches the mk1 to tempo display. The mk2
// receives the same sequence when its tempo button is pressed, but its
// screen does not change.
func tempoModeMessages() []gomidi.Message {
	return []gomidi.Message{
		legacy(0x01, 0x02, 0x00, 0x01),
		legacy(0x01, 0x02, 0x01, 0x01),
		legacy(0x01, 0x02, 0x02, 0x01),
		legacy(0x01, 0x02, 0x03, 0x01),
		legacy(0x01, 0x02, 0x03, 0x01),
	}
}

// Sent when an mk2 display goes to --:-- time mode.
func timeModeMessages() []gomidi.Message {
	return []gomidi.Message{
		serato(0x04, 0x04, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
		serato(0x01, 0x04, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
		serato(0x02, 0x04, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
		serato(0x03, 0x04, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00),
	}
}

// commandSet holds the constant sequences of one model. Tables are built
// per call so callers never share backing arrays.
type commandSet struct {
	startup   func() [][]gomidi.Message
	tempoMode func() []gomidi.Message
	timeMode  func() []gomidi.Message
	shutdown  func() []gomidi.Message
}

func startupGroups() [][]gomidi.Message {
	return [][]gomidi.Message{
		{displayOn(), channelOn(1)},
		{displayOn(), channelOn(2)},
	}
}

var commands = map[Model]commandSet{
	RP8000: {
		startup:   startupGroups,
		tempoMode: tempoModeMessages,
		timeMode:  timeModeMessages,
		shutdown:  shutdownMessages,
	},
	RP8000mk2: {
		startup:   startupGroups,
		tempoMode: tempoModeMessages,
		timeMode:  timeModeMessages,
		shutdown:  shutdownMessages,
	},
}

// StartupMessages returns the message groups Startup sends, in order.
func StartupMessages(m Model) [][]gomidi.Message {
	cs, ok := commands[m]
	if !ok {
		return nil
	}
	return cs.startup()
}

// TempoModeMessages returns the tempo display sequence of m.
func TempoModeMessages(m Model) []gomidi.Message {
	cs, ok := commands[m]
	if !ok {
		return nil
	}
	return cs.tempoMode()
}

// TimeModeMessages returns the time display sequence of m.
func TimeModeMessages(m Model) []gomidi.Message {
	cs, ok := commands[m]
	if !ok {
		return nil
	}
	return cs.timeMode()
}

// ShutdownMessages returns the sequence Serato sends on exit: it disables
// the display mode button and returns the deck to pitch display.
func ShutdownMessages(m Model) []gomidi.Message {
	cs, ok := commands[m]
	if !ok {
		return nil
	}
	return cs.shutdown()
}
