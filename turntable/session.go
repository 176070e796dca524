// Package turntable drives the tempo display of Reloop RP-8000 turntables
// with the SysEx commands Serato sends.
package turntable

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"rp8000/midi"
)

// Session sends commands to the first output port whose name contains the
// model identifier. The port is opened and closed around every Send.
type Session struct {
	model Model
	ports midi.Ports
	log   *zap.Logger
	init  bool

	sendMu sync.Mutex // one Send owns the port at a time

	mu      sync.Mutex
	bpm     float64
	channel int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithoutInit skips the startup sequence (mk2) or tempo reset (mk1) New
// normally sends.
func WithoutInit() Option {
	return func(s *Session) {
		s.init = false
	}
}

// New validates the model name and, unless WithoutInit is given, sends the
// model's init sequence: Startup for the RP8000mk2, a tempo of 0 for the RP8000.
// An unsupported model fails before any port is touched.
func New(model string, ports midi.Ports, opts ...Option) (*Session, error) {
	m, err := ParseModel(model)
	if err != nil {
		return nil, err
	}

	s := &Session{
		model:   m,
		ports:   ports,
		log:     zap.NewNop(),
		init:    true,
		channel: MinChannel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.Stringer("model", m))

	if !s.init {
		return s, nil
	}

	switch m {
	case RP8000mk2:
		err = s.Startup()
	case RP8000:
		err = s.SetTempo(0, MinChannel)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", m, err)
	}
	return s, nil
}

// Model returns the session's model.
func (s *Session) Model() Model {
	return s.model
}

// Tempo returns the last tempo and channel sent.
func (s *Session) Tempo() (bpm float64, channel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm, s.channel
}

func (s *Session) resolve() (int, []string, error) {
	outs, err := s.ports.Outs()
	if err != nil {
		return -1, nil, err
	}
	names := midi.Names(outs)
	for i, name := range names {
		s.log.Debug("output port", zap.Int("index", i), zap.String("name", name))
	}
	idx, err := midi.FindOut(names, s.model.String())
	return idx, names, err
}

// ResolvePort returns the index of the first output port whose name
// contains the model identifier.
func (s *Session) ResolvePort() (int, error) {
	idx, _, err := s.resolve()
	return idx, err
}

// PortName returns the name of the port ResolvePort selects.
func (s *Session) PortName() (string, error) {
	idx, names, err := s.resolve()
	if err != nil {
		return "", err
	}
	return names[idx], nil
}

// Send opens the model's port, transmits msgs in order and closes it.
// A transmission error stops the sequence; the port is still closed.
func (s *Session) Send(msgs ...gomidi.Message) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	outs, err := s.ports.Outs()
	if err != nil {
		return err
	}
	idx, err := midi.FindOut(midi.Names(outs), s.model.String())
	if err != nil {
		return err
	}

	out := outs[idx]
	for _, msg := range msgs {
		s.log.Debug("sending", zap.String("port", out.String()), zap.String("sysex", midi.Hex(msg)))
	}
	if err := midi.Transmit(out, msgs); err != nil {
		s.log.Error("send failed", zap.String("port", out.String()), zap.Error(err))
		return err
	}
	return nil
}

// SetTempo shows bpm on the display for the given deck channel.
// The RP8000 display saturates above MaxDisplayTempo; larger values are
// still sent.
func (s *Session) SetTempo(bpm float64, channel int) error {
	msg, err := TempoMessage(bpm, channel)
	if err != nil {
		return err
	}
	if s.model == RP8000 && bpm > MaxDisplayTempo {
		s.log.Warn("tempo above display limit", zap.Float64("bpm", bpm), zap.Float64("limit", MaxDisplayTempo))
	}
	if err := s.Send(msg); err != nil {
		return err
	}

	s.mu.Lock()
	s.bpm, s.channel = bpm, channel
	s.mu.Unlock()
	s.log.Info("tempo set", zap.Float64("bpm", bpm), zap.Int("channel", channel))
	return nil
}

// Startup enables the display and deck channels 1 and 2. Each group is a
// separate Send.
func (s *Session) Startup() error {
	for _, group := range StartupMessages(s.model) {
		if err := s.Send(group...); err != nil {
			return err
		}
	}
	s.log.Info("startup sent")
	return nil
}

// EnableChannel enables deck channel 1..DisplayChannels on the display.
func (s *Session) EnableChannel(channel int) error {
	msgs, err := ChannelMessages(channel)
	if err != nil {
		return err
	}
	return s.Send(msgs...)
}

// TempoMode switches the display to tempo readout.
func (s *Session) TempoMode() error {
	return s.Send(TempoModeMessages(s.model)...)
}

// TimeMode switches the display to time readout.
func (s *Session) TimeMode() error {
	return s.Send(TimeModeMessages(s.model)...)
}

// Shutdown returns the deck to pitch display and disables the display mode button.
func (s *Session) Shutdown() error {
	return s.Send(ShutdownMessages(s.model)...)
}
