// Package fake provides in-memory MIDI output ports that record what is sent.
package fake

import (
	"errors"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrClosed is returned by Send on a port that is not open.
var ErrClosed = errors.New("fake: port not open")

// Port is a drivers.Out that records every Send.
type Port struct {
	Name  string
	Index int

	// FailAt makes the n-th Send (1-based, counted over the port's lifetime) fail with FailErr.
	FailAt  int
	FailErr error
	// OpenErr is returned by Open when set.
	OpenErr error

	mu     sync.Mutex
	open   bool
	opens  int
	closes int
	sends  int
	sent   []gomidi.Message
}

var _ drivers.Out = (*Port)(nil)

func (p *Port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OpenErr != nil {
		return p.OpenErr
	}
	p.open = true
	p.opens++
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.closes++
	return nil
}

func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Port) Number() int             { return p.Index }
func (p *Port) String() string          { return p.Name }
func (p *Port) Underlying() interface{} { return nil }

func (p *Port) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrClosed
	}
	p.sends++
	if p.FailAt > 0 && p.sends == p.FailAt {
		return p.FailErr
	}
	p.sent = append(p.sent, gomidi.Message(append([]byte(nil), data...)))
	return nil
}

// Sent returns a copy of every recorded message.
func (p *Port) Sent() []gomidi.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gomidi.Message(nil), p.sent...)
}

// Opens and Closes count Open/Close calls.
func (p *Port) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func (p *Port) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// Reset forgets recorded messages and counters.
func (p *Port) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
	p.sends, p.opens, p.closes = 0, 0, 0
}

// Ports is a fixed port list implementing midi.Ports.
type Ports struct {
	List []*Port
	Err  error

	mu    sync.Mutex
	calls int
}

// NewPorts creates one Port per name, numbered in order.
func NewPorts(names ...string) *Ports {
	ps := &Ports{}
	for i, name := range names {
		ps.List = append(ps.List, &Port{Name: name, Index: i})
	}
	return ps
}

func (ps *Ports) Outs() ([]drivers.Out, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.calls++
	if ps.Err != nil {
		return nil, ps.Err
	}
	outs := make([]drivers.Out, len(ps.List))
	for i, p := range ps.List {
		outs[i] = p
	}
	return outs, nil
}

// Set replaces the port list and error while other goroutines enumerate.
func (ps *Ports) Set(err error, list ...*Port) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.List = list
	ps.Err = err
}

// Calls counts enumerations.
func (ps *Ports) Calls() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.calls
}
