package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	// ErrPortNotFound is returned when no output port name matches.
	ErrPortNotFound = errors.New("no MIDI output port found")
	// ErrEnumerationTimeout is returned when the driver does not answer in time.
	ErrEnumerationTimeout = errors.New("MIDI port enumeration timed out")
)

// DefaultTimeout bounds a single port enumeration.
const DefaultTimeout = 3 * time.Second

// Ports enumerates MIDI output ports in driver order.
type Ports interface {
	Outs() ([]drivers.Out, error)
}

// Driver enumerates the ports of the registered gomidi driver. Binaries
// register one with a blank import of drivers/rtmididrv.
type Driver struct {
	Timeout time.Duration
}

// Outs lists output ports. Enumeration runs in its own goroutine since
// CoreMIDI can hang; the goroutine is abandoned on timeout.
func (d Driver) Outs() ([]drivers.Out, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type result struct {
		outs []drivers.Out
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		outs, err := drivers.Outs()
		ch <- result{outs: outs, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("list output ports: %w", r.err)
		}
		return r.outs, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, fmt.Errorf("%w after %s", ErrEnumerationTimeout, timeout)
	}
}

// Names returns the port names in enumeration order.
func Names(outs []drivers.Out) []string {
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names
}

// FindOut returns the index of the first name containing substr.
// Matching is case-sensitive and there is no tie-break beyond order.
func FindOut(names []string, substr string) (int, error) {
	for i, name := range names {
		if strings.Contains(name, substr) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w for %q", ErrPortNotFound, substr)
}
