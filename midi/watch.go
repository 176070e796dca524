package midi

import (
	"context"
	"time"
)

// PortEventType says whether the watched port appeared or went away.
type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// PortEvent is emitted when the first port matching the watcher's
// substring changes.
type PortEvent struct {
	Type PortEventType
	Name string
	Err  error // why the port is gone, for PortDisconnected
}

// Watcher polls Ports and reports when the matching port comes and goes.
type Watcher struct {
	ports    Ports
	substr   string
	pollRate time.Duration
	events   chan PortEvent

	current string
	seen    bool
}

// NewWatcher watches for output ports whose name contains substr.
func NewWatcher(ports Ports, substr string, pollRate time.Duration) *Watcher {
	if pollRate <= 0 {
		pollRate = time.Second
	}
	return &Watcher{
		ports:    ports,
		substr:   substr,
		pollRate: pollRate,
		events:   make(chan PortEvent, 16),
	}
}

// Events returns a channel of connect/disconnect events. It is closed when Run returns.
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	// Initial scan
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	name, err := w.match()
	if w.seen && name == w.current {
		return
	}
	w.seen = true
	w.current = name

	ev := PortEvent{Type: PortConnected, Name: name}
	if name == "" {
		ev = PortEvent{Type: PortDisconnected, Err: err}
	}
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}

func (w *Watcher) match() (string, error) {
	outs, err := w.ports.Outs()
	if err != nil {
		// A hung or failing driver counts as the port being gone.
		return "", err
	}
	names := Names(outs)
	idx, err := FindOut(names, w.substr)
	if err != nil {
		return "", err
	}
	return names[idx], nil
}
