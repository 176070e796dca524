// Package cli implements the rp8000 command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"rp8000/config"
	"rp8000/logging"
	"rp8000/midi"
	"rp8000/server"
	"rp8000/theme"
	"rp8000/tui"
	"rp8000/turntable"
)

var errUsage = errors.New("usage")

// app carries what every command needs. ports and stdout are swapped in tests.
type app struct {
	cfg    *config.Config
	ports  midi.Ports
	log    *zap.Logger
	stdout io.Writer
}

// Run parses args (without the program name) and runs the command.
func Run(args []string) error {
	fs := flag.NewFlagSet("rp8000", flag.ContinueOnError)
	fs.Usage = usage(fs)
	var (
		configFile = fs.String("config", "", "config file (default ~/.config/rp8000/config.yaml)")
		model      = fs.String("model", "", "turntable model: RP8000 or RP8000mk2")
		channel    = fs.Int("channel", 0, "deck channel for tempo messages (1-16)")
		addr       = fs.String("addr", "", "listen address for serve")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *model != "" {
		cfg.Device.Model = *model
	}
	if *channel != 0 {
		cfg.Device.Channel = *channel
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cmd, rest := "tui", []string(nil)
	if fs.NArg() > 0 {
		cmd, rest = fs.Arg(0), fs.Args()[1:]
	}

	// The alt screen owns stdout, so the TUI always logs to a file.
	logFile := cfg.Log.File
	if cmd == "tui" && logFile == "" {
		if logFile, err = config.DebugLogPath(); err != nil {
			return err
		}
	}
	log, err := logging.New(cfg.Log.Level, logFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	a := &app{
		cfg:    cfg,
		ports:  midi.Driver{Timeout: cfg.Device.PortTimeout},
		log:    log,
		stdout: os.Stdout,
	}
	err = a.dispatch(cmd, rest)
	if errors.Is(err, errUsage) {
		fs.Usage()
	}
	return err
}

func (a *app) dispatch(cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list()
	case "tempo":
		return a.tempo(args)
	case "startup":
		return a.simple((*turntable.Session).Startup, turntable.WithoutInit())
	case "tempo-mode":
		return a.simple((*turntable.Session).TempoMode)
	case "time-mode":
		return a.simple((*turntable.Session).TimeMode)
	case "shutdown":
		return a.simple((*turntable.Session).Shutdown, turntable.WithoutInit())
	case "channel":
		return a.channel(args)
	case "serve":
		return a.serve()
	case "tui":
		return a.tui()
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) session(opts ...turntable.Option) (*turntable.Session, error) {
	opts = append([]turntable.Option{turntable.WithLogger(a.log)}, opts...)
	return turntable.New(a.cfg.Device.Model, a.ports, opts...)
}

func (a *app) list() error {
	outs, err := a.ports.Outs()
	if err != nil {
		return err
	}
	names := midi.Names(outs)
	match, err := midi.FindOut(names, a.cfg.Device.Model)
	if err != nil {
		match = -1
	}

	fmt.Fprintln(a.stdout, "=== MIDI Output Ports ===")
	for i, name := range names {
		marker := " "
		if i == match {
			marker = "*"
		}
		fmt.Fprintf(a.stdout, "%s %d: %s\n", marker, i, name)
	}
	if match < 0 {
		fmt.Fprintf(a.stdout, "\nNo port matches %s\n", a.cfg.Device.Model)
	}
	return nil
}

func (a *app) tempo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: tempo takes one BPM value", errUsage)
	}
	bpm, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("%w: bad BPM %q", errUsage, args[0])
	}
	// Validate before New so a typo does not trigger the init sequence.
	if _, err := turntable.TempoMessage(bpm, a.cfg.Device.Channel); err != nil {
		return err
	}

	s, err := a.session()
	if err != nil {
		return err
	}
	return s.SetTempo(bpm, a.cfg.Device.Channel)
}

func (a *app) channel(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: channel takes one number", errUsage)
	}
	ch, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: bad channel %q", errUsage, args[0])
	}
	s, err := a.session(turntable.WithoutInit())
	if err != nil {
		return err
	}
	return s.EnableChannel(ch)
}

func (a *app) simple(fn func(*turntable.Session) error, opts ...turntable.Option) error {
	s, err := a.session(opts...)
	if err != nil {
		return err
	}
	return fn(s)
}

func (a *app) serve() error {
	s, err := a.session()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(s, a.ports, a.cfg.Device.Channel, a.log)
	fmt.Fprintf(a.stdout, "rp8000 API on %s (%s)\n", a.cfg.Server.Addr, s.Model())
	if err := srv.Run(ctx, a.cfg.Server.Addr); err != nil {
		return err
	}

	a.log.Info("shutting down display")
	return s.Shutdown()
}

func (a *app) tui() error {
	palette, err := theme.Load(a.cfg.Theme.Palette)
	if err != nil {
		return err
	}

	s, err := a.session()
	if err != nil {
		return err
	}

	// Watch for the deck being unplugged or plugged back in
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher := midi.NewWatcher(a.ports, s.Model().String(), time.Second)
	go watcher.Run(ctx)

	m := tui.NewModel(s, theme.New(palette))
	m.PortEvents = watcher.Events()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
