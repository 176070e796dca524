package cli

import (
	"flag"
	"fmt"
)

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintln(out, "rp8000 - drive the Reloop RP-8000 tempo display")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Usage: rp8000 [flags] <command> [args]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  list          - List MIDI output ports")
		fmt.Fprintln(out, "  tempo <bpm>   - Show a tempo on the display")
		fmt.Fprintln(out, "  startup       - Enable the display (RP8000mk2)")
		fmt.Fprintln(out, "  tempo-mode    - Switch to tempo display")
		fmt.Fprintln(out, "  time-mode     - Switch to time display")
		fmt.Fprintln(out, "  shutdown      - Return to pitch display")
		fmt.Fprintln(out, "  channel <1-4> - Enable a deck channel")
		fmt.Fprintln(out, "  serve         - Run the HTTP API")
		fmt.Fprintln(out, "  tui           - Interactive display control (default)")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Flags:")
		fs.PrintDefaults()
	}
}
