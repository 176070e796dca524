package main

import (
	"fmt"
	"os"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"rp8000/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	ports := midi.Driver{Timeout: midi.DefaultTimeout}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts(ports)
	case "send":
		if len(os.Args) < 4 {
			usage()
			os.Exit(2)
		}
		err = sendHex(ports, os.Args[2], os.Args[3:])
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("SysEx probe")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                       - List all MIDI output ports")
	fmt.Println("  send <port> <hex bytes...> - Send one SysEx message to the first port containing <port>")
	fmt.Println("")
	fmt.Println("Example:")
	fmt.Println("  sysex send RP8000mk2 F0 00 20 7F 02 F7")
}

func listPorts(ports midi.Ports) error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Printf("(waiting up to %s...)\n", midi.DefaultTimeout)

	outs, err := ports.Outs()
	if err != nil {
		return err
	}
	for i, name := range midi.Names(outs) {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func sendHex(ports midi.Ports, portName string, fields []string) error {
	msg, err := midi.ParseHex(fields...)
	if err != nil {
		return err
	}

	outs, err := ports.Outs()
	if err != nil {
		return err
	}
	idx, err := midi.FindOut(midi.Names(outs), portName)
	if err != nil {
		return err
	}

	out := outs[idx]
	fmt.Printf("Using output: %s\n", out.String())
	fmt.Printf("Sending: %s\n", midi.Hex(msg))

	start := time.Now()
	if err := midi.Transmit(out, []gomidi.Message{msg}); err != nil {
		return err
	}
	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Microsecond))
	return nil
}
