package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Transmit opens out, writes every message in order and closes it again.
// The first failing write stops the loop. The port is closed on every path.
func Transmit(out drivers.Out, msgs []gomidi.Message) (err error) {
	if err := out.Open(); err != nil {
		return fmt.Errorf("open %s: %w", out.String(), err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", out.String(), cerr))
		}
	}()

	for i, msg := range msgs {
		if err := out.Send([]byte(msg)); err != nil {
			return fmt.Errorf("send message %d (%s): %w", i, Hex(msg), err)
		}
	}
	return nil
}
