package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
)

const (
	sysExStart byte = 0xF0
	sysExEnd   byte = 0xF7
)

// ErrInvalidHex is returned by ParseHex for malformed input.
var ErrInvalidHex = errors.New("invalid SysEx hex")

// Hex formats msg as upper-case, space separated bytes.
func Hex(msg gomidi.Message) string {
	return fmt.Sprintf("% X", []byte(msg))
}

// ParseHex parses hex bytes separated by spaces or commas into a SysEx
// message. Bytes may carry a 0x prefix. The F0/F7 framing is added when
// missing; every byte in between must be a data byte (< 0x80).
func ParseHex(fields ...string) (gomidi.Message, error) {
	var raw []byte
	for _, f := range fields {
		for _, tok := range strings.FieldsFunc(f, func(r rune) bool { return r == ' ' || r == ',' }) {
			tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidHex, tok)
			}
			raw = append(raw, byte(b))
		}
	}

	if len(raw) > 0 && raw[0] == sysExStart {
		raw = raw[1:]
	}
	if len(raw) > 0 && raw[len(raw)-1] == sysExEnd {
		raw = raw[:len(raw)-1]
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidHex)
	}
	for i, b := range raw {
		if b >= 0x80 {
			return nil, fmt.Errorf("%w: byte %d is 0x%02X, not a data byte", ErrInvalidHex, i+1, b)
		}
	}
	return gomidi.SysEx(raw), nil
}

// IsSysEx reports whether msg is framed by F0 ... F7.
func IsSysEx(msg gomidi.Message) bool {
	return len(msg) >= 2 && msg[0] == sysExStart && msg[len(msg)-1] == sysExEnd
}
